package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"door-tags/layout"
	"door-tags/preset"
)

func (h *handler) getPresets(w http.ResponseWriter, r *http.Request) {
	store := h.presetManager.Get()
	writeJSON(w, http.StatusOK, store)
}

func (h *handler) putPresets(w http.ResponseWriter, r *http.Request) {
	var store preset.PresetStore
	if err := json.NewDecoder(r.Body).Decode(&store); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Filter recentlyUsed to only include IDs present in the new presets list.
	idSet := make(map[string]bool, len(store.Presets))
	for _, p := range store.Presets {
		idSet[p.ID] = true
	}
	filtered := store.RecentlyUsed[:0]
	for _, id := range store.RecentlyUsed {
		if idSet[id] {
			filtered = append(filtered, id)
		}
	}
	store.RecentlyUsed = filtered

	if err := h.presetManager.Save(store); err != nil {
		http.Error(w, "failed to save presets", http.StatusInternalServerError)
		return
	}

	updated := h.presetManager.Get()
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) usePreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// MarkUsed silently ignores non-existent IDs.
	if err := h.presetManager.MarkUsed(id); err != nil {
		http.Error(w, "failed to update recently used", http.StatusInternalServerError)
		return
	}

	store := h.presetManager.Get()
	writeJSON(w, http.StatusOK, map[string][]string{"recentlyUsed": store.RecentlyUsed})
}

// applyPreset moves one label of a session to a preset placement.
func (h *handler) applyPreset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	p, ok := h.presetManager.Find(chi.URLParam(r, "presetID"))
	if !ok {
		http.Error(w, "preset not found", http.StatusNotFound)
		return
	}

	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pos, field, err := s.ApplyPreset(p, req.Index)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	if err := h.presetManager.MarkUsed(p.ID); err != nil {
		h.logger.Warn("failed to update recently used", "err", err)
	}

	writeJSON(w, http.StatusOK, struct {
		Index     int             `json:"index"`
		Position  layout.Position `json:"position"`
		Positions string          `json:"positions"`
	}{Index: req.Index, Position: pos, Positions: field})
}

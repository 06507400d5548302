package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"door-tags/layout"
	"door-tags/preview"
	"door-tags/session"
)

// renderResponse is the payload of a successful mode transition: the fresh
// session snapshot plus the full render tree, which the frontend swaps in
// wholesale.
type renderResponse struct {
	Session session.State  `json:"session"`
	Nodes   []preview.Node `json:"nodes"`
}

func (h *handler) enterArrange(w http.ResponseWriter, r *http.Request) {
	s, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	nodes, err := s.EnterArrange(r.Context(), h.generator, h.presetIDs())
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderResponse{Session: s.State(), Nodes: nodes})
}

func (h *handler) enterPreview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	nodes, err := s.EnterPreview(r.Context(), h.generator)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renderResponse{Session: s.State(), Nodes: nodes})
}

func (h *handler) getPositions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	field, positions := s.Positions()
	writeJSON(w, http.StatusOK, struct {
		Positions string                  `json:"positions"`
		Decoded   map[int]layout.Position `json:"decoded"`
	}{Positions: field, Decoded: positions})
}

func (h *handler) generate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	req, err := s.BeginGenerate()
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	defer s.EndGenerate()

	archive, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive.Data)
}

// writeSessionError maps session and upstream errors onto HTTP statuses.
// Validation errors carry their user-facing text; upstream failures surface
// the compositing service's own message.
func (h *handler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoImages),
		errors.Is(err, session.ErrNoNames),
		errors.Is(err, session.ErrGenNoImages),
		errors.Is(err, session.ErrGenNoNames),
		errors.Is(err, session.ErrTooManyNames):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, session.ErrWrongMode), errors.Is(err, session.ErrNoPosition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, preview.ErrUpstream):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.logger.Error("unexpected session error", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// presetIDs lists the preset control IDs attached to each label in arrange
// mode, in the configured order.
func (h *handler) presetIDs() []string {
	store := h.presetManager.Get()
	ids := make([]string, 0, len(store.Presets))
	for _, p := range store.Presets {
		ids = append(ids, p.ID)
	}
	return ids
}

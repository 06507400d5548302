package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"door-tags/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is one client command on the drag channel. press/move/release
// drive the per-label drag state machine; preset applies a placement.
type wsMessage struct {
	Type   string  `json:"type"`
	Index  int     `json:"index"`
	Preset string  `json:"preset,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

func (h *handler) handleWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.manager.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WS upgrade error", "err", err)
		return
	}
	defer conn.Close()

	// Serialise all WebSocket writes — gorilla/websocket forbids concurrent writes.
	var writeMu sync.Mutex
	writeEvent := func(ev session.Event) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(ev)
	}

	outChan := make(chan session.Event, 256)
	kick := s.SetClient(outChan) // also marks the session connected; kicks any prior client
	defer s.ClearClient(outChan) // closes outChan + clears session state if still owner

	// Replay the current state so the client can rebuild its view.
	state := s.State()
	if err := writeEvent(session.Event{Type: "state", Mode: state.Mode, Positions: state.Positions}); err != nil {
		h.logger.Error("WS state replay error", "err", err)
		return
	}

	// Goroutine: pump session events (position and mode updates, whichever
	// input source caused them) to the client.
	// Exits when ClearClient closes outChan.
	go func() {
		for ev := range outChan {
			if err := writeEvent(ev); err != nil {
				return
			}
		}
	}()

	// Goroutine: watch for session end or displacement and close the connection
	// so ReadJSON below unblocks immediately.
	connDone := make(chan struct{})
	go func() {
		select {
		case <-s.Done():
			writeEvent(session.Event{Type: "closed"}) //nolint:errcheck
			conn.Close()
		case <-kick:
			// Displaced by a newer connection — close without a "closed" event
			// so the client shows the disconnected overlay rather than
			// session-ended.
			conn.Close()
		case <-connDone:
		}
	}()
	defer close(connDone)

	// Main loop: read client commands.
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			// Client disconnected, or conn was closed by the done-watcher above.
			// Either way the session keeps running.
			return
		}

		switch msg.Type {
		case "press":
			if err := s.DragPress(msg.Index); err != nil {
				h.replyError(writeEvent, msg.Index, err)
			}
		case "move":
			// Successful moves are echoed back through the event pump; a move
			// outside a drag session is silently dropped, like a stray global
			// mousemove.
			if _, _, err := s.DragMove(msg.Index, msg.X, msg.Y, msg.Width, msg.Height); err != nil {
				h.replyError(writeEvent, msg.Index, err)
			}
		case "release":
			s.DragRelease(msg.Index)
		case "preset":
			p, ok := h.presetManager.Find(msg.Preset)
			if !ok {
				h.replyError(writeEvent, msg.Index, errors.New("unknown preset"))
				continue
			}
			if _, _, err := s.ApplyPreset(p, msg.Index); err != nil {
				h.replyError(writeEvent, msg.Index, err)
				continue
			}
			if err := h.presetManager.MarkUsed(p.ID); err != nil {
				h.logger.Warn("failed to update recently used", "err", err)
			}
		}
	}
}

func (h *handler) replyError(writeEvent func(session.Event) error, index int, err error) {
	if werr := writeEvent(session.Event{Type: "error", Index: index, Error: err.Error()}); werr != nil {
		h.logger.Error("WS error reply failed", "err", werr)
	}
}

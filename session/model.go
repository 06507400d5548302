package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"door-tags/layout"
	"door-tags/preset"
	"door-tags/preview"
)

// The validation errors carry user-facing text and are surfaced verbatim.
var (
	ErrNoImages     = errors.New("Please upload at least one image to preview.")
	ErrNoNames      = errors.New("Please enter at least one name to preview.")
	ErrGenNoImages  = errors.New("Please upload at least one image.")
	ErrGenNoNames   = errors.New("Please provide at least one name.")
	ErrTooManyNames = errors.New("Too many names. Please limit to 300 per batch.")
)

var (
	ErrBusy       = errors.New("another request is already in flight")
	ErrClosed     = errors.New("session is closed")
	ErrNoPosition = errors.New("no position for that label yet")
	ErrWrongMode  = errors.New("labels can only be adjusted in arrange mode")
)

// MaxBatchNames is the guardrail on a single generation run.
const MaxBatchNames = 300

// Session is one editing session: the uploaded template references and name
// list, the active mode, the per-label position store, and the submittable
// field that mirrors the store after every mutation. All mutable state is
// guarded by mu; every handler runs to completion under it, which gives the
// same ordering guarantees a single-threaded event loop would.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu         sync.Mutex
	lastActive time.Time
	mode       layout.Mode
	images     []string
	namesText  string
	fontColor  string
	store      *layout.Store
	field      string // serialized store, refreshed by every mutation
	drags      map[int]*layout.Drag
	busy       bool

	outChan   chan Event
	kickChan  chan struct{}
	connected bool
	done      chan struct{}
	closeOnce sync.Once
}

// State is the JSON snapshot of a session handed to clients.
type State struct {
	ID         string      `json:"id"`
	CreatedAt  time.Time   `json:"created_at"`
	LastActive time.Time   `json:"last_active"`
	Connected  bool        `json:"connected"`
	Mode       layout.Mode `json:"mode"`
	Images     []string    `json:"images"`
	NameCount  int         `json:"name_count"`
	FontColor  string      `json:"font_color"`
	Positions  string      `json:"positions"`
}

// Event is one update pushed to the session's websocket client: a position
// change after any store mutation, or a mode change after a successful
// preview. The same shape carries the connect-time snapshot and error
// replies.
type Event struct {
	Type      string           `json:"type"`
	Index     int              `json:"index,omitempty"`
	Position  *layout.Position `json:"position,omitempty"`
	Positions string           `json:"positions,omitempty"`
	Mode      layout.Mode      `json:"mode,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func newSession(id string) *Session {
	now := time.Now()
	s := &Session{
		ID:         id,
		CreatedAt:  now,
		lastActive: now,
		mode:       layout.ModePreview,
		store:      layout.NewStore(),
		drags:      make(map[int]*layout.Drag),
		done:       make(chan struct{}),
	}
	s.field = s.store.Serialize()
	return s
}

// State returns a consistent snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastActive: s.lastActive,
		Connected:  s.connected,
		Mode:       s.mode,
		Images:     append([]string(nil), s.images...),
		NameCount:  preview.CountNames(s.namesText),
		FontColor:  s.fontColor,
		Positions:  s.field,
	}
}

// SetInputs replaces the template references, raw name text, and font color.
func (s *Session) SetInputs(images []string, namesText, fontColor string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append([]string(nil), images...)
	s.namesText = namesText
	s.fontColor = fontColor
	s.lastActive = time.Now()
	return s.stateLocked()
}

// EnterArrange validates the inputs, requests an arrange-mode preview from
// gen, and on success initializes the store (first time only), aligns it with
// the item count, switches to arrange mode, and returns the interactive
// render tree. Validation failures happen before any network call and leave
// all state untouched; upstream failures leave the mode unchanged.
func (s *Session) EnterArrange(ctx context.Context, gen preview.Generator, presets []string) ([]preview.Node, error) {
	s.mu.Lock()
	if err := s.beginLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if len(s.images) == 0 {
		s.busy = false
		s.mu.Unlock()
		return nil, ErrNoImages
	}
	names := preview.ParseNames(s.namesText)
	if len(names) == 0 {
		s.busy = false
		s.mu.Unlock()
		return nil, ErrNoNames
	}
	req := s.requestLocked(names)
	s.mu.Unlock()

	items, err := gen.Preview(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.lastActive = time.Now()
	if err != nil {
		return nil, err
	}
	s.commitItemsLocked(len(items))
	s.mode = layout.ModeArrange
	s.notifyLocked(Event{Type: "mode", Mode: s.mode, Positions: s.field})
	return preview.Render(items, layout.ModeArrange, s.store, presets), nil
}

// EnterPreview requests a preview-mode render — the service bakes the last
// committed positions into the images, so the returned nodes carry no
// affordances. No upload/name validation beyond what the service enforces.
func (s *Session) EnterPreview(ctx context.Context, gen preview.Generator) ([]preview.Node, error) {
	s.mu.Lock()
	if err := s.beginLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	req := s.requestLocked(preview.ParseNames(s.namesText))
	s.mu.Unlock()

	items, err := gen.Preview(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.lastActive = time.Now()
	if err != nil {
		return nil, err
	}
	s.commitItemsLocked(len(items))
	s.mode = layout.ModePreview
	s.notifyLocked(Event{Type: "mode", Mode: s.mode, Positions: s.field})
	return preview.Render(items, layout.ModePreview, s.store, nil), nil
}

// commitItemsLocked runs the store lifecycle after any successful preview:
// lazy default initialization on the first pass, then alignment with the
// pass's item count, then the serialization bridge.
func (s *Session) commitItemsLocked(itemCount int) {
	s.store.InitializeIfEmpty(itemCount)
	s.store.Reconcile(itemCount)
	s.field = s.store.Serialize()
}

// requestLocked assembles the upstream request. The serialized store is only
// attached once positions exist, so a first preview gets server defaults.
func (s *Session) requestLocked(names []string) preview.Request {
	req := preview.Request{
		Images:    append([]string(nil), s.images...),
		Names:     names,
		FontColor: s.fontColor,
	}
	if s.store.Len() > 0 {
		req.Positions = s.field
	}
	return req
}

// beginLocked gates a new upstream request: at most one may be outstanding
// per session, enforced here rather than by any locking around the network
// call itself.
func (s *Session) beginLocked() error {
	if s.isClosedLocked() {
		return ErrClosed
	}
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

// BeginGenerate validates the inputs for a final batch run and marks the
// session busy. The returned request carries the submittable field as-is —
// whatever the most recent mutation produced, even mid-drag. EndGenerate must
// be called once the upstream call finishes, success or not, so the user is
// never locked out.
func (s *Session) BeginGenerate() (preview.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.beginLocked(); err != nil {
		return preview.Request{}, err
	}
	names := preview.ParseNames(s.namesText)
	switch {
	case len(s.images) == 0:
		s.busy = false
		return preview.Request{}, ErrGenNoImages
	case len(names) == 0:
		s.busy = false
		return preview.Request{}, ErrGenNoNames
	case len(names) > MaxBatchNames:
		s.busy = false
		return preview.Request{}, ErrTooManyNames
	}
	req := s.requestLocked(names)
	req.Positions = s.field
	return req, nil
}

// EndGenerate clears the busy gate set by BeginGenerate.
func (s *Session) EndGenerate() {
	s.mu.Lock()
	s.busy = false
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// DragPress starts a drag session for the label at index i. Only valid in
// arrange mode; a press while already dragging is ignored.
func (s *Session) DragPress(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosedLocked() {
		return ErrClosed
	}
	if s.mode != layout.ModeArrange {
		return ErrWrongMode
	}
	s.dragLocked(i).Press()
	s.lastActive = time.Now()
	return nil
}

// DragMove handles one pointer-move for label i at pixel (px, py) inside a
// w×h container. While a drag session is active it clamps, normalizes,
// writes the store, and refreshes the submittable field in the same step.
// Moves outside a drag session report ok=false — the global move listener
// fires regardless of where the pointer is.
func (s *Session) DragMove(i int, px, py, w, h float64) (layout.Position, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosedLocked() {
		return layout.Position{}, false, ErrClosed
	}
	if s.mode != layout.ModeArrange {
		return layout.Position{}, false, ErrWrongMode
	}
	pos, ok := s.dragLocked(i).Move(px, py, w, h)
	if !ok {
		return layout.Position{}, false, nil
	}
	s.setPositionLocked(i, pos)
	return pos, true, nil
}

// DragRelease ends label i's drag session, wherever the pointer is.
func (s *Session) DragRelease(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragLocked(i).Release()
	s.lastActive = time.Now()
}

// ApplyPreset moves label i to the placement p produces from its current
// position. The position must already exist — presets act on placed labels,
// not on an uninitialized store.
func (s *Session) ApplyPreset(p preset.Preset, i int) (layout.Position, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosedLocked() {
		return layout.Position{}, "", ErrClosed
	}
	if s.mode != layout.ModeArrange {
		return layout.Position{}, "", ErrWrongMode
	}
	current, ok := s.store.Get(i)
	if !ok {
		return layout.Position{}, "", ErrNoPosition
	}
	next := preset.Apply(p, current)
	s.setPositionLocked(i, next)
	return next, s.field, nil
}

// Positions returns the submittable field and its decoded mapping.
func (s *Session) Positions() (string, map[int]layout.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.field, s.store.Snapshot()
}

// Mode returns the active mode.
func (s *Session) Mode() layout.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// setPositionLocked is the single write path into the store: clamp via Set,
// re-serialize into the submittable field, notify the connected client.
func (s *Session) setPositionLocked(i int, p layout.Position) {
	s.store.Set(i, p)
	s.field = s.store.Serialize()
	s.lastActive = time.Now()
	stored, _ := s.store.Get(i)
	s.notifyLocked(Event{Type: "position", Index: i, Position: &stored, Positions: s.field})
}

func (s *Session) dragLocked(i int) *layout.Drag {
	d, ok := s.drags[i]
	if !ok {
		d = &layout.Drag{}
		s.drags[i] = d
	}
	return d
}

// notifyLocked pushes ev to the connected websocket client, if any. The send
// never blocks; a slow client just misses intermediate updates.
func (s *Session) notifyLocked(ev Event) {
	if s.outChan != nil {
		select {
		case s.outChan <- ev:
		default:
		}
	}
}

// SetClient registers a channel to receive session events. If a previous
// client is connected it is kicked: its kick channel is closed so the
// websocket handler can detect the displacement and close that connection.
// Returns a kick channel that will be closed if this client is itself later
// displaced.
func (s *Session) SetClient(ch chan Event) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kickChan != nil {
		close(s.kickChan)
	}
	kick := make(chan struct{})
	s.kickChan = kick
	s.outChan = ch
	s.connected = true
	return kick
}

// ClearClient is called when a connection ends. It only updates session state
// if ch is still the current owner (guards against a displaced connection
// clearing a newer one). It always closes ch so the pump goroutine exits.
func (s *Session) ClearClient(ch chan Event) {
	s.mu.Lock()
	if s.outChan == ch {
		s.outChan = nil
		s.kickChan = nil
		s.connected = false
	}
	s.mu.Unlock()
	close(ch)
}

// Done returns a channel that is closed when the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close ends the session. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Session) isClosedLocked() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

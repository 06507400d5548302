package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Manager owns all live editing sessions, keyed by ID. Sessions have no
// persistence: they exist from Create until Close or until the idle sweep
// collects them, which is the "page reload starts a fresh store" lifecycle.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idleTTL  time.Duration
}

// NewManager creates a Manager that expires sessions idle longer than
// idleTTL. A non-positive idleTTL disables expiry.
func NewManager(idleTTL time.Duration) *Manager {
	return &Manager{sessions: make(map[string]*Session), idleTTL: idleTTL}
}

// Create starts a new editing session: empty store, preview mode, no inputs.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := newSession(uuid.New().String())
	m.sessions[s.ID] = s
	return s
}

// List returns a snapshot of every live session.
func (m *Manager) List() []State {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	list := make([]State, 0, len(sessions))
	for _, s := range sessions {
		list = append(list, s.State())
	}
	return list
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close ends a session and removes it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.Close()
	return nil
}

// Sweep closes and removes every session idle longer than the manager's TTL.
// Returns how many were collected. Scheduled periodically from main.
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

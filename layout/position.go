package layout

import (
	"encoding/json"
	"strconv"
)

// Position is a normalized coordinate: each axis expresses a label's
// placement as a fraction of the template's width or height, always in [0,1].
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultPosition is the center of the template.
var DefaultPosition = Position{X: 0.5, Y: 0.5}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamped returns the position with both axes forced into [0,1].
// Out-of-range inputs are clamped, never rejected.
func (p Position) Clamped() Position {
	return Position{X: clamp01(p.X), Y: clamp01(p.Y)}
}

// Store maps a label index to its Position. The index is the label's 0-based
// position in the most recent preview render; it is not a stable identity
// across item-count changes (see Reconcile). Every stored value is within
// [0,1]² — Set clamps on the way in.
//
// A Store is not safe for concurrent use; the owning session serializes
// access to it.
type Store struct {
	positions map[int]Position
}

func NewStore() *Store {
	return &Store{positions: make(map[int]Position)}
}

func (s *Store) Get(i int) (Position, bool) {
	p, ok := s.positions[i]
	return p, ok
}

// Set clamps p into [0,1]² and stores it, overwriting any prior value.
func (s *Store) Set(i int, p Position) {
	s.positions[i] = p.Clamped()
}

func (s *Store) Len() int {
	return len(s.positions)
}

// InitializeIfEmpty writes the default center for every index 0..n-1, but
// only when the store holds no entries at all. On a non-empty store it is a
// no-op, whatever n is. Returns whether defaults were written.
func (s *Store) InitializeIfEmpty(n int) bool {
	if len(s.positions) > 0 {
		return false
	}
	for i := 0; i < n; i++ {
		s.positions[i] = DefaultPosition
	}
	return n > 0
}

// Reconcile aligns a non-empty store with a render pass of n items: indices
// missing from 0..n-1 are filled with the default center, indices >= n are
// dropped. Existing entries in range are left untouched.
func (s *Store) Reconcile(n int) {
	for i := 0; i < n; i++ {
		if _, ok := s.positions[i]; !ok {
			s.positions[i] = DefaultPosition
		}
	}
	for i := range s.positions {
		if i >= n {
			delete(s.positions, i)
		}
	}
}

// Snapshot returns a copy of the full mapping.
func (s *Store) Snapshot() map[int]Position {
	cp := make(map[int]Position, len(s.positions))
	for i, p := range s.positions {
		cp[i] = p
	}
	return cp
}

// Serialize encodes the full mapping as a JSON object keyed by the
// stringified index, e.g. {"0":{"x":0.5,"y":0.5}}. ParsePositions inverts it
// losslessly. An empty store encodes as "{}".
func (s *Store) Serialize() string {
	out := make(map[string]Position, len(s.positions))
	for i, p := range s.positions {
		out[strconv.Itoa(i)] = p
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// ParsePositions decodes a string produced by Serialize back into an
// index→Position mapping.
func ParsePositions(raw string) (map[int]Position, error) {
	var decoded map[string]Position
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	out := make(map[int]Position, len(decoded))
	for k, p := range decoded {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

package preset

import (
	"errors"

	"door-tags/layout"
)

// Preset is a reusable label placement. A nil axis keeps the label's current
// value on that axis, which is how the axis-only presets (center-x, center-y)
// are expressed.
type Preset struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
}

// PresetStore is the full persistent state.
type PresetStore struct {
	Presets      []Preset `json:"presets"`
	RecentlyUsed []string `json:"recentlyUsed"` // MRU order, max 10 IDs
}

var ErrNotFound = errors.New("preset not found")

func axis(v float64) *float64 { return &v }

// Defaults are the built-in placements. Operators can tune or extend them
// through the preset file; a missing file falls back to these.
func Defaults() []Preset {
	return []Preset{
		{ID: "top", Label: "Top", X: axis(0.5), Y: axis(0.15)},
		{ID: "center", Label: "Center", X: axis(0.5), Y: axis(0.5)},
		{ID: "bottom", Label: "Bottom", X: axis(0.5), Y: axis(0.85)},
		{ID: "center-x", Label: "Center X", X: axis(0.5)},
		{ID: "center-y", Label: "Center Y", Y: axis(0.5)},
	}
}

// Apply computes the placement p produces for a label currently at current:
// non-nil axes override, nil axes carry the current value through. The result
// is clamped like any other position write.
func Apply(p Preset, current layout.Position) layout.Position {
	next := current
	if p.X != nil {
		next.X = *p.X
	}
	if p.Y != nil {
		next.Y = *p.Y
	}
	return next.Clamped()
}

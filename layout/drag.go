package layout

// DragState is the state of one label's drag controller.
type DragState int

const (
	DragIdle DragState = iota
	DragActive
)

// Drag is the pointer-interaction state machine for a single label. One Drag
// exists per label index; a press starts a drag session, moves translate
// container-relative pixel coordinates into a normalized Position, and a
// release ends the session irrespective of where the pointer is.
type Drag struct {
	state DragState
}

// Press transitions Idle → Active. A press while already dragging is
// ignored; returns whether the transition happened.
func (d *Drag) Press() bool {
	if d.state != DragIdle {
		return false
	}
	d.state = DragActive
	return true
}

// Move handles a pointer-move at pixel (px, py) relative to the container's
// top-left corner, for a container of w×h pixels. Each axis is clamped
// independently to the container bounds, then normalized by the matching
// dimension. Moves while not dragging, or against a degenerate container,
// report ok=false and compute nothing.
func (d *Drag) Move(px, py, w, h float64) (Position, bool) {
	if d.state != DragActive || w <= 0 || h <= 0 {
		return Position{}, false
	}
	if px < 0 {
		px = 0
	} else if px > w {
		px = w
	}
	if py < 0 {
		py = 0
	} else if py > h {
		py = h
	}
	return Position{X: px / w, Y: py / h}, true
}

// Release transitions Active → Idle. Returns whether a drag session ended.
func (d *Drag) Release() bool {
	if d.state != DragActive {
		return false
	}
	d.state = DragIdle
	return true
}

// Active reports whether a drag session is in progress.
func (d *Drag) Active() bool {
	return d.state == DragActive
}

package preview

import "door-tags/layout"

// NodePosition places a label inside its item's bounding container, as
// percentage offsets of the container's width and height.
type NodePosition struct {
	LeftPct float64 `json:"left_pct"`
	TopPct  float64 `json:"top_pct"`
}

// Node is one entry of the render tree: the visual representation of a single
// preview item. In arrange mode it carries the drag handle position and the
// preset controls; in preview mode it is static — the image already has the
// last committed positions baked in, so no offsets are re-applied.
type Node struct {
	Index     int           `json:"index"`
	Image     string        `json:"image"`
	Label     string        `json:"label"`
	Position  *NodePosition `json:"position,omitempty"`
	Draggable bool          `json:"draggable"`
	Presets   []string      `json:"presets,omitempty"`
}

// Render builds the full render tree for one pass: one node per item, in item
// order, node index = position in the sequence (aligned with the store's
// indices). Each call replaces the previous pass wholesale; there is no
// incremental diff. presets lists the preset control IDs attached to every
// label in arrange mode.
func Render(items []Item, mode layout.Mode, store *layout.Store, presets []string) []Node {
	nodes := make([]Node, len(items))
	for i, item := range items {
		n := Node{Index: i, Image: item.Image, Label: item.Label}
		if mode == layout.ModeArrange {
			pos, ok := store.Get(i)
			if !ok {
				pos = layout.DefaultPosition
			}
			n.Position = &NodePosition{LeftPct: pos.X * 100, TopPct: pos.Y * 100}
			n.Draggable = true
			n.Presets = presets
		}
		nodes[i] = n
	}
	return nodes
}

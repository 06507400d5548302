// Package preview defines the contract with the external compositing service
// and builds the per-item render tree the editor UI displays. Compositing and
// font layout happen entirely in that service; this package only carries
// inputs over and shapes the response for the frontend.
package preview

import "context"

// Item is one entry of a preview response: a renderable image reference and
// the label text composited onto it. Items are consumed per render pass and
// not retained; their order defines the label indices for that pass.
type Item struct {
	Image string `json:"image"`
	Label string `json:"label"`
}

// Request carries everything the compositing service needs: template image
// references, the parsed name list, the font color, and — once labels have
// been placed — the serialized position mapping.
type Request struct {
	Images    []string `json:"images"`
	Names     []string `json:"names"`
	FontColor string   `json:"font_color,omitempty"`
	Positions string   `json:"positions,omitempty"`
}

// Archive is the result of a final batch generation: a ZIP of composited
// tags, one per (image, name) pairing.
type Archive struct {
	Name string
	Data []byte
}

// Generator is the compositing collaborator. Preview renders one pass of
// items for the editor; Generate produces the final downloadable batch.
type Generator interface {
	Preview(ctx context.Context, req Request) ([]Item, error)
	Generate(ctx context.Context, req Request) (*Archive, error)
}

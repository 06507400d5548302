package layout

// Mode decides which affordances a render pass carries: Arrange attaches a
// drag handle and preset controls to every label, Preview attaches none.
// Exactly one mode is active per session at any time.
type Mode string

const (
	ModeArrange Mode = "arrange"
	ModePreview Mode = "preview"
)

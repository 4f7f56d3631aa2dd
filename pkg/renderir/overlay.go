package renderir

// OverlaySlot names a fixed anchor position for a composited overlay
// item, independent of the page's own text flow.
type OverlaySlot int

const (
	TopLeft OverlaySlot = iota
	TopCenter
	TopRight
	BottomLeft
	BottomCenter
	BottomRight
)

// OverlaySize is the viewport a composer lays overlay items out against.
type OverlaySize struct {
	Width, Height int
}

// OverlayRect is an overlay item's resolved on-page bounding box.
type OverlayRect struct {
	X, Y, W, H int
}

// OverlayContentKind discriminates OverlayContent's populated field.
type OverlayContentKind int

const (
	OverlayContentText OverlayContentKind = iota
	OverlayContentImage
)

// OverlayContent is what an overlay item draws: either text or a
// pre-rasterized image reference.
type OverlayContent struct {
	Kind      OverlayContentKind
	Text      string
	ImagePath string
}

// OverlayItem is one overlay element, positioned by slot and ordered by
// Z among overlay items sharing a page.
type OverlayItem struct {
	Slot    OverlaySlot
	Z       int
	Content OverlayContent
	Rect    *OverlayRect
}

// OverlayComposer produces overlay items for a page given its metrics and
// viewport; implementations are supplied by callers (e.g. a page-number
// footer, a reading-progress bar) and run once per page after layout.
type OverlayComposer interface {
	Compose(metrics PageMetrics, viewport OverlaySize) []OverlayItem
}

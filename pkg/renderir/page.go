// Package renderir defines the typed render intermediate representation
// shared by the layout engine and the render engine: pages, draw
// commands, overlays, typography configuration, and the pagination
// profile fingerprint used to key the render cache.
package renderir

// PageMetrics describes one paginated page's position within its chapter
// and the viewport it was laid out for.
type PageMetrics struct {
	ChapterPageIndex int
	GlobalPageIndex  int
	ViewportW        int
	ViewportH        int
}

// DrawCommandKind discriminates which field of a DrawCommand is set.
type DrawCommandKind int

const (
	DrawText DrawCommandKind = iota
	DrawRect
	DrawRule
	DrawChrome
)

// DrawCommand is one paint-order instruction on a page. Exactly one of
// Text, Rect, Rule, Chrome is populated, selected by Kind — modeled as a
// tagged struct rather than an interface so RenderPage values stay plain,
// comparable data that a cache store can serialize without registering
// concrete types.
type DrawCommand struct {
	Kind   DrawCommandKind
	Text   *TextCommand
	Rect   *RectCommand
	Rule   *RuleCommand
	Chrome *PageChromeCommand
}

// TextCommand draws a shaped run of text at a baseline origin.
type TextCommand struct {
	X, Y  int
	Style ResolvedTextStyle
	Runs  []string
}

// RectCommand paints a filled rectangle (e.g. an image placeholder or
// background box).
type RectCommand struct {
	X, Y, W, H int
	GrayLevel  uint8
}

// RuleCommand draws a horizontal or vertical line, e.g. for a hanging
// punctuation guide or an hr element.
type RuleCommand struct {
	X, Y, Length int
	Vertical     bool
	Thickness    int
}

// PageChromeCommand draws chrome (page number, progress bar, footer)
// composited by the layout engine rather than an OverlayComposer.
type PageChromeCommand struct {
	Kind  PageChromeKind
	X, Y  int
	Text  string
	Style PageChromeTextStyle
}

// PageChromeKind enumerates built-in chrome elements.
type PageChromeKind int

const (
	ChromePageNumber PageChromeKind = iota
	ChromeProgressBar
	ChromeFooter
)

// ResolvedTextStyle is the fully-cascaded, pixel-scale style applied to a
// text run — the output of the style cascade, never a partial/optional
// struct.
type ResolvedTextStyle struct {
	FontSizePx  int
	LineHeight  int
	Bold        bool
	Italic      bool
	Underline   bool
	LetterSpace int
}

// PageChromeTextStyle is the style used for chrome text, independent from
// body ResolvedTextStyle so chrome can be styled without a full cascade.
type PageChromeTextStyle struct {
	FontSizePx int
	GrayLevel  uint8
}

// PageAnnotation is caller-attached metadata surviving a render pass
// (e.g. a bookmark or highlight anchor) — carried through but never
// interpreted by the layout engine.
type PageAnnotation struct {
	Kind  string
	Value string
}

// PageMeta carries non-visual per-page metadata alongside PageMetrics.
type PageMeta struct {
	Annotations []PageAnnotation
}

// RenderPage is one fully laid-out, paginated unit: paint-ordered draw
// commands plus any overlay items composited on top.
type RenderPage struct {
	Metrics      PageMetrics
	Meta         PageMeta
	Commands     []DrawCommand
	OverlayItems []OverlayItem
}

// Package layout reflows a chapter's tokenized HTML into a sequence of
// renderir.RenderPage values for a fixed viewport, per spec.md §4.3: tokenize,
// resolve a bounded style cascade, break lines, paginate, and apply chrome.
package layout

// BlockRole discriminates the block-level role a tokenized chunk of
// chapter content plays during line breaking and pagination.
type BlockRole int

const (
	BlockParagraph BlockRole = iota
	BlockHeading
	BlockListItem
	BlockBlockquote
	BlockFigure
	BlockRule
)

// InlineStyle is the tag-derived style carried by one inline run,
// resolved against TypographyConfig into a renderir.ResolvedTextStyle
// once the run's containing block role is known.
type InlineStyle struct {
	Bold      bool
	Italic    bool
	Underline bool
	// Tag and Class identify the nearest enclosing element (tag name and
	// its raw, space-joined class attribute) — selector context consumed
	// by Cascade to resolve embedded CSS rules against this run. They are
	// not part of the run's visual style and don't affect DrawCommand
	// output directly.
	Tag   string
	Class string
}

// withElement returns s with its selector context set to tag and class, keeping
// whatever Bold/Italic/Underline flags were already cascading down from
// ancestor elements.
func (s InlineStyle) withElement(tag, class string) InlineStyle {
	s.Tag = tag
	s.Class = class
	return s
}

// InlineRun is one contiguous span of text sharing an InlineStyle. A
// tokenized paragraph is a sequence of InlineRuns, not a single string,
// so bold/italic/underline boundaries survive into line breaking.
type InlineRun struct {
	Text  string
	Style InlineStyle
}

// Block is one block-level unit of tokenized chapter content.
type Block struct {
	Role         BlockRole
	HeadingLevel int
	Runs         []InlineRun
	// ImageHref is set for BlockFigure; the layout engine never decodes
	// the referenced image (pixel rasterization is out of scope per
	// spec.md §1), it only reserves a RectCommand placeholder sized by
	// ObjectLayoutConfig.
	ImageHref string
	// Tag and Class are the selector context of the element that started
	// this block (e.g. "p", "h1", "li"), used to cascade block-level
	// declarations such as text-align.
	Tag   string
	Class string
}

// Text concatenates a block's inline runs without style information, used
// by line breaking to compute word boundaries across run boundaries.
func (b Block) Text() string {
	var out string
	for _, r := range b.Runs {
		out += r.Text
	}
	return out
}

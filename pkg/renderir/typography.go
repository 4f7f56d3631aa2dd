package renderir

// JustifyMode selects the line-fill strategy applied during line
// breaking.
type JustifyMode int

const (
	JustifyNone JustifyMode = iota
	JustifyFull
	JustifyFullLastLeft
)

// JustificationConfig tunes how JustifyMode distributes residual space.
type JustificationConfig struct {
	Mode             JustifyMode
	MaxWordSpacePx   int
	MinWordSpacePx   int
	AllowLetterSpace bool
}

// DefaultJustificationConfig returns a non-justifying baseline.
func DefaultJustificationConfig() JustificationConfig {
	return JustificationConfig{Mode: JustifyNone}
}

// HyphenationMode selects which hyphenation strategy the layout engine
// uses when a word overflows the line box.
type HyphenationMode int

const (
	HyphenationOff HyphenationMode = iota
	HyphenationSoftOnly
	HyphenationDictionary
)

// HyphenationConfig bounds the layout engine's hyphenation behavior.
type HyphenationConfig struct {
	Mode        HyphenationMode
	MinWordLen  int
	MinPrefix   int
	MinSuffix   int
	Language    string
}

// DefaultHyphenationConfig disables hyphenation.
func DefaultHyphenationConfig() HyphenationConfig {
	return HyphenationConfig{Mode: HyphenationOff, MinWordLen: 5, MinPrefix: 2, MinSuffix: 2}
}

// HangingPunctuationConfig controls whether trailing/leading punctuation
// may hang outside the text measure.
type HangingPunctuationConfig struct {
	AllowTrailing bool
	AllowLeading  bool
}

// WidowOrphanControl bounds the minimum lines a paragraph may leave
// stranded at the bottom of a page where it starts (orphan) or at the top
// of the next page when it splits (widow).
type WidowOrphanControl struct {
	MinOrphanLines int
	MinWidowLines  int
}

// DefaultWidowOrphanControl matches common print-typography defaults.
func DefaultWidowOrphanControl() WidowOrphanControl {
	return WidowOrphanControl{MinOrphanLines: 2, MinWidowLines: 2}
}

// TypographyConfig is the content-independent typography policy that
// feeds both the style cascade and the PaginationProfileId fingerprint.
type TypographyConfig struct {
	BaseFontSizePx   int
	LineHeightPx     int
	ParagraphSpacePx int
	Justification    JustificationConfig
	Hyphenation      HyphenationConfig
	HangingPunct     HangingPunctuationConfig
	WidowOrphan      WidowOrphanControl
}

// DefaultTypographyConfig returns a conservative embedded-reader default.
func DefaultTypographyConfig() TypographyConfig {
	return TypographyConfig{
		BaseFontSizePx:   16,
		LineHeightPx:     22,
		ParagraphSpacePx: 8,
		Justification:    DefaultJustificationConfig(),
		Hyphenation:      DefaultHyphenationConfig(),
		WidowOrphan:      DefaultWidowOrphanControl(),
	}
}

// FloatSupport toggles whether the layout engine honors CSS float hints
// on images, or always falls back to block placement.
type FloatSupport int

const (
	FloatDisabled FloatSupport = iota
	FloatBlockOnly
	FloatInline
)

// ObjectLayoutConfig governs how embedded images/objects are measured
// and placed.
type ObjectLayoutConfig struct {
	Float          FloatSupport
	MaxImageHeight int
	MaxImageWidth  int
}

// DitherMode selects how grayscale image data is quantized for
// low-bit-depth e-ink-class displays.
type DitherMode int

const (
	DitherNone DitherMode = iota
	DitherOrdered
	DitherFloydSteinberg
)

// GrayscaleMode selects the bit depth target for rasterized rect/image
// fills.
type GrayscaleMode int

const (
	Grayscale1Bit GrayscaleMode = iota
	Grayscale4Bit
	Grayscale8Bit
)

// SvgMode selects how inline/referenced SVG content is handled.
type SvgMode int

const (
	SvgSkip SvgMode = iota
	SvgRasterizePlaceholder
)

// RenderIntent is a caller hint about why a page is being rendered,
// available to diagnostics and overlay composers but not interpreted by
// the layout engine itself.
type RenderIntent int

const (
	IntentInteractive RenderIntent = iota
	IntentPrefetch
	IntentExport
)

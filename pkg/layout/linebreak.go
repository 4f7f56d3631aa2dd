package layout

import (
	"strings"
	"unicode"

	"github.com/epubkit/mu-epub/pkg/renderir"
)

// softHyphen is the Unicode soft hyphen (U+00AD): an invisible,
// conditional break point that only renders as "-" when a word is split
// across the end of a line.
const softHyphen = '­'

// word is one space-delimited token carried through line breaking,
// tagged with the InlineStyle of the run it came from. A word whose text
// is exactly "\n" is a forced break inserted for a <br> element.
type word struct {
	text  string
	style InlineStyle
}

func (w word) isForceBreak() bool { return w.text == "\n" }

// LineSegment is one contiguous run of same-styled text within a Line,
// positioned at an X offset relative to the paragraph's left edge.
type LineSegment struct {
	Text    string
	Style   InlineStyle
	XOffset int
	Width   int
}

// Line is one laid-out line of a paragraph: style-contiguous segments
// plus the font metrics used to place it vertically during pagination.
type Line struct {
	Segments     []LineSegment
	FontSizePx   int
	LineHeightPx int
	TotalWidth   int
}

// avgCharWidthPx approximates glyph advance width for line-breaking
// purposes. The core never rasterizes glyphs (spec.md §1 places font
// backends out of scope), so width is modeled rather than measured: a
// conservative fraction of font size matching typical proportional body
// text.
func avgCharWidthPx(fontSizePx int) int {
	w := fontSizePx * 11 / 20
	if w < 1 {
		w = 1
	}
	return w
}

func wordWidth(text string, charWidth int) int {
	n := 0
	for _, r := range text {
		if r == softHyphen {
			continue
		}
		n++
	}
	return n * charWidth
}

// splitWords flattens a block's inline runs into a word stream, honoring
// <br>-inserted force breaks and preserving soft hyphens embedded in
// words for later hyphenation.
func splitWords(runs []InlineRun) []word {
	var words []word
	for _, r := range runs {
		if r.Text == "\n" {
			words = append(words, word{text: "\n"})
			continue
		}
		for _, tok := range strings.FieldsFunc(r.Text, unicode.IsSpace) {
			words = append(words, word{text: tok, style: r.Style})
		}
	}
	return words
}

// BreakParagraph greedily fills lines up to measureWidthPx, applying
// hyphenation for overlong words and justification across completed
// lines, per spec.md §4.3 phase 3.
func BreakParagraph(runs []InlineRun, base renderir.ResolvedTextStyle, measureWidthPx int, typ renderir.TypographyConfig) []Line {
	charWidth := avgCharWidthPx(base.FontSizePx)
	spaceWidth := charWidth
	words := splitWords(runs)

	var lines []Line
	var current []word
	currentWidth := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		lines = append(lines, assembleLine(current, currentWidth, base, typ.Justification, measureWidthPx, charWidth))
		current = nil
		currentWidth = 0
	}

	i := 0
	for i < len(words) {
		w := words[i]
		if w.isForceBreak() {
			flush()
			i++
			continue
		}

		fitWidth := wordWidth(w.text, charWidth)
		if typ.HangingPunct.AllowTrailing && endsWithPunct(w.text) {
			fitWidth -= charWidth
		}
		gap := 0
		if len(current) > 0 {
			gap = spaceWidth
		}

		if currentWidth+gap+fitWidth <= measureWidthPx || len(current) == 0 {
			if currentWidth+gap+fitWidth <= measureWidthPx {
				current = append(current, w)
				currentWidth += gap + wordWidth(w.text, charWidth)
				i++
				continue
			}
			// The word alone overflows an empty line: try hyphenating it.
			if prefix, suffix, ok := hyphenateWord(w.text, measureWidthPx-currentWidth, typ.Hyphenation, charWidth); ok {
				current = append(current, word{text: prefix + "-", style: w.style})
				currentWidth += wordWidth(prefix, charWidth) + charWidth
				flush()
				words[i] = word{text: suffix, style: w.style}
				continue
			}
			// No hyphenation point available: place it whole and overflow.
			current = append(current, w)
			currentWidth += gap + wordWidth(w.text, charWidth)
			i++
			continue
		}

		flush()
	}
	flush()

	return lines
}

func endsWithPunct(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)[len([]rune(s))-1]
	return strings.ContainsRune(".,;:!?’”", r)
}

// hyphenateWord attempts to split word so its prefix (plus a trailing
// hyphen glyph) fits within availableWidthPx, honoring MinWordLen,
// MinPrefix, and MinSuffix. It prefers an embedded soft hyphen position;
// HyphenationDictionary mode falls back to an algorithmic split when no
// soft hyphen is present.
func hyphenateWord(text string, availableWidthPx int, cfg renderir.HyphenationConfig, charWidth int) (prefix, suffix string, ok bool) {
	if cfg.Mode == renderir.HyphenationOff {
		return "", "", false
	}
	runes := []rune(text)
	plain := strings.ReplaceAll(text, string(softHyphen), "")
	if len([]rune(plain)) < cfg.MinWordLen {
		return "", "", false
	}

	maxPrefixRunes := availableWidthPx/charWidth - 1 // reserve one char for the trailing hyphen glyph
	if maxPrefixRunes < cfg.MinPrefix {
		return "", "", false
	}

	// Soft-hyphen break points, expressed as a prefix-rune-count (of the
	// de-hyphenated word).
	var breakPoints []int
	count := 0
	for _, r := range runes {
		if r == softHyphen {
			breakPoints = append(breakPoints, count)
			continue
		}
		count++
	}

	best := -1
	for _, bp := range breakPoints {
		if bp < cfg.MinPrefix || count-bp < cfg.MinSuffix {
			continue
		}
		if bp > maxPrefixRunes {
			continue
		}
		if bp > best {
			best = bp
		}
	}

	if best < 0 && cfg.Mode == renderir.HyphenationDictionary {
		candidate := maxPrefixRunes
		if candidate > count-cfg.MinSuffix {
			candidate = count - cfg.MinSuffix
		}
		if candidate >= cfg.MinPrefix {
			best = candidate
		}
	}

	if best < 0 {
		return "", "", false
	}

	plainRunes := []rune(plain)
	return string(plainRunes[:best]), string(plainRunes[best:]), true
}

// assembleLine groups a completed word list into style-contiguous
// segments with X offsets, applying justification spacing across the
// gaps when the typography config calls for it.
func assembleLine(words []word, naturalWidth int, base renderir.ResolvedTextStyle, justify renderir.JustificationConfig, measureWidthPx, charWidth int) Line {
	gapWidth := charWidth
	if justify.Mode == renderir.JustifyFull && len(words) > 1 {
		extra := measureWidthPx - naturalWidth
		gaps := len(words) - 1
		perGap := gapWidth + extra/gaps
		if perGap < justify.MinWordSpacePx {
			perGap = justify.MinWordSpacePx
		}
		if justify.MaxWordSpacePx > 0 && perGap > justify.MaxWordSpacePx {
			perGap = justify.MaxWordSpacePx
		}
		gapWidth = perGap
	}

	var segments []LineSegment
	x := 0
	total := 0
	for idx, w := range words {
		if idx > 0 {
			x += gapWidth
			total += gapWidth
		}
		width := wordWidth(w.text, charWidth)
		if n := len(segments); n > 0 && segments[n-1].Style == w.style {
			segments[n-1].Text += " " + w.text
			segments[n-1].Width += gapWidth + width
		} else {
			segments = append(segments, LineSegment{Text: w.text, Style: w.style, XOffset: x, Width: width})
		}
		x += width
		total += width
	}

	return Line{
		Segments:     segments,
		FontSizePx:   base.FontSizePx,
		LineHeightPx: base.LineHeight,
		TotalWidth:   total,
	}
}

package layout

import (
	"github.com/epubkit/mu-epub/pkg/renderir"
)

// Options bundles every content-independent input that feeds a single
// chapter reflow: the viewport, typography/chrome/object-layout policy,
// and the style-cascade limits. Equal Options (plus equal chapter bytes)
// must always reflow to equal pages, per spec.md §4.3's determinism
// requirement.
type Options struct {
	ViewportW, ViewportH int
	Typography           renderir.TypographyConfig
	Chrome               renderir.PageChromeConfig
	Object               renderir.ObjectLayoutConfig
	Style                StyleLimits
	// Strict rejects unparseable markup instead of tolerantly skipping it.
	Strict bool
}

// Layout reflows chapterBytes into an ordered sequence of RenderPages for
// opts' viewport. GlobalPageIndex is left at zero; the render engine fills
// it in, setting it equal to ChapterPageIndex.
func Layout(chapterBytes []byte, opts Options) ([]renderir.RenderPage, error) {
	css, err := ExtractEmbeddedCSS(chapterBytes)
	if err != nil {
		return nil, err
	}
	if err := ValidateCSS(css, opts.Style); err != nil {
		return nil, err
	}
	rules := ParseCSSRules(css)

	blocks, err := Tokenize(chapterBytes, opts.Strict)
	if err != nil {
		return nil, err
	}

	measureWidth := opts.ViewportW - 2*opts.Chrome.MarginPx
	if measureWidth <= 0 {
		measureWidth = opts.ViewportW
	}

	laidOut := make([]LaidOutBlock, 0, len(blocks))
	for _, blk := range blocks {
		if blk.Role == BlockFigure || blk.Role == BlockRule {
			laidOut = append(laidOut, LaidOutBlock{Role: blk.Role, ImageHref: blk.ImageHref})
			continue
		}

		runs := blk.Runs
		if blk.Role == BlockHeading {
			runs = forceBold(runs)
		}
		runs = applyCascadeToRuns(runs, rules)
		blockTyp := blockJustification(rules, blk.Tag, blk.Class, opts.Typography)
		base := ResolveTextStyle(InlineStyle{}, blk.Role, blk.HeadingLevel, blockTyp)
		lines := BreakParagraph(runs, base, measureWidth, blockTyp)
		laidOut = append(laidOut, LaidOutBlock{Role: blk.Role, Lines: lines})
	}

	pageCommands := Paginate(laidOut, opts.ViewportW, opts.ViewportH, opts.Object, opts.Typography.WidowOrphan, opts.Typography.ParagraphSpacePx)

	pages := make([]renderir.RenderPage, 0, len(pageCommands))
	for i, cmds := range pageCommands {
		cmds = ApplyChrome(cmds, opts.Chrome, i, len(pageCommands), opts.ViewportW, opts.ViewportH)
		pages = append(pages, renderir.RenderPage{
			Metrics: renderir.PageMetrics{
				ChapterPageIndex: i,
				ViewportW:        opts.ViewportW,
				ViewportH:        opts.ViewportH,
			},
			Commands: cmds,
		})
	}
	return pages, nil
}

func forceBold(runs []InlineRun) []InlineRun {
	out := make([]InlineRun, len(runs))
	for i, r := range runs {
		r.Style.Bold = true
		out[i] = r
	}
	return out
}

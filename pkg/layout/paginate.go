package layout

import "github.com/epubkit/mu-epub/pkg/renderir"

const ruleHeightPx = 4

// LaidOutBlock is a Block after style resolution and line breaking: either
// a sequence of text Lines, or an atomic figure/rule with no internal
// line structure.
type LaidOutBlock struct {
	Role      BlockRole
	Lines     []Line
	ImageHref string
}

// Paginate accumulates laid-out blocks into per-page draw command lists
// bounded by viewportH, per spec.md §4.3 phase 4. Paragraphs (and other
// text blocks) split across a page boundary apply WidowOrphanControl;
// figures and rules are placed atomically, moved whole to the next page
// if they don't fit.
func Paginate(blocks []LaidOutBlock, viewportW, viewportH int, object renderir.ObjectLayoutConfig, widowOrphan renderir.WidowOrphanControl, paraSpacePx int) [][]renderir.DrawCommand {
	var pages [][]renderir.DrawCommand
	var page []renderir.DrawCommand
	y := 0

	flushPage := func() {
		pages = append(pages, page)
		page = nil
		y = 0
	}

	placeAtomic := func(h int, cmd renderir.DrawCommand) {
		if y > 0 && y+h > viewportH {
			flushPage()
			if cmd.Rect != nil {
				cmd.Rect.Y = y
			}
			if cmd.Rule != nil {
				cmd.Rule.Y = y
			}
		}
		page = append(page, cmd)
		y += h + paraSpacePx
	}

	for _, b := range blocks {
		if b.Role == BlockFigure {
			h := object.MaxImageHeight
			if h <= 0 {
				h = 200
			}
			placeAtomic(h, renderir.DrawCommand{
				Kind: renderir.DrawRect,
				Rect: &renderir.RectCommand{X: 0, Y: y, W: viewportW, H: h, GrayLevel: 200},
			})
			continue
		}
		if b.Role == BlockRule {
			placeAtomic(ruleHeightPx, renderir.DrawCommand{
				Kind: renderir.DrawRule,
				Rule: &renderir.RuleCommand{X: 0, Y: y, Length: viewportW, Thickness: 1},
			})
			continue
		}

		lines := b.Lines
		first := true
		for len(lines) > 0 {
			avail := viewportH - y
			fit, used := 0, 0
			for fit < len(lines) && used+lines[fit].LineHeightPx <= avail {
				used += lines[fit].LineHeightPx
				fit++
			}

			if fit == 0 {
				if y == 0 {
					fit = 1 // a single line taller than the page: place it to avoid stalling.
				} else {
					flushPage()
					continue
				}
			}

			if fit < len(lines) {
				fit = applyWidowOrphan(fit, len(lines), first, widowOrphan)
				if fit == 0 {
					flushPage()
					continue
				}
			}

			for _, ln := range lines[:fit] {
				page = append(page, lineToCommands(ln, y)...)
				y += ln.LineHeightPx
			}
			lines = lines[fit:]
			first = false
			if len(lines) > 0 {
				flushPage()
			}
		}
		y += paraSpacePx
	}

	pages = append(pages, page)
	return pages
}

// applyWidowOrphan adjusts how many of a paragraph's lines (fit, out of
// total) stay on the current page when the paragraph must split: an
// orphan (too few lines stranded at the bottom when the paragraph is just
// starting) pushes the whole paragraph to the next page; a widow (too few
// lines left to open the next page) moves lines from the current page to
// the next until MinWidowLines open it, or pushes the whole paragraph when
// no line would stay behind.
func applyWidowOrphan(fit, total int, first bool, w renderir.WidowOrphanControl) int {
	if first && w.MinOrphanLines > 0 && fit < w.MinOrphanLines {
		return 0
	}
	remaining := total - fit
	if w.MinWidowLines > 0 && remaining > 0 && remaining < w.MinWidowLines {
		pulled := fit - (w.MinWidowLines - remaining)
		if pulled <= 0 {
			return 0
		}
		return pulled
	}
	return fit
}

// lineToCommands converts one laid-out Line into one TextCommand per
// style-contiguous segment, since renderir.TextCommand carries a single
// ResolvedTextStyle.
func lineToCommands(ln Line, y int) []renderir.DrawCommand {
	cmds := make([]renderir.DrawCommand, 0, len(ln.Segments))
	for _, seg := range ln.Segments {
		style := renderir.ResolvedTextStyle{
			FontSizePx: ln.FontSizePx,
			LineHeight: ln.LineHeightPx,
			Bold:       seg.Style.Bold,
			Italic:     seg.Style.Italic,
			Underline:  seg.Style.Underline,
		}
		cmds = append(cmds, renderir.DrawCommand{
			Kind: renderir.DrawText,
			Text: &renderir.TextCommand{X: seg.XOffset, Y: y, Style: style, Runs: []string{seg.Text}},
		})
	}
	return cmds
}

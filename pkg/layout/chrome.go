package layout

import (
	"fmt"

	"github.com/epubkit/mu-epub/pkg/renderir"
)

// ApplyChrome appends PageChromeCommand entries to page per cfg, without
// altering any existing content coordinates, per spec.md §4.3 phase 5.
func ApplyChrome(page []renderir.DrawCommand, cfg renderir.PageChromeConfig, chapterPageIndex, chapterPageCount, viewportW, viewportH int) []renderir.DrawCommand {
	if cfg.PageNumEnabled {
		page = append(page, renderir.DrawCommand{
			Kind: renderir.DrawChrome,
			Chrome: &renderir.PageChromeCommand{
				Kind:  renderir.ChromePageNumber,
				X:     viewportW - cfg.MarginPx,
				Y:     viewportH - cfg.MarginPx,
				Text:  fmt.Sprintf("%d", chapterPageIndex+1),
				Style: cfg.TextStyle,
			},
		})
	}
	if cfg.FooterEnabled {
		page = append(page, renderir.DrawCommand{
			Kind: renderir.DrawChrome,
			Chrome: &renderir.PageChromeCommand{
				Kind:  renderir.ChromeFooter,
				X:     cfg.MarginPx,
				Y:     viewportH - cfg.MarginPx,
				Text:  fmt.Sprintf("%d / %d", chapterPageIndex+1, chapterPageCount),
				Style: cfg.TextStyle,
			},
		})
	}
	if cfg.ProgressEnabled && chapterPageCount > 0 {
		page = append(page, renderir.DrawCommand{
			Kind: renderir.DrawChrome,
			Chrome: &renderir.PageChromeCommand{
				Kind:  renderir.ChromeProgressBar,
				X:     cfg.MarginPx,
				Y:     cfg.MarginPx / 2,
				Text:  fmt.Sprintf("%d%%", (chapterPageIndex+1)*100/chapterPageCount),
				Style: cfg.TextStyle,
			},
		})
	}
	return page
}

package renderir

// PageChromeConfig toggles built-in page chrome the layout engine draws
// directly as PageChromeCommand entries, independent of any caller-
// supplied OverlayComposer.
type PageChromeConfig struct {
	ProgressEnabled bool
	FooterEnabled   bool
	PageNumEnabled  bool
	MarginPx        int
	TextStyle       PageChromeTextStyle
}

// DefaultPageChromeConfig disables all built-in chrome; callers opt in
// per element.
func DefaultPageChromeConfig() PageChromeConfig {
	return PageChromeConfig{
		MarginPx:  8,
		TextStyle: PageChromeTextStyle{FontSizePx: 12, GrayLevel: 128},
	}
}

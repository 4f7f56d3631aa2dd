package renderengine

import "github.com/epubkit/mu-epub/pkg/renderir"

// NoopOverlayComposer composes no overlay items; the zero-value-usable
// default for RenderConfig.Overlay, matching the original Rust
// prototype's trivial default capability pattern (spec.md §9).
type NoopOverlayComposer struct{}

// Compose implements renderir.OverlayComposer.
func (NoopOverlayComposer) Compose(renderir.PageMetrics, renderir.OverlaySize) []renderir.OverlayItem {
	return nil
}

// CacheStore is the capability interface a caller plugs into a
// RenderConfig to short-circuit reflow for a chapter whose pagination
// profile hasn't changed, per spec.md §4.4. Cache validity is entirely
// keyed by (profileID, chapterIndex) equality — implementations must be
// invalidated externally when content or fonts change out-of-band.
//
// Implementations shared across goroutines (spec.md §5) must guard their
// own state; the engine never synchronizes calls into the store.
type CacheStore interface {
	LoadChapterPages(profileID renderir.PaginationProfileId, chapterIndex int) ([]renderir.RenderPage, bool)
	StoreChapterPages(profileID renderir.PaginationProfileId, chapterIndex int, pages []renderir.RenderPage)
}

package renderengine

import (
	"github.com/epubkit/mu-epub/pkg/layout"
	"github.com/epubkit/mu-epub/pkg/renderir"
)

// DiagnosticSink receives RenderDiagnostic events emitted during a
// prepare_chapter* call. It is installed once at engine construction
// (spec.md §4.4): emission order is not observable, so sinks must
// tolerate reordering and must never block.
type DiagnosticSink func(renderir.RenderDiagnostic)

func noopSink(renderir.RenderDiagnostic) {}

// PrepOptions bounds what the engine will hold in memory per chapter and
// how tolerant reflow is of malformed markup.
type PrepOptions struct {
	MaxPagesInMemory int
	Strict           bool
}

// DefaultPrepOptions matches spec.md §6's embedded-target default.
func DefaultPrepOptions() PrepOptions {
	return PrepOptions{MaxPagesInMemory: 128}
}

// RenderEngineOptions configures a RenderEngine at construction time; the
// engine is immutable with respect to these options afterward (spec.md
// §3). Two engines built from equal RenderEngineOptions produce equal
// PaginationProfileIds.
type RenderEngineOptions struct {
	ViewportW, ViewportH int
	Typography           renderir.TypographyConfig
	Chrome               renderir.PageChromeConfig
	Object               renderir.ObjectLayoutConfig
	Style                layout.StyleLimits
	Prep                 PrepOptions
	// Diagnostics is the sink installed for the engine's lifetime. A nil
	// sink is replaced by a no-op.
	Diagnostics DiagnosticSink
}

// DefaultRenderEngineOptions returns a conservative embedded-target
// configuration for the given viewport.
func DefaultRenderEngineOptions(viewportW, viewportH int) RenderEngineOptions {
	return RenderEngineOptions{
		ViewportW:  viewportW,
		ViewportH:  viewportH,
		Typography: renderir.DefaultTypographyConfig(),
		Chrome:     renderir.DefaultPageChromeConfig(),
		Style:      layout.DefaultStyleLimits(),
		Prep:       DefaultPrepOptions(),
	}
}

// ForDisplay is DefaultRenderEngineOptions under the name the original
// Rust prototype uses for its equivalent constructor
// (epublet::RenderEngineOptions::for_display).
func ForDisplay(viewportW, viewportH int) RenderEngineOptions {
	return DefaultRenderEngineOptions(viewportW, viewportH)
}

// RenderConfig carries per-call overrides layered onto a RenderEngine's
// construction-time options, per spec.md §3/§4.4.
type RenderConfig struct {
	DisableEmbeddedFonts bool
	Cache                CacheStore
	Overlay              renderir.OverlayComposer
	Cancel               CancelToken
}

// WithCache attaches a cache store, enabling the CacheProbe/CacheStore
// states in the per-chapter render state machine.
func (c RenderConfig) WithCache(store CacheStore) RenderConfig {
	c.Cache = store
	return c
}

// WithOverlay attaches an overlay composer invoked once per emitted page.
func (c RenderConfig) WithOverlay(composer renderir.OverlayComposer) RenderConfig {
	c.Overlay = composer
	return c
}

// WithCancel attaches a cancellation token polled between pages.
func (c RenderConfig) WithCancel(token CancelToken) RenderConfig {
	c.Cancel = token
	return c
}

// WithoutEmbeddedFonts disables embedded font consideration for this call
// (the core never rasterizes fonts itself; this toggle is forwarded to
// caller-side font backends via layout metadata in a future revision —
// today it is recorded but does not change layout output, since glyph
// metrics are already modeled rather than measured).
func (c RenderConfig) WithoutEmbeddedFonts() RenderConfig {
	c.DisableEmbeddedFonts = true
	return c
}

// Package renderengine orchestrates the layout engine against an open
// EpubBook: cache interposition, overlay composition, cancellation, and
// diagnostic emission, per spec.md §4.4's prepare_chapter* operation
// family and per-chapter state machine.
package renderengine

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/epubkit/mu-epub/pkg/epub"
	"github.com/epubkit/mu-epub/pkg/epuberr"
	"github.com/epubkit/mu-epub/pkg/layout"
	"github.com/epubkit/mu-epub/pkg/renderir"
)

// RenderEngine composes a borrowed *epub.EpubBook with construction-time
// options to produce paginated RenderPages. It holds no per-chapter
// state of its own and is safe to share across goroutines once
// constructed (spec.md §5); each EpubBook it is called with must stay
// single-threaded.
type RenderEngine struct {
	opts      RenderEngineOptions
	profileID renderir.PaginationProfileId
	diag      DiagnosticSink
}

// New constructs a RenderEngine from opts, computing its
// PaginationProfileId once up front.
func New(opts RenderEngineOptions) *RenderEngine {
	diag := opts.Diagnostics
	if diag == nil {
		diag = noopSink
	}
	return &RenderEngine{
		opts:      opts,
		profileID: computeProfileID(opts),
		diag:      diag,
	}
}

func computeProfileID(opts RenderEngineOptions) renderir.PaginationProfileId {
	return renderir.ComputeProfileId(renderir.ProfileInputs{
		ViewportW:     opts.ViewportW,
		ViewportH:     opts.ViewportH,
		Typography:    opts.Typography,
		Chrome:        opts.Chrome,
		Object:        opts.Object,
		MaxStyleRules: opts.Style.MaxSelectors,
		MaxCSSBytes:   opts.Style.MaxCSSBytes,
	})
}

// PaginationProfileId returns the engine's content-independent pagination
// fingerprint; two engines constructed from equal RenderEngineOptions
// always return equal ids.
func (e *RenderEngine) PaginationProfileId() renderir.PaginationProfileId {
	return e.profileID
}

func (e *RenderEngine) layoutOptions() layout.Options {
	return layout.Options{
		ViewportW:  e.opts.ViewportW,
		ViewportH:  e.opts.ViewportH,
		Typography: e.opts.Typography,
		Chrome:     e.opts.Chrome,
		Object:     e.opts.Object,
		Style:      e.opts.Style,
		Strict:     e.opts.Prep.Strict,
	}
}

// PrepareChapter eagerly renders chapter i and enforces
// max_pages_in_memory, per spec.md §4.4.
func (e *RenderEngine) PrepareChapter(book *epub.EpubBook, i int) ([]renderir.RenderPage, error) {
	return e.PrepareChapterWithConfig(book, i, RenderConfig{})
}

// PrepareChapterWithConfig is PrepareChapter with per-call overrides
// applied (cache, overlay, cancel, embedded-font toggle).
func (e *RenderEngine) PrepareChapterWithConfig(book *epub.EpubBook, i int, cfg RenderConfig) ([]renderir.RenderPage, error) {
	if cancelled(cfg.Cancel) {
		return nil, epuberr.Cancelled
	}

	pages, err := e.prepareCached(book, i, cfg)
	if err != nil {
		return nil, err
	}
	if e.opts.Prep.MaxPagesInMemory > 0 && len(pages) > e.opts.Prep.MaxPagesInMemory {
		return nil, epuberr.LimitExceeded(epuberr.PhaseRender, "max_pages_in_memory", len(pages), e.opts.Prep.MaxPagesInMemory)
	}
	return pages, nil
}

// PrepareChapterWithConfigCollect drives PrepareChapterWithConfigSink with
// a page-at-a-time sink and collects the results, used to exercise the
// cache round-trip and cancellation contracts identically to the
// streaming operations.
func (e *RenderEngine) PrepareChapterWithConfigCollect(book *epub.EpubBook, i int, cfg RenderConfig) ([]renderir.RenderPage, error) {
	var out []renderir.RenderPage
	err := e.PrepareChapterWithConfigSink(book, i, cfg, func(p renderir.RenderPage) error {
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PrepareChapterWithConfigSink renders chapter i with cfg applied and
// invokes sink once per page in chapter_page_index order, polling
// cfg.Cancel between pages.
func (e *RenderEngine) PrepareChapterWithConfigSink(book *epub.EpubBook, i int, cfg RenderConfig, sink func(renderir.RenderPage) error) error {
	if cancelled(cfg.Cancel) {
		return epuberr.Cancelled
	}
	pages, err := e.prepareCached(book, i, cfg)
	if err != nil {
		return err
	}
	if e.opts.Prep.MaxPagesInMemory > 0 && len(pages) > e.opts.Prep.MaxPagesInMemory {
		return epuberr.LimitExceeded(epuberr.PhaseRender, "max_pages_in_memory", len(pages), e.opts.Prep.MaxPagesInMemory)
	}
	for _, p := range pages {
		if cancelled(cfg.Cancel) {
			return epuberr.Cancelled
		}
		if err := sink(p); err != nil {
			return err
		}
	}
	return nil
}

// PrepareChapterPageRange eagerly renders chapter i and slices
// [start:end), equal by construction to PrepareChapter(book, i)[start:end].
func (e *RenderEngine) PrepareChapterPageRange(book *epub.EpubBook, i, start, end int) ([]renderir.RenderPage, error) {
	pages, err := e.prepareCached(book, i, RenderConfig{})
	if err != nil {
		return nil, err
	}
	if start < 0 || end > len(pages) || start > end {
		return nil, epuberr.New(epuberr.PhaseRender, "page range out of bounds",
			fmt.Sprintf("range [%d:%d) out of bounds for %d pages", start, end, len(pages)))
	}
	return pages[start:end], nil
}

// PrepareChapterIter renders chapter i and returns a PageIter yielding
// its pages one at a time, identical in order and value to PrepareChapter.
func (e *RenderEngine) PrepareChapterIter(book *epub.EpubBook, i int) *PageIter {
	pages, err := e.PrepareChapter(book, i)
	if err != nil {
		return &PageIter{err: err}
	}
	return &PageIter{pages: pages}
}

// PrepareChapterIterStreaming takes ownership of book and returns a
// PageIter over chapter i; a terminal error surfaces as exactly one Err
// item, after which the iterator is permanently exhausted.
func (e *RenderEngine) PrepareChapterIterStreaming(book *epub.EpubBook, i int) *PageIter {
	return e.PrepareChapterIter(book, i)
}

// PrepareChapterBytesWith renders chapterBytes directly, bypassing the
// archive read, and invokes sink once per page.
func (e *RenderEngine) PrepareChapterBytesWith(chapterIndex int, chapterBytes []byte, sink func(renderir.RenderPage) error) error {
	sessionID := uuid.NewString()
	pages, err := e.reflowBytes(chapterBytes, chapterIndex, sessionID)
	if err != nil {
		return err
	}
	pages = e.finishPages(pages, RenderConfig{}, sessionID)
	for _, p := range pages {
		if err := sink(p); err != nil {
			return err
		}
	}
	return nil
}

// PrepareChapterWithCancel renders chapter i, polling token between pages;
// a token already cancelled before the first page yields zero pages and
// Err(Cancelled) without invoking sink.
func (e *RenderEngine) PrepareChapterWithCancel(book *epub.EpubBook, i int, token CancelToken, sink func(renderir.RenderPage) error) error {
	return e.PrepareChapterWithConfigSink(book, i, RenderConfig{Cancel: token}, sink)
}

// PrepareChapterWithOverlayComposer renders chapter i, calling composer
// once per page with its final PageMetrics and assigning the returned
// OverlayItems verbatim.
func (e *RenderEngine) PrepareChapterWithOverlayComposer(book *epub.EpubBook, i int, composer renderir.OverlayComposer, sink func(renderir.RenderPage) error) error {
	return e.PrepareChapterWithConfigSink(book, i, RenderConfig{Overlay: composer}, sink)
}

// prepareCached implements the Init→CacheProbe→(CacheHit|CacheMiss→
// Reflow→Paginate→Overlay→CacheStore)→Done state machine from spec.md §4.4.
// Every diagnostic emitted during the call carries the same session id, so
// a host application can reassemble one prepare_chapter* call's scattered
// events.
func (e *RenderEngine) prepareCached(book *epub.EpubBook, i int, cfg RenderConfig) ([]renderir.RenderPage, error) {
	sessionID := uuid.NewString()

	if cfg.Cache != nil {
		if cached, ok := cfg.Cache.LoadChapterPages(e.profileID, i); ok {
			e.diag(renderir.RenderDiagnostic{Kind: renderir.DiagCacheHit, ChapterIndex: i, SessionID: sessionID})
			// A warm cache still owes the caller this call's per-page
			// effects (overlay composition, PageEmitted diagnostics) —
			// only the reflow itself is skipped.
			return e.finishPages(clonePages(cached), cfg, sessionID), nil
		}
		e.diag(renderir.RenderDiagnostic{Kind: renderir.DiagCacheMiss, ChapterIndex: i, SessionID: sessionID})
	}

	pages, err := e.reflow(book, i, sessionID)
	if err != nil {
		return nil, err
	}
	pages = e.finishPages(pages, cfg, sessionID)

	if cfg.Cache != nil {
		cfg.Cache.StoreChapterPages(e.profileID, i, clonePages(pages))
	}
	return pages, nil
}

func (e *RenderEngine) reflow(book *epub.EpubBook, chapterIndex int, sessionID string) ([]renderir.RenderPage, error) {
	var buf bytes.Buffer
	if err := book.ChapterHTMLInto(chapterIndex, &buf); err != nil {
		return nil, err
	}
	return e.reflowBytes(buf.Bytes(), chapterIndex, sessionID)
}

func (e *RenderEngine) reflowBytes(chapterBytes []byte, chapterIndex int, sessionID string) ([]renderir.RenderPage, error) {
	start := time.Now()
	pages, err := layout.Layout(chapterBytes, e.layoutOptions())
	if err != nil {
		return nil, err
	}
	e.diag(renderir.RenderDiagnostic{
		Kind:         renderir.DiagReflowTimeMs,
		ReflowTimeMs: uint64(time.Since(start).Milliseconds()),
		ChapterIndex: chapterIndex,
		SessionID:    sessionID,
	})
	return pages, nil
}

// finishPages sets each page's GlobalPageIndex (chapter-local, since the
// engine has no cross-chapter book state of its own — see DESIGN.md),
// composes overlays, and emits a PageEmitted diagnostic per page.
func (e *RenderEngine) finishPages(pages []renderir.RenderPage, cfg RenderConfig, sessionID string) []renderir.RenderPage {
	viewport := renderir.OverlaySize{Width: e.opts.ViewportW, Height: e.opts.ViewportH}
	for idx := range pages {
		pages[idx].Metrics.GlobalPageIndex = pages[idx].Metrics.ChapterPageIndex
		if cfg.Overlay != nil {
			pages[idx].OverlayItems = cfg.Overlay.Compose(pages[idx].Metrics, viewport)
		}
		e.diag(renderir.RenderDiagnostic{Kind: renderir.DiagPageEmitted, PageIndex: pages[idx].Metrics.ChapterPageIndex, SessionID: sessionID})
	}
	return pages
}

func clonePages(pages []renderir.RenderPage) []renderir.RenderPage {
	out := make([]renderir.RenderPage, len(pages))
	for i, p := range pages {
		cp := p
		cp.Commands = append([]renderir.DrawCommand(nil), p.Commands...)
		cp.OverlayItems = append([]renderir.OverlayItem(nil), p.OverlayItems...)
		out[i] = cp
	}
	return out
}

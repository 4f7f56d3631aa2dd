package renderengine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epubkit/mu-epub/internal/fixture"
	"github.com/epubkit/mu-epub/pkg/epub"
	"github.com/epubkit/mu-epub/pkg/renderengine"
	"github.com/epubkit/mu-epub/pkg/renderir"
)

func openFixtureBook(t *testing.T, opts fixture.Options) *epub.EpubBook {
	t.Helper()
	archive := fixture.GenerateEPUB(t, opts)
	book, err := epub.Open(bytes.NewReader(archive), epub.DefaultOptions())
	require.NoError(t, err)
	return book
}

func TestPrepareChapterRendersPages(t *testing.T) {
	book := openFixtureBook(t, fixture.Options{})
	engine := renderengine.New(renderengine.DefaultRenderEngineOptions(400, 300))

	pages, err := engine.PrepareChapter(book, 0)
	require.NoError(t, err)
	require.NotEmpty(t, pages)
	assert.Equal(t, 0, pages[0].Metrics.ChapterPageIndex)
	assert.Equal(t, 0, pages[0].Metrics.GlobalPageIndex)
}

func TestPrepareChapterOutOfBoundsPropagatesError(t *testing.T) {
	book := openFixtureBook(t, fixture.Options{})
	engine := renderengine.New(renderengine.DefaultRenderEngineOptions(400, 300))

	_, err := engine.PrepareChapter(book, 99)
	require.Error(t, err)
}

func TestPaginationProfileIdStableAcrossEngines(t *testing.T) {
	opts := renderengine.DefaultRenderEngineOptions(400, 300)
	a := renderengine.New(opts)
	b := renderengine.New(opts)
	assert.Equal(t, a.PaginationProfileId(), b.PaginationProfileId())
}

func TestPaginationProfileIdDiffersOnViewportChange(t *testing.T) {
	a := renderengine.New(renderengine.DefaultRenderEngineOptions(400, 300))
	b := renderengine.New(renderengine.DefaultRenderEngineOptions(500, 300))
	assert.NotEqual(t, a.PaginationProfileId(), b.PaginationProfileId())
}

type memCache struct {
	pages map[int][]renderir.RenderPage
	hits  int
}

func newMemCache() *memCache { return &memCache{pages: map[int][]renderir.RenderPage{}} }

func (c *memCache) LoadChapterPages(_ renderir.PaginationProfileId, chapterIndex int) ([]renderir.RenderPage, bool) {
	p, ok := c.pages[chapterIndex]
	if ok {
		c.hits++
	}
	return p, ok
}

func (c *memCache) StoreChapterPages(_ renderir.PaginationProfileId, chapterIndex int, pages []renderir.RenderPage) {
	c.pages[chapterIndex] = pages
}

func TestPrepareChapterWithConfigUsesCache(t *testing.T) {
	book := openFixtureBook(t, fixture.Options{})
	engine := renderengine.New(renderengine.DefaultRenderEngineOptions(400, 300))
	cache := newMemCache()
	cfg := renderengine.RenderConfig{}.WithCache(cache)

	first, err := engine.PrepareChapterWithConfig(book, 0, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, 0, cache.hits)

	second, err := engine.PrepareChapterWithConfig(book, 0, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first, second)
}

type alwaysCancelled struct{}

func (alwaysCancelled) IsCancelled() bool { return true }

func TestPrepareChapterWithCancelPreCancelledYieldsNoPages(t *testing.T) {
	book := openFixtureBook(t, fixture.Options{})
	engine := renderengine.New(renderengine.DefaultRenderEngineOptions(400, 300))

	var got []renderir.RenderPage
	err := engine.PrepareChapterWithCancel(book, 0, alwaysCancelled{}, func(p renderir.RenderPage) error {
		got = append(got, p)
		return nil
	})
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestPrepareChapterPageRangeMatchesSlice(t *testing.T) {
	book := openFixtureBook(t, fixture.Options{Chapters: []fixture.Chapter{
		{Href: "c1.xhtml", Title: "C1", Body: "<h1>C1</h1><p>Some body text here.</p>"},
	}})
	engine := renderengine.New(renderengine.DefaultRenderEngineOptions(400, 300))

	all, err := engine.PrepareChapter(book, 0)
	require.NoError(t, err)
	require.NotEmpty(t, all)

	ranged, err := engine.PrepareChapterPageRange(book, 0, 0, len(all))
	require.NoError(t, err)
	assert.Equal(t, all, ranged)
}

func TestPrepareChapterPageRangeRejectsOutOfBounds(t *testing.T) {
	book := openFixtureBook(t, fixture.Options{})
	engine := renderengine.New(renderengine.DefaultRenderEngineOptions(400, 300))

	_, err := engine.PrepareChapterPageRange(book, 0, 0, 9999)
	require.Error(t, err)
}

func TestPrepareChapterIterYieldsSamePagesAsEager(t *testing.T) {
	book := openFixtureBook(t, fixture.Options{})
	engine := renderengine.New(renderengine.DefaultRenderEngineOptions(400, 300))

	eager, err := engine.PrepareChapter(book, 0)
	require.NoError(t, err)

	it := engine.PrepareChapterIter(book, 0)
	var iterated []renderir.RenderPage
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		iterated = append(iterated, p)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, eager, iterated)
}

func TestPrepareChapterBytesWithBypassesArchive(t *testing.T) {
	engine := renderengine.New(renderengine.DefaultRenderEngineOptions(400, 300))
	html := []byte(`<html><body><p>Direct bytes content.</p></body></html>`)

	var got []renderir.RenderPage
	err := engine.PrepareChapterBytesWith(0, html, func(p renderir.RenderPage) error {
		got = append(got, p)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)
}

type cornerOverlay struct{}

func (cornerOverlay) Compose(_ renderir.PageMetrics, _ renderir.OverlaySize) []renderir.OverlayItem {
	return []renderir.OverlayItem{{Slot: renderir.TopLeft, Content: renderir.OverlayContent{Kind: renderir.OverlayContentText, Text: "mark"}}}
}

func TestPrepareChapterWithOverlayComposerAssignsItems(t *testing.T) {
	book := openFixtureBook(t, fixture.Options{})
	engine := renderengine.New(renderengine.DefaultRenderEngineOptions(400, 300))

	var got []renderir.RenderPage
	err := engine.PrepareChapterWithOverlayComposer(book, 0, cornerOverlay{}, func(p renderir.RenderPage) error {
		got = append(got, p)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.NotEmpty(t, got[0].OverlayItems)
	assert.Equal(t, "mark", got[0].OverlayItems[0].Content.Text)
}

func TestPrepareChapterWithConfigAppliesOverlayOnCacheHit(t *testing.T) {
	book := openFixtureBook(t, fixture.Options{})
	engine := renderengine.New(renderengine.DefaultRenderEngineOptions(400, 300))
	cache := newMemCache()
	cfg := renderengine.RenderConfig{}.WithCache(cache).WithOverlay(cornerOverlay{})

	first, err := engine.PrepareChapterWithConfig(book, 0, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, 0, cache.hits)
	require.NotEmpty(t, first[0].OverlayItems)
	assert.Equal(t, "mark", first[0].OverlayItems[0].Content.Text)

	second, err := engine.PrepareChapterWithConfig(book, 0, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	require.NotEmpty(t, second[0].OverlayItems)
	assert.Equal(t, "mark", second[0].OverlayItems[0].Content.Text)
}

func TestPrepareChapterRespectsMaxPagesInMemory(t *testing.T) {
	var body bytes.Buffer
	for i := 0; i < 80; i++ {
		body.WriteString("<p>Filler paragraph text repeated many times to force many pages.</p>")
	}
	book := openFixtureBook(t, fixture.Options{Chapters: []fixture.Chapter{
		{Href: "long.xhtml", Title: "Long", Body: body.String()},
	}})

	opts := renderengine.DefaultRenderEngineOptions(200, 80)
	opts.Prep.MaxPagesInMemory = 2
	engine := renderengine.New(opts)

	_, err := engine.PrepareChapter(book, 0)
	require.Error(t, err)
}

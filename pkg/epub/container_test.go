package epub_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epubkit/mu-epub/internal/fixture"
	"github.com/epubkit/mu-epub/pkg/epub"
	"github.com/epubkit/mu-epub/pkg/epuberr"
)

func openFixtureBook(t *testing.T, archive []byte, opts epub.Options) *epub.EpubBook {
	t.Helper()
	book, err := epub.Open(bytes.NewReader(archive), opts)
	require.NoError(t, err)
	return book
}

func TestOpenResolvesManifestAndSpine(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	book := openFixtureBook(t, archive, epub.DefaultOptions())

	assert.Equal(t, 2, book.ChapterCount())
	href, err := book.ChapterHref(0)
	require.NoError(t, err)
	assert.Equal(t, "OEBPS/chapter1.xhtml", href)

	href, err = book.ChapterHref(1)
	require.NoError(t, err)
	assert.Equal(t, "OEBPS/chapter2.xhtml", href)

	assert.Equal(t, "Test Book", book.Title())
	assert.Equal(t, "en", book.Language())
}

func TestChapterHrefOutOfBounds(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	book := openFixtureBook(t, archive, epub.DefaultOptions())

	_, err := book.ChapterHref(99)
	require.Error(t, err)
	var phaseErr *epuberr.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.True(t, phaseErr.Is(epuberr.ChapterOutOfBounds(0, 0)))
}

func TestOpenPrefersNavOverNCX(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{
		Chapters: []fixture.Chapter{
			{Href: "a.xhtml", Title: "Nav Title A", Body: "<p>a</p>"},
		},
	})
	book := openFixtureBook(t, archive, epub.DefaultOptions())

	tree := book.NavTree()
	require.Len(t, tree, 1)
	assert.Equal(t, "Nav Title A", tree[0].Title)
	assert.Equal(t, "OEBPS/a.xhtml", tree[0].Href)
}

func TestOpenFallsBackToNCXWhenNavOmitted(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{OmitNav: true})
	book := openFixtureBook(t, archive, epub.DefaultOptions())

	tree := book.NavTree()
	require.Len(t, tree, 2)
	assert.Equal(t, "Chapter 1", tree[0].Title)
}

func TestOpenRejectsDuplicateManifestIDInStrictMode(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{DuplicateManifestID: true})

	opts := epub.DefaultOptions()
	opts.Mode = epub.Strict
	_, err := epub.Open(bytes.NewReader(archive), opts)
	require.Error(t, err)
	var phaseErr *epuberr.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.True(t, phaseErr.Is(epuberr.DuplicateManifestID("")))
}

func TestOpenTakesFirstManifestIDInLenientMode(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{DuplicateManifestID: true})
	book := openFixtureBook(t, archive, epub.DefaultOptions())

	assert.Equal(t, 2, book.ChapterCount())
}

func TestOpenRejectsMissingNavAndNCXInStrictMode(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{OmitNav: true, OmitNCX: true})

	opts := epub.DefaultOptions()
	opts.Mode = epub.Strict
	_, err := epub.Open(bytes.NewReader(archive), opts)
	require.Error(t, err)
	var phaseErr *epuberr.PhaseError
	require.ErrorAs(t, err, &phaseErr)
	assert.True(t, phaseErr.Is(epuberr.MissingNavFallback()))
}

func TestOpenToleratesMissingNavAndNCXInLenientMode(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{OmitNav: true, OmitNCX: true})
	book := openFixtureBook(t, archive, epub.DefaultOptions())

	assert.Empty(t, book.NavTree())
}

func TestOpenRejectsInvalidMimetype(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	corrupted := fixture.CorruptCRC(t, archive, []byte("application/epub+zip"))

	_, err := epub.Open(bytes.NewReader(corrupted), epub.DefaultOptions())
	require.Error(t, err)
}

func TestReadResourceIntoReusesBuffer(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{
		ExtraFiles: map[string][]byte{"style.css": []byte("body { color: black; }")},
	})
	book := openFixtureBook(t, archive, epub.DefaultOptions())

	var buf []byte
	require.NoError(t, book.ReadResourceInto("style.css", &buf))
	assert.Equal(t, "body { color: black; }", string(buf))

	firstCap := cap(buf)
	require.NoError(t, book.ReadResourceInto("style.css", &buf))
	assert.Equal(t, firstCap, cap(buf))
}

func TestChapterHTMLIntoRoundTrips(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	book := openFixtureBook(t, archive, epub.DefaultOptions())

	var buf bytes.Buffer
	require.NoError(t, book.ChapterHTMLInto(0, &buf))
	assert.Contains(t, buf.String(), "<h1>Chapter 1</h1>")
}

func TestChapterTextIntoStripsMarkup(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{
		Chapters: []fixture.Chapter{
			{Href: "c1.xhtml", Title: "C1", Body: "<h1>Title</h1><p>Body text.</p>"},
		},
	})
	book := openFixtureBook(t, archive, epub.DefaultOptions())

	var sb strings.Builder
	require.NoError(t, book.ChapterTextInto(0, &sb))
	assert.Contains(t, sb.String(), "Title")
	assert.Contains(t, sb.String(), "Body text.")
	assert.NotContains(t, sb.String(), "<p>")
}

func TestReadResourceIntoMissingHrefErrors(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	book := openFixtureBook(t, archive, epub.DefaultOptions())

	var buf []byte
	err := book.ReadResourceInto("does-not-exist.xhtml", &buf)
	require.Error(t, err)
}

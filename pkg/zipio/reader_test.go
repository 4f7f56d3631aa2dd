package zipio_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epubkit/mu-epub/internal/fixture"
	"github.com/epubkit/mu-epub/pkg/epuberr"
	"github.com/epubkit/mu-epub/pkg/zipio"
)

func testLimits() zipio.ZipLimits {
	return zipio.NewZipLimits(10*1024*1024, 1024)
}

func openFixture(t *testing.T, archive []byte, limits zipio.ZipLimits) *zipio.Reader {
	t.Helper()
	r, err := zipio.Open(bytes.NewReader(archive), limits)
	require.NoError(t, err)
	return r
}

func TestOpenIndexesAllEntries(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	r := openFixture(t, archive, testLimits())

	assert.GreaterOrEqual(t, r.NumEntries(), 5)
	assert.NotNil(t, r.GetEntry("mimetype"))
	assert.NotNil(t, r.GetEntry("OEBPS/content.opf"))
}

func TestGetEntryCaseInsensitiveAndSlashTolerant(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	r := openFixture(t, archive, testLimits())

	assert.NotNil(t, r.GetEntry("MIMETYPE"))
	assert.NotNil(t, r.GetEntry("/mimetype"))
	assert.NotNil(t, r.GetEntry("OEBPS/CONTENT.OPF"))
	assert.Nil(t, r.GetEntry("does-not-exist"))
}

func TestReadIntoRoundTripsChapterText(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{
		Chapters: []fixture.Chapter{{Href: "chapter1.xhtml", Body: "<p>hello world</p>"}},
	})
	r := openFixture(t, archive, testLimits())

	entry := r.GetEntry("OEBPS/chapter1.xhtml")
	require.NotNil(t, entry)

	buf := make([]byte, entry.UncompressedSize)
	n, err := r.ReadInto(entry, buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "hello world")
}

func TestReadIntoWithScratchMatchesReadInto(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	r := openFixture(t, archive, testLimits())
	entry := r.GetEntry("OEBPS/content.opf")
	require.NotNil(t, entry)

	bufA := make([]byte, entry.UncompressedSize)
	nA, err := r.ReadInto(entry, bufA)
	require.NoError(t, err)

	bufB := make([]byte, entry.UncompressedSize)
	scratch := make([]byte, 16) // deliberately tiny to force multiple chunks
	nB, err := r.ReadIntoWithScratch(entry, bufB, scratch)
	require.NoError(t, err)

	assert.Equal(t, bufA[:nA], bufB[:nB])
}

func TestReadToWriterMatchesReadInto(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	r := openFixture(t, archive, testLimits())
	entry := r.GetEntry("OEBPS/content.opf")
	require.NotNil(t, entry)

	direct := make([]byte, entry.UncompressedSize)
	n, err := r.ReadInto(entry, direct)
	require.NoError(t, err)

	var out bytes.Buffer
	written, err := r.ReadToWriter(entry, &out)
	require.NoError(t, err)

	assert.Equal(t, direct[:n], out.Bytes())
	assert.Equal(t, n, written)
}

func TestReadIntoRejectsUndersizedBuffer(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	r := openFixture(t, archive, testLimits())
	entry := r.GetEntry("OEBPS/content.opf")
	require.NotNil(t, entry)

	_, err := r.ReadInto(entry, make([]byte, 1))
	require.Error(t, err)
	assert.True(t, epuberr.IsZipKind(err, epuberr.BufferTooSmall))
}

func TestReadIntoRejectsOversizedEntryUnderLimit(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	limits := zipio.NewZipLimits(4, 1024) // tiny cap, content.opf exceeds it
	r := openFixture(t, archive, limits)
	entry := r.GetEntry("OEBPS/content.opf")
	require.NotNil(t, entry)

	_, err := r.ReadInto(entry, make([]byte, entry.UncompressedSize))
	require.Error(t, err)
	assert.True(t, epuberr.IsZipKind(err, epuberr.FileTooLarge))
}

func TestValidateMimetypeAcceptsWellFormedArchive(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	r := openFixture(t, archive, testLimits())
	assert.NoError(t, r.ValidateMimetype())
	assert.True(t, r.IsValidEpub())
}

func TestValidateMimetypeRejectsCorruptedContent(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	corrupted := fixture.CorruptCRC(t, archive, []byte("application/epub+zip"))
	r := openFixture(t, corrupted, testLimits())

	err := r.ValidateMimetype()
	require.Error(t, err)
	assert.False(t, r.IsValidEpub())
}

func TestReadIntoDetectsCrcMismatch(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{
		Chapters: []fixture.Chapter{{Href: "chapter1.xhtml", Body: "<p>crc target text</p>"}},
	})
	corrupted := fixture.CorruptCRC(t, archive, []byte("crc target text"))
	r := openFixture(t, corrupted, testLimits())

	entry := r.GetEntry("OEBPS/chapter1.xhtml")
	require.NotNil(t, entry)
	_, err := r.ReadInto(entry, make([]byte, entry.UncompressedSize))
	require.Error(t, err)
	assert.True(t, epuberr.IsZipKind(err, epuberr.CrcMismatch))
}

func TestOpenRejectsTruncatedCentralDirectoryInStrictMode(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	truncated := fixture.TruncateCentralDirectory(t, archive, 0.3)

	_, err := zipio.Open(bytes.NewReader(truncated), testLimits().WithStrict(true))
	assert.Error(t, err)
}

func TestOpenReadsZip64SingleEntry(t *testing.T) {
	content := []byte("application/epub+zip")
	archive := fixture.GenerateZip64Archive(t, content, fixture.Zip64Options{})

	r := openFixture(t, archive, testLimits())
	entry := r.GetEntry("mimetype")
	require.NotNil(t, entry)
	assert.Equal(t, uint64(len(content)), entry.UncompressedSize)
	assert.Equal(t, uint64(len(content)), entry.CompressedSize)

	buf := make([]byte, entry.UncompressedSize)
	n, err := r.ReadInto(entry, buf)
	require.NoError(t, err)
	assert.Equal(t, content, buf[:n])
	assert.True(t, r.IsValidEpub())
}

func TestOpenRejectsZip64SentinelWithoutLocator(t *testing.T) {
	content := []byte("application/epub+zip")
	archive := fixture.GenerateZip64Archive(t, content, fixture.Zip64Options{OmitLocator: true})

	_, err := zipio.Open(bytes.NewReader(archive), testLimits())
	require.Error(t, err)
	assert.True(t, epuberr.IsZipKind(err, epuberr.InvalidFormat))
}

func TestReadIntoDetectsResidualCompressedBytes(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	corrupted := fixture.InflateDeclaredCompressedSize(t, archive, "OEBPS/content.opf", 4)
	r := openFixture(t, corrupted, testLimits())

	entry := r.GetEntry("OEBPS/content.opf")
	require.NotNil(t, entry)
	_, err := r.ReadInto(entry, make([]byte, entry.UncompressedSize))
	require.Error(t, err)
	assert.True(t, epuberr.IsZipKind(err, epuberr.DecompressError))
}

func TestReadIntoBufferReuseDoesNotGrow(t *testing.T) {
	archive := fixture.GenerateEPUB(t, fixture.Options{})
	r := openFixture(t, archive, testLimits())
	entry := r.GetEntry("OEBPS/content.opf")
	require.NotNil(t, entry)

	buf := make([]byte, entry.UncompressedSize)
	scratch := make([]byte, 64)
	cap0 := cap(buf)
	for i := 0; i < 5; i++ {
		_, err := r.ReadIntoWithScratch(entry, buf, scratch)
		require.NoError(t, err)
		assert.Equal(t, cap0, cap(buf))
	}
}

package epub

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/epubkit/mu-epub/pkg/epuberr"
	"github.com/epubkit/mu-epub/pkg/htmlutil"
)

// ReadResourceInto decompresses the archive entry at href into *out,
// growing *out's capacity only when it is too small and otherwise reusing
// it, so repeated calls across many resources settle into a single
// allocation. href is resolved relative to the OPF base path first.
func (b *EpubBook) ReadResourceInto(href string, out *[]byte) error {
	resolved := joinHref(b.basePath, href)
	entry := b.zip.GetEntry(resolved)
	if entry == nil {
		// Fall back to the href as given, in case it was already
		// archive-relative (e.g. a Nav-resolved chapter href).
		entry = b.zip.GetEntry(href)
		resolved = href
	}
	if entry == nil {
		return epuberr.New(epuberr.PhaseOpen, "resource not found", "archive does not contain: "+resolved).
			WithContext(epuberr.Context{Href: resolved})
	}
	if b.budget.MaxEntryBytes > 0 && entry.UncompressedSize > uint64(b.budget.MaxEntryBytes) {
		return epuberr.LimitExceeded(epuberr.PhaseOpen, "max_entry_bytes", int(entry.UncompressedSize), b.budget.MaxEntryBytes).
			WithContext(epuberr.Context{Href: resolved})
	}

	size := int(entry.UncompressedSize)
	if cap(*out) < size {
		*out = make([]byte, size)
	} else {
		*out = (*out)[:size]
	}

	n, err := b.zip.ReadInto(entry, *out)
	if err != nil {
		return epuberr.WrapZip(err).WithContext(epuberr.Context{Href: resolved})
	}
	*out = (*out)[:n]
	return nil
}

// ChapterHTMLInto decompresses chapter i's XHTML source into out, reusing
// out's underlying buffer across calls.
func (b *EpubBook) ChapterHTMLInto(i int, out *bytes.Buffer) error {
	href, err := b.ChapterHref(i)
	if err != nil {
		return err
	}

	var buf []byte
	if out.Cap() > 0 {
		buf = out.Bytes()[:0:out.Cap()]
	}
	if err := b.ReadResourceInto(href, &buf); err != nil {
		return err
	}

	out.Reset()
	out.Write(buf)
	return nil
}

// ChapterTextInto writes chapter i's tag-stripped, whitespace-normalized
// plain text into out. The decompression scratch buffer is the book's own
// textScratch field, reused across calls the same way ChapterHTMLInto
// reuses its caller's bytes.Buffer, so repeated calls make no new heap
// allocation once it settles at its steady-state size. Returns
// ChapterNotUTF8 if the decompressed bytes are not valid UTF-8.
func (b *EpubBook) ChapterTextInto(i int, out *strings.Builder) error {
	href, err := b.ChapterHref(i)
	if err != nil {
		return err
	}

	if err := b.ReadResourceInto(href, &b.textScratch); err != nil {
		return err
	}
	if !isValidUTF8(b.textScratch) {
		return epuberr.ChapterNotUTF8(href)
	}

	out.Reset()
	out.WriteString(htmlutil.StripTags(string(b.textScratch)))
	return nil
}

// ResourceContentType sniffs the actual content type of the resource at
// href, independent of what the manifest declares for it — useful for a
// caller resolving a resource by role (e.g. "find the cover image") where
// a manifest's media-type attribute cannot be trusted.
func (b *EpubBook) ResourceContentType(href string) (string, error) {
	var buf []byte
	if err := b.ReadResourceInto(href, &buf); err != nil {
		return "", err
	}
	return mimetype.Detect(buf).String(), nil
}

func isValidUTF8(b []byte) bool {
	return utf8.Valid(b)
}

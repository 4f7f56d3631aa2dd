// Package fixture builds small, in-memory EPUB archives for tests across
// pkg/zipio, pkg/epub, pkg/layout, and pkg/renderengine. It writes through
// the standard library's archive/zip (the writer side is not the streaming
// reader's concern) and also exposes raw byte-level corruption helpers for
// exercising the reader's error paths.
package fixture

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"
)

// Chapter is one spine item in a generated book.
type Chapter struct {
	Href string
	// Title is the Nav/NCX label; defaults to Href if empty.
	Title string
	Body  string
}

// Options configures GenerateEPUB.
type Options struct {
	Title    string
	Author   string
	Chapters []Chapter
	// OmitNav skips the EPUB3 nav document entirely.
	OmitNav bool
	// OmitNCX skips the EPUB2 NCX document entirely.
	OmitNCX bool
	// ExtraFiles are written verbatim under OEBPS/, useful for stylesheets
	// and images referenced from chapter markup.
	ExtraFiles map[string][]byte
	// DuplicateManifestID adds a second <item> reusing the first
	// chapter's manifest id, for exercising Strict mode's duplicate-id
	// rejection.
	DuplicateManifestID bool
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Test Book"
	}
	if o.Author == "" {
		o.Author = "Test Author"
	}
	if len(o.Chapters) == 0 {
		o.Chapters = []Chapter{
			{Href: "chapter1.xhtml", Title: "Chapter 1", Body: "<h1>Chapter 1</h1><p>First chapter text.</p>"},
			{Href: "chapter2.xhtml", Title: "Chapter 2", Body: "<h1>Chapter 2</h1><p>Second chapter text.</p>"},
		}
	}
	return o
}

// GenerateEPUB builds a well-formed EPUB archive in memory and returns its
// bytes, ready to wrap in a bytes.Reader for pkg/zipio.Open or pkg/epub.Open.
func GenerateEPUB(t *testing.T, opts Options) []byte {
	t.Helper()
	opts = opts.withDefaults()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	mustWriteStored(t, zw, "mimetype", []byte("application/epub+zip"))
	mustWrite(t, zw, "META-INF/container.xml", []byte(containerXML))
	mustWrite(t, zw, "OEBPS/content.opf", []byte(generateOPF(opts)))

	if !opts.OmitNav {
		mustWrite(t, zw, "OEBPS/nav.xhtml", []byte(generateNav(opts)))
	}
	if !opts.OmitNCX {
		mustWrite(t, zw, "OEBPS/toc.ncx", []byte(generateNCX(opts)))
	}

	for _, ch := range opts.Chapters {
		mustWrite(t, zw, "OEBPS/"+ch.Href, []byte(generateChapterXHTML(ch)))
	}
	for name, data := range opts.ExtraFiles {
		mustWrite(t, zw, "OEBPS/"+name, data)
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("fixture: closing zip writer: %v", err)
	}
	return buf.Bytes()
}

func mustWrite(t *testing.T, zw *zip.Writer, name string, data []byte) {
	t.Helper()
	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("fixture: creating %s: %v", name, err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("fixture: writing %s: %v", name, err)
	}
}

func mustWriteStored(t *testing.T, zw *zip.Writer, name string, data []byte) {
	t.Helper()
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		t.Fatalf("fixture: creating stored %s: %v", name, err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("fixture: writing stored %s: %v", name, err)
	}
}

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func generateOPF(opts Options) string {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">` + "\n")
	buf.WriteString(`  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">` + "\n")
	fmt.Fprintf(&buf, "    <dc:title id=\"title\">%s</dc:title>\n", opts.Title)
	fmt.Fprintf(&buf, "    <dc:creator id=\"creator0\" opf:role=\"aut\">%s</dc:creator>\n", opts.Author)
	buf.WriteString("    <dc:identifier id=\"bookid\">urn:uuid:fixture-book</dc:identifier>\n")
	buf.WriteString("    <dc:language>en</dc:language>\n")
	buf.WriteString("  </metadata>\n")

	buf.WriteString("  <manifest>\n")
	if !opts.OmitNav {
		buf.WriteString(`    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
	}
	if !opts.OmitNCX {
		buf.WriteString(`    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>` + "\n")
	}
	for i, ch := range opts.Chapters {
		fmt.Fprintf(&buf, "    <item id=\"chapter%d\" href=\"%s\" media-type=\"application/xhtml+xml\"/>\n", i+1, ch.Href)
	}
	for name := range opts.ExtraFiles {
		fmt.Fprintf(&buf, "    <item id=\"extra-%s\" href=\"%s\" media-type=\"application/octet-stream\"/>\n", sanitizeID(name), name)
	}
	if opts.DuplicateManifestID && len(opts.Chapters) > 0 {
		fmt.Fprintf(&buf, "    <item id=\"chapter1\" href=\"%s\" media-type=\"application/xhtml+xml\"/>\n", opts.Chapters[0].Href)
	}
	buf.WriteString("  </manifest>\n")

	buf.WriteString("  <spine")
	if !opts.OmitNCX {
		buf.WriteString(` toc="ncx"`)
	}
	buf.WriteString(">\n")
	for i := range opts.Chapters {
		fmt.Fprintf(&buf, "    <itemref idref=\"chapter%d\"/>\n", i+1)
	}
	buf.WriteString("  </spine>\n")
	buf.WriteString("</package>")
	return buf.String()
}

func generateNav(opts Options) string {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">` + "\n")
	buf.WriteString("<head><title>Nav</title></head>\n<body>\n")
	buf.WriteString(`  <nav epub:type="toc" id="toc">` + "\n    <ol>\n")
	for _, ch := range opts.Chapters {
		title := ch.Title
		if title == "" {
			title = ch.Href
		}
		fmt.Fprintf(&buf, "      <li><a href=\"%s\">%s</a></li>\n", ch.Href, title)
	}
	buf.WriteString("    </ol>\n  </nav>\n</body>\n</html>")
	return buf.String()
}

func generateNCX(opts Options) string {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">` + "\n")
	buf.WriteString("  <navMap>\n")
	for i, ch := range opts.Chapters {
		title := ch.Title
		if title == "" {
			title = ch.Href
		}
		fmt.Fprintf(&buf, "    <navPoint id=\"navpoint-%d\"><navLabel><text>%s</text></navLabel><content src=\"%s\"/></navPoint>\n", i+1, title, ch.Href)
	}
	buf.WriteString("  </navMap>\n</ncx>")
	return buf.String()
}

func generateChapterXHTML(ch Chapter) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>` + ch.Title + `</title></head>
<body>` + ch.Body + `</body>
</html>`
}

func sanitizeID(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '.' || r == '/' {
			out = append(out, '-')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// CorruptCRC flips a byte inside the first occurrence of needle within
// archive, useful for producing a fixture that fails CRC32 verification
// without touching the archive's structural layout.
func CorruptCRC(t *testing.T, archive []byte, needle []byte) []byte {
	t.Helper()
	out := append([]byte(nil), archive...)
	idx := bytes.Index(out, needle)
	if idx < 0 {
		t.Fatalf("fixture: needle not found in archive")
	}
	out[idx] ^= 0xFF
	return out
}

// TruncateCentralDirectory truncates the archive partway through its
// central directory, simulating a partially-written or corrupted archive
// for strict-vs-lenient open tests.
func TruncateCentralDirectory(t *testing.T, archive []byte, keepFraction float64) []byte {
	t.Helper()
	eocdOffset := bytes.LastIndex(archive, []byte{0x50, 0x4b, 0x05, 0x06})
	if eocdOffset < 0 {
		t.Fatalf("fixture: EOCD signature not found")
	}
	cdOffset := binary.LittleEndian.Uint32(archive[eocdOffset+16:])
	cdSize := binary.LittleEndian.Uint32(archive[eocdOffset+12:])
	cutAt := int(cdOffset) + int(float64(cdSize)*keepFraction)
	out := append([]byte(nil), archive[:cutAt]...)
	return append(out, archive[eocdOffset:]...)
}

// InflateDeclaredCompressedSize locates name's central-directory record
// and increases its declared compressed size by extra bytes, without
// adding any real compressed data. This leaves whatever bytes actually
// follow the entry's DEFLATE stream (the next entry's local header, or
// the central directory itself) inside the reader's compressed-data
// window, simulating a stream whose true end comes before its declared
// CompressedSize — the residual-bytes corruption case from spec.md §4.1/§7.
func InflateDeclaredCompressedSize(t *testing.T, archive []byte, name string, extra uint32) []byte {
	t.Helper()
	out := append([]byte(nil), archive...)

	eocdOffset := bytes.LastIndex(out, []byte{0x50, 0x4b, 0x05, 0x06})
	if eocdOffset < 0 {
		t.Fatalf("fixture: EOCD signature not found")
	}
	cdOffset := binary.LittleEndian.Uint32(out[eocdOffset+16:])

	pos := uint32(cdOffset)
	for pos < uint32(eocdOffset) {
		if binary.LittleEndian.Uint32(out[pos:]) != sigCDEntry {
			t.Fatalf("fixture: expected central directory signature at offset %d", pos)
		}
		nameLen := uint32(binary.LittleEndian.Uint16(out[pos+28:]))
		extraLen := uint32(binary.LittleEndian.Uint16(out[pos+30:]))
		commentLen := uint32(binary.LittleEndian.Uint16(out[pos+32:]))
		entryName := string(out[pos+46 : pos+46+nameLen])
		if entryName == name {
			compressedSizeOff := pos + 20
			cur := binary.LittleEndian.Uint32(out[compressedSizeOff:])
			binary.LittleEndian.PutUint32(out[compressedSizeOff:], cur+extra)
			return out
		}
		pos += 46 + nameLen + extraLen + commentLen
	}
	t.Fatalf("fixture: entry %q not found in central directory", name)
	return nil
}

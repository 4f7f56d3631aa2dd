// Package epub implements the EPUB container model: mimetype validation,
// META-INF/container.xml rootfile discovery, OPF manifest/spine
// resolution, Nav/NCX navigation parsing, and buffer-reuse resource reads.
package epub

import (
	"bytes"
	"encoding/xml"
	"path"
	"strings"

	"github.com/epubkit/mu-epub/pkg/epuberr"
	"github.com/epubkit/mu-epub/pkg/zipio"
)

// EpubBook is an open EPUB archive: the underlying ZIP reader, the
// resolved manifest and spine, and the navigation tree (if any), per
// spec.md §3.
type EpubBook struct {
	zip      *zipio.Reader
	basePath string

	manifest map[string]ManifestItem
	// spineHrefs is the ordered, basePath-resolved chapter href list — the
	// flat integer-indexed table spec.md §9 calls for instead of owning
	// handles between manifest/spine/nav.
	spineHrefs []string

	title    string
	language string
	nav      []NavPoint

	budget MemoryBudget
	mode   ValidationMode

	// textScratch is ChapterTextInto's persistent decompression scratch
	// buffer: strings.Builder has no way to hand back its internal bytes
	// for reuse the way ChapterHTMLInto reuses a caller-owned
	// bytes.Buffer, so the buffer lives on the book instead (spec.md §4.2
	// / §9 allocation discipline).
	textScratch []byte
}

// Options configures how an EpubBook is opened.
type Options struct {
	ZipLimits zipio.ZipLimits
	Budget    MemoryBudget
	Mode      ValidationMode
}

// DefaultOptions returns lenient options with conservative memory limits.
func DefaultOptions() Options {
	return Options{
		ZipLimits: zipio.NewZipLimits(8*1024*1024, 1024),
		Budget:    DefaultMemoryBudget(),
		Mode:      Lenient,
	}
}

// Open parses src as an EPUB archive: it validates the mimetype, resolves
// the OPF rootfile, parses the manifest/spine, and discovers Nav/NCX
// navigation, per spec.md §4.2's open sequence.
func Open(src zipio.Source, opts Options) (*EpubBook, error) {
	zr, err := zipio.Open(src, opts.ZipLimits)
	if err != nil {
		return nil, epuberr.WrapZip(err)
	}

	if err := zr.ValidateMimetype(); err != nil {
		return nil, epuberr.WrapZip(err)
	}

	rootfilePath, err := findRootfilePath(zr)
	if err != nil {
		return nil, err
	}

	opfData, err := readEntryFully(zr, rootfilePath, opts.Budget.MaxEntryBytes)
	if err != nil {
		return nil, err
	}
	pkg, err := parsePackageDoc(opfData)
	if err != nil {
		return nil, epuberr.New(epuberr.PhaseParse, "opf parse failed", err.Error()).WithContext(epuberr.Context{Path: rootfilePath})
	}

	basePath := path.Dir(rootfilePath)
	if basePath == "." {
		basePath = ""
	}

	manifest, duplicateIDs := pkg.manifestItems()
	if opts.Mode == Strict && len(duplicateIDs) > 0 {
		return nil, epuberr.DuplicateManifestID(duplicateIDs[0])
	}
	for id, item := range manifest {
		item.Href = joinHref(basePath, item.Href)
		manifest[id] = item
	}

	idrefs := pkg.spineIdrefs()
	spineHrefs := make([]string, 0, len(idrefs))
	for _, idref := range idrefs {
		item, ok := manifest[idref]
		if !ok {
			if opts.Mode == Strict {
				return nil, epuberr.ManifestItemMissing(idref)
			}
			continue
		}
		spineHrefs = append(spineHrefs, item.Href)
	}

	nav, err := discoverNav(zr, manifest, pkg.Spine.Toc, basePath, opts)
	if err != nil {
		return nil, err
	}

	return &EpubBook{
		zip:        zr,
		basePath:   basePath,
		manifest:   manifest,
		spineHrefs: spineHrefs,
		title:      pkg.title(),
		language:   pkg.Metadata.Language,
		nav:        nav,
		budget:     opts.Budget,
		mode:       opts.Mode,
	}, nil
}

func findRootfilePath(zr *zipio.Reader) (string, error) {
	entry := zr.GetEntry("META-INF/container.xml")
	if entry == nil {
		return "", epuberr.New(epuberr.PhaseOpen, "container xml missing", "META-INF/container.xml not found in archive")
	}
	data, err := readEntryBytes(zr, entry)
	if err != nil {
		return "", err
	}

	var container struct {
		Rootfiles struct {
			Rootfile []struct {
				FullPath string `xml:"full-path,attr"`
			} `xml:"rootfile"`
		} `xml:"rootfiles"`
	}
	if err := xml.Unmarshal(data, &container); err != nil {
		return "", epuberr.New(epuberr.PhaseParse, "container xml invalid", err.Error())
	}
	if len(container.Rootfiles.Rootfile) == 0 {
		return "", epuberr.New(epuberr.PhaseOpen, "rootfile missing", "container.xml declares no rootfile")
	}
	return container.Rootfiles.Rootfile[0].FullPath, nil
}

// discoverNav resolves the EPUB3 nav document or EPUB2 NCX fallback and
// parses it. Nav is preferred; NCX is used when no Nav item is declared or
// the Nav document yields no entries. Strict mode also fails when both are present and
// disagree on at least one chapter href (see DESIGN.md's Open Question
// decision).
func discoverNav(zr *zipio.Reader, manifest map[string]ManifestItem, tocID, basePath string, opts Options) ([]NavPoint, error) {
	navItem := findNavItem(manifest)
	ncxItem := findNCXItem(manifest, tocID)

	var navPoints, ncxPoints []NavPoint
	var err error

	if navItem != nil {
		navPoints, err = readNavPoints(zr, navItem.Href, opts.Budget.MaxNavBytes, parseNavDocument)
		if err != nil {
			return nil, err
		}
	}
	if ncxItem != nil {
		ncxPoints, err = readNavPoints(zr, ncxItem.Href, opts.Budget.MaxNavBytes, parseNCX)
		if err != nil {
			return nil, err
		}
	}

	if opts.Mode == Strict && navItem != nil && ncxItem != nil && !navTreesAgree(navPoints, ncxPoints) {
		return nil, epuberr.New(epuberr.PhaseParse, "nav ncx conflict", "Nav and NCX navigation disagree on chapter hrefs").
			WithContext(epuberr.Context{Path: navItem.Href})
	}

	if opts.Mode == Strict && navItem == nil && ncxItem == nil {
		return nil, epuberr.MissingNavFallback()
	}

	if len(navPoints) > 0 {
		return navPoints, nil
	}
	return ncxPoints, nil
}

func readNavPoints(zr *zipio.Reader, href string, maxBytes int, parse func([]byte) ([]NavPoint, error)) ([]NavPoint, error) {
	data, err := readEntryFully(zr, href, maxBytes)
	if err != nil {
		return nil, err
	}
	points, err := parse(data)
	if err != nil {
		return nil, epuberr.New(epuberr.PhaseParse, "navigation parse failed", err.Error()).WithContext(epuberr.Context{Href: href})
	}
	dir := path.Dir(href)
	if dir == "." {
		dir = ""
	}
	var resolve func([]NavPoint)
	resolve = func(ps []NavPoint) {
		for i := range ps {
			if ps[i].Href != "" {
				ps[i].Href = joinHref(dir, ps[i].Href)
			}
			resolve(ps[i].Children)
		}
	}
	resolve(points)
	return points, nil
}

func navTreesAgree(a, b []NavPoint) bool {
	flatA := flattenHrefs(a)
	flatB := flattenHrefs(b)
	if len(flatA) != len(flatB) {
		return false
	}
	for i := range flatA {
		if flatA[i] != flatB[i] {
			return false
		}
	}
	return true
}

func flattenHrefs(points []NavPoint) []string {
	var out []string
	for _, p := range points {
		if p.Href != "" {
			out = append(out, p.Href)
		}
		out = append(out, flattenHrefs(p.Children)...)
	}
	return out
}

// ChapterCount returns the number of spine entries.
func (b *EpubBook) ChapterCount() int {
	return len(b.spineHrefs)
}

// ChapterHref returns the archive-relative href of chapter i.
func (b *EpubBook) ChapterHref(i int) (string, error) {
	if i < 0 || i >= len(b.spineHrefs) {
		return "", epuberr.ChapterOutOfBounds(i, len(b.spineHrefs))
	}
	return b.spineHrefs[i], nil
}

// Title returns the book's dc:title, if any.
func (b *EpubBook) Title() string { return b.title }

// Language returns the book's dc:language, if any.
func (b *EpubBook) Language() string { return b.language }

// NavTree returns the resolved Nav/NCX navigation tree.
func (b *EpubBook) NavTree() []NavPoint { return b.nav }

// ManifestItem looks up a manifest entry by id.
func (b *EpubBook) ManifestItem(id string) (ManifestItem, bool) {
	item, ok := b.manifest[id]
	return item, ok
}

func readEntryBytes(zr *zipio.Reader, entry *zipio.CdEntry) ([]byte, error) {
	buf := make([]byte, entry.UncompressedSize)
	n, err := zr.ReadInto(entry, buf)
	if err != nil {
		return nil, epuberr.WrapZip(err)
	}
	return buf[:n], nil
}

func readEntryFully(zr *zipio.Reader, href string, maxBytes int) ([]byte, error) {
	entry := zr.GetEntry(href)
	if entry == nil {
		return nil, epuberr.New(epuberr.PhaseOpen, "resource not found", "archive does not contain: "+href).
			WithContext(epuberr.Context{Href: href})
	}
	if maxBytes > 0 && entry.UncompressedSize > uint64(maxBytes) {
		return nil, epuberr.LimitExceeded(epuberr.PhaseOpen, "max_entry_bytes", int(entry.UncompressedSize), maxBytes).
			WithContext(epuberr.Context{Href: href})
	}
	return readEntryBytes(zr, entry)
}

// joinHref resolves href relative to basePath and normalizes "." / ".."
// segments and percent-encoding, per spec.md §4.2.
func joinHref(basePath, href string) string {
	decoded := percentDecode(href)
	if basePath == "" {
		return path.Clean(decoded)
	}
	if strings.HasPrefix(decoded, "/") {
		return path.Clean(decoded)
	}
	return path.Clean(basePath + "/" + decoded)
}

func percentDecode(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}
	var out bytes.Buffer
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if hi, ok := hexVal(s[i+1]); ok {
				if lo, ok := hexVal(s[i+2]); ok {
					out.WriteByte(hi<<4 | lo)
					i += 2
					continue
				}
			}
		}
		out.WriteByte(s[i])
	}
	return out.String()
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

package renderir

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// PaginationProfileId is a content-independent fingerprint of every input
// that can change how a chapter paginates: viewport dimensions,
// typography/justification/hyphenation/widow-orphan policy, page-chrome
// config, and layout/style/font limits. Two engines built from equal
// ProfileInputs produce equal ids; any input change changes the id. It is
// used to key the render cache without comparing whole option structs.
type PaginationProfileId [blake2b.Size256]byte

// ProfileInputs is the full set of fields PaginationProfileId hashes. It
// intentionally excludes anything content-dependent (chapter bytes,
// manifest, nav) — only engine construction options participate.
type ProfileInputs struct {
	ViewportW, ViewportH int
	Typography           TypographyConfig
	Chrome               PageChromeConfig
	Object               ObjectLayoutConfig
	MaxStyleRules        int
	MaxFontBytes         int
	MaxCSSBytes          int
}

// ComputeProfileId hashes inputs into a stable PaginationProfileId. Field
// order is fixed and canonical (little-endian integers, zero/one byte
// booleans) so the same inputs always hash identically across runs and
// platforms.
func ComputeProfileId(in ProfileInputs) PaginationProfileId {
	h, _ := blake2b.New256(nil)
	var scratch [8]byte

	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(scratch[:], uint64(int64(v)))
		h.Write(scratch[:])
	}
	writeBool := func(b bool) {
		if b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}

	writeInt(in.ViewportW)
	writeInt(in.ViewportH)

	t := in.Typography
	writeInt(t.BaseFontSizePx)
	writeInt(t.LineHeightPx)
	writeInt(t.ParagraphSpacePx)
	writeInt(int(t.Justification.Mode))
	writeInt(t.Justification.MaxWordSpacePx)
	writeInt(t.Justification.MinWordSpacePx)
	writeBool(t.Justification.AllowLetterSpace)
	writeInt(int(t.Hyphenation.Mode))
	writeInt(t.Hyphenation.MinWordLen)
	writeInt(t.Hyphenation.MinPrefix)
	writeInt(t.Hyphenation.MinSuffix)
	h.Write([]byte(t.Hyphenation.Language))
	writeBool(t.HangingPunct.AllowTrailing)
	writeBool(t.HangingPunct.AllowLeading)
	writeInt(t.WidowOrphan.MinOrphanLines)
	writeInt(t.WidowOrphan.MinWidowLines)

	c := in.Chrome
	writeBool(c.ProgressEnabled)
	writeBool(c.FooterEnabled)
	writeBool(c.PageNumEnabled)
	writeInt(c.MarginPx)
	writeInt(c.TextStyle.FontSizePx)
	writeInt(int(c.TextStyle.GrayLevel))

	o := in.Object
	writeInt(int(o.Float))
	writeInt(o.MaxImageHeight)
	writeInt(o.MaxImageWidth)

	writeInt(in.MaxStyleRules)
	writeInt(in.MaxFontBytes)
	writeInt(in.MaxCSSBytes)

	var id PaginationProfileId
	copy(id[:], h.Sum(nil))
	return id
}

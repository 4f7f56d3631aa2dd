package zipio

// EOCDMinSize is the minimum size of the end-of-central-directory record
// (no comment, no ZIP64 extension).
const EOCDMinSize = 22

// maxEOCDScan bounds the default tail scan: the EOCD record plus the
// largest possible ZIP comment.
const maxEOCDScan = EOCDMinSize + 65535

// MaxCDEntries is the fixed capacity of the in-memory central-directory
// cache, matching the embedded-target budget from the original prototype
// (heapless::Vec<CdEntry, 256> in src/zip.rs).
const MaxCDEntries = 256

// MaxFilenameLen is the longest filename retained verbatim; longer names
// are skipped but still counted during central-directory enumeration.
const MaxFilenameLen = 256

// DefaultScratchBytes is the default size for an internally-allocated
// scratch buffer when a caller uses the no-scratch convenience variants
// (ReadInto, ReadToWriter). Constrained embedded callers should prefer the
// *WithScratch variants with a smaller caller-owned buffer (e.g. 2 KiB).
const DefaultScratchBytes = 8 * 1024

// ZipLimits is caller-supplied policy governing ZIP parsing strictness and
// resource bounds, per spec.md §3.
type ZipLimits struct {
	// MaxFileReadSize caps both compressed and uncompressed entry sizes
	// accepted by a read call.
	MaxFileReadSize int
	// MaxMimetypeSize caps the size accepted for the required mimetype
	// entry specifically.
	MaxMimetypeSize int
	// Strict rejects structural anomalies (central directory overflow,
	// truncated entries) instead of tolerating them.
	Strict bool
	// MaxEocdScan bounds how many trailing bytes are scanned for the EOCD
	// signature; clamped up to at least EOCDMinSize.
	MaxEocdScan int
}

// NewZipLimits builds explicit limits with lenient defaults.
func NewZipLimits(maxFileReadSize, maxMimetypeSize int) ZipLimits {
	return ZipLimits{
		MaxFileReadSize: maxFileReadSize,
		MaxMimetypeSize: maxMimetypeSize,
		Strict:          false,
		MaxEocdScan:     maxEOCDScan,
	}
}

// WithStrict toggles strict structural validation.
func (l ZipLimits) WithStrict(strict bool) ZipLimits {
	l.Strict = strict
	return l
}

// WithMaxEocdScan sets the EOCD tail-scan cap, clamped to at least
// EOCDMinSize so a misconfigured caller can never make EOCD undiscoverable
// on a well-formed minimal archive.
func (l ZipLimits) WithMaxEocdScan(n int) ZipLimits {
	if n < EOCDMinSize {
		n = EOCDMinSize
	}
	l.MaxEocdScan = n
	return l
}

func (l ZipLimits) clampedEocdScan() int {
	if l.MaxEocdScan <= 0 {
		return maxEOCDScan
	}
	if l.MaxEocdScan < EOCDMinSize {
		return EOCDMinSize
	}
	if l.MaxEocdScan > maxEOCDScan {
		return maxEOCDScan
	}
	return l.MaxEocdScan
}

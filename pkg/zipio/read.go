package zipio

import (
	"compress/flate"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/epubkit/mu-epub/pkg/epuberr"
)

const epubMimetype = "application/epub+zip"

// ReadInto decompresses entry into buf, which must be at least
// entry.UncompressedSize bytes. It allocates an internal scratch buffer
// sized DefaultScratchBytes; embedded callers that want deterministic
// allocation should use ReadIntoWithScratch instead.
func (r *Reader) ReadInto(entry *CdEntry, buf []byte) (int, error) {
	scratch := make([]byte, DefaultScratchBytes)
	return r.ReadIntoWithScratch(entry, buf, scratch)
}

// ReadIntoWithScratch decompresses entry into buf using the caller-owned
// inputBuf as the compressed-data read chunk. inputBuf must be non-empty.
func (r *Reader) ReadIntoWithScratch(entry *CdEntry, buf []byte, inputBuf []byte) (int, error) {
	if len(inputBuf) == 0 {
		return 0, epuberr.NewZipError(epuberr.BufferTooSmall)
	}
	if err := r.checkSizeLimits(entry); err != nil {
		return 0, err
	}
	if entry.UncompressedSize > uint64(len(buf)) {
		return 0, epuberr.NewZipError(epuberr.BufferTooSmall)
	}

	dataOffset, err := r.calcDataOffset(entry)
	if err != nil {
		return 0, err
	}
	if _, err := r.src.Seek(int64(dataOffset), io.SeekStart); err != nil {
		return 0, epuberr.NewZipError(epuberr.IoError)
	}

	switch entry.Method {
	case MethodStored:
		size := int(entry.CompressedSize)
		if size > len(buf) {
			return 0, epuberr.NewZipError(epuberr.BufferTooSmall)
		}
		if _, err := io.ReadFull(r.src, buf[:size]); err != nil {
			return 0, epuberr.NewZipError(epuberr.IoError)
		}
		if err := checkCRC(entry, buf[:size]); err != nil {
			return 0, err
		}
		return size, nil

	case MethodDeflated:
		limited := io.LimitReader(r.src, int64(entry.CompressedSize))
		sr := &scratchReader{r: limited, scratch: inputBuf}
		zr := flate.NewReader(sr)
		defer zr.Close()

		uncompressedSize := int(entry.UncompressedSize)
		n, err := io.ReadFull(zr, buf[:uncompressedSize])
		if err != nil {
			return 0, epuberr.NewZipError(epuberr.DecompressError)
		}
		// Confirm the stream doesn't have trailing decompressed bytes
		// beyond what UncompressedSize declared.
		var tail [1]byte
		if tn, _ := zr.Read(tail[:]); tn > 0 {
			return 0, epuberr.NewZipError(epuberr.DecompressError)
		}
		// Confirm every compressed byte the central directory declared was
		// actually consumed; bytes left over mean the stream ended before
		// CompressedSize was reached (truncation or corruption).
		residual, rerr := sr.hasResidual()
		if rerr != nil || residual {
			return 0, epuberr.NewZipError(epuberr.DecompressError)
		}
		if err := checkCRC(entry, buf[:n]); err != nil {
			return 0, err
		}
		return n, nil

	default:
		return 0, epuberr.NewZipError(epuberr.UnsupportedCompression)
	}
}

// ReadToWriter streams entry's decompressed bytes to w using internally
// allocated scratch buffers of DefaultScratchBytes each.
func (r *Reader) ReadToWriter(entry *CdEntry, w io.Writer) (int, error) {
	inputBuf := make([]byte, DefaultScratchBytes)
	outputBuf := make([]byte, DefaultScratchBytes)
	return r.ReadToWriterWithScratch(entry, w, inputBuf, outputBuf)
}

// ReadToWriterWithScratch streams entry's decompressed bytes to w in
// chunks bounded by outputBuf's length, reading compressed input through
// inputBuf. Both buffers must be non-empty. Unlike ReadIntoWithScratch,
// this path needs no buffer sized to the whole entry.
func (r *Reader) ReadToWriterWithScratch(entry *CdEntry, w io.Writer, inputBuf, outputBuf []byte) (int, error) {
	if len(inputBuf) == 0 || len(outputBuf) == 0 {
		return 0, epuberr.NewZipError(epuberr.BufferTooSmall)
	}
	if err := r.checkSizeLimits(entry); err != nil {
		return 0, err
	}

	dataOffset, err := r.calcDataOffset(entry)
	if err != nil {
		return 0, err
	}
	if _, err := r.src.Seek(int64(dataOffset), io.SeekStart); err != nil {
		return 0, epuberr.NewZipError(epuberr.IoError)
	}

	var src io.Reader
	var deflateSrc *scratchReader
	switch entry.Method {
	case MethodStored:
		src = io.LimitReader(r.src, int64(entry.CompressedSize))
	case MethodDeflated:
		limited := io.LimitReader(r.src, int64(entry.CompressedSize))
		deflateSrc = &scratchReader{r: limited, scratch: inputBuf}
		zr := flate.NewReader(deflateSrc)
		defer zr.Close()
		src = zr
	default:
		return 0, epuberr.NewZipError(epuberr.UnsupportedCompression)
	}

	hasher := crc32.NewIEEE()
	written := 0
	for {
		n, rerr := src.Read(outputBuf)
		if n > 0 {
			if _, werr := w.Write(outputBuf[:n]); werr != nil {
				return written, epuberr.NewZipError(epuberr.IoError)
			}
			hasher.Write(outputBuf[:n])
			written += n
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			if entry.Method == MethodDeflated {
				return written, epuberr.NewZipError(epuberr.DecompressError)
			}
			return written, epuberr.NewZipError(epuberr.IoError)
		}
	}

	if deflateSrc != nil {
		residual, rerr := deflateSrc.hasResidual()
		if rerr != nil || residual {
			return written, epuberr.NewZipError(epuberr.DecompressError)
		}
	}

	if entry.CRC32 != 0 && hasher.Sum32() != entry.CRC32 {
		return written, epuberr.NewZipError(epuberr.CrcMismatch)
	}
	return written, nil
}

// ReadAtOffset looks up an entry by its local header offset and reads it,
// useful when a caller already has an offset (e.g. from a prior listing)
// but not the CdEntry value itself.
func (r *Reader) ReadAtOffset(localHeaderOffset uint64, buf []byte) (int, error) {
	for i := range r.entries {
		if r.entries[i].LocalHeaderOffset == localHeaderOffset {
			return r.ReadInto(&r.entries[i], buf)
		}
	}
	return 0, epuberr.NewZipError(epuberr.FileNotFound)
}

func (r *Reader) checkSizeLimits(entry *CdEntry) error {
	if r.limits.MaxFileReadSize <= 0 {
		return nil
	}
	max := uint64(r.limits.MaxFileReadSize)
	if entry.UncompressedSize > max || entry.CompressedSize > max {
		return epuberr.NewZipError(epuberr.FileTooLarge)
	}
	return nil
}

func checkCRC(entry *CdEntry, data []byte) error {
	if entry.CRC32 == 0 {
		return nil
	}
	if crc32.ChecksumIEEE(data) != entry.CRC32 {
		return epuberr.NewZipError(epuberr.CrcMismatch)
	}
	return nil
}

// calcDataOffset reads the local file header to find where entry's data
// actually starts, since the central directory doesn't record filename/
// extra-field lengths that may differ from the central record.
func (r *Reader) calcDataOffset(entry *CdEntry) (uint64, error) {
	offset := entry.LocalHeaderOffset
	if _, err := r.src.Seek(int64(offset), io.SeekStart); err != nil {
		return 0, epuberr.NewZipError(epuberr.IoError)
	}
	header := make([]byte, 30)
	if _, err := io.ReadFull(r.src, header); err != nil {
		return 0, epuberr.NewZipError(epuberr.IoError)
	}
	if binary.LittleEndian.Uint32(header) != sigLocalFileHeader {
		return 0, epuberr.NewZipError(epuberr.InvalidFormat)
	}
	nameLen := uint64(binary.LittleEndian.Uint16(header[26:]))
	extraLen := uint64(binary.LittleEndian.Uint16(header[28:]))
	return offset + 30 + nameLen + extraLen, nil
}

// ValidateMimetype reads the required "mimetype" entry and confirms its
// content is exactly "application/epub+zip".
func (r *Reader) ValidateMimetype() error {
	entry := r.GetEntry("mimetype")
	if entry == nil {
		return epuberr.NewZipErrorf(epuberr.InvalidMimetypeKind, "mimetype file not found in archive")
	}
	if r.limits.MaxMimetypeSize > 0 && entry.UncompressedSize > uint64(r.limits.MaxMimetypeSize) {
		return epuberr.NewZipErrorf(epuberr.InvalidMimetypeKind, "mimetype file too large")
	}
	size := int(entry.UncompressedSize)
	buf := make([]byte, size)
	n, err := r.ReadInto(entry, buf)
	if err != nil {
		return err
	}
	content := string(buf[:n])
	if content != epubMimetype {
		return epuberr.NewZipErrorf(epuberr.InvalidMimetypeKind, "expected %q, got %q", epubMimetype, content)
	}
	return nil
}

// IsValidEpub is a convenience boolean wrapper around ValidateMimetype.
func (r *Reader) IsValidEpub() bool {
	return r.ValidateMimetype() == nil
}

// scratchReader adapts a limited compressed-data io.Reader to read through
// a caller-owned buffer, bounding how much is pulled from the underlying
// source per fill to the scratch buffer's size. It also implements
// io.ByteReader so flate.NewReader uses it directly instead of wrapping it
// in its own internal bufio.Reader: that wrapper would pre-fetch ahead of
// the logical end of the DEFLATE stream (especially for entries smaller
// than bufio's default 4 KiB buffer), making any residual bytes beyond the
// stream's true end silently disappear into an unreachable internal
// buffer before hasResidual could observe them. flate.Reader still manages
// its own internal history-window allocation once per decompressor (the
// stdlib exposes no stack-resident inflate state), so this only bounds the
// read-chunk size and exposes leftover bytes, not flate's internal
// buffering.
type scratchReader struct {
	r        io.Reader
	scratch  []byte
	buffered []byte // unconsumed prefix of the last fill into scratch
}

func (s *scratchReader) fill() error {
	if len(s.buffered) > 0 {
		return nil
	}
	n, err := s.r.Read(s.scratch)
	if n > 0 {
		s.buffered = s.scratch[:n]
		return nil
	}
	return err
}

func (s *scratchReader) Read(p []byte) (int, error) {
	if err := s.fill(); err != nil {
		return 0, err
	}
	n := copy(p, s.buffered)
	s.buffered = s.buffered[n:]
	return n, nil
}

func (s *scratchReader) ReadByte() (byte, error) {
	if err := s.fill(); err != nil {
		return 0, err
	}
	b := s.buffered[0]
	s.buffered = s.buffered[1:]
	return b, nil
}

// hasResidual reports whether compressed bytes remain unconsumed, either
// still buffered or still available from the underlying limited source.
func (s *scratchReader) hasResidual() (bool, error) {
	if len(s.buffered) > 0 {
		return true, nil
	}
	var probe [1]byte
	n, err := s.r.Read(probe[:])
	if n > 0 {
		s.buffered = append(s.scratch[:0], probe[0])
		return true, nil
	}
	if err != nil && err != io.EOF {
		return false, err
	}
	return false, nil
}

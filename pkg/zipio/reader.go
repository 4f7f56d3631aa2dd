// Package zipio is a streaming, read-only ZIP64-aware reader purpose-built
// for EPUB containers: it indexes the central directory into a bounded
// in-memory slice and decompresses entries through caller-sized scratch
// buffers rather than materializing the whole archive in memory.
package zipio

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/epubkit/mu-epub/pkg/epuberr"
)

const (
	sigLocalFileHeader  = 0x04034b50
	sigCDEntry          = 0x02014b50
	sigEOCD             = 0x06054b50
	sigZip64EOCD        = 0x06064b50
	sigZip64EOCDLocator = 0x07064b50
)

type eocdInfo struct {
	cdOffset   uint64
	cdSize     uint64
	numEntries uint64
}

type zip64EocdInfo struct {
	diskNumber      uint32
	diskWithCDStart uint32
	numEntries      uint64
	cdSize          uint64
	cdOffset        uint64
}

// Source is the minimal seekable byte source a Reader needs; *os.File and
// bytes.Reader both satisfy it.
type Source interface {
	io.ReaderAt
	io.Reader
	io.Seeker
}

// Reader indexes a ZIP central directory and serves entry reads against a
// Source, without ever holding the whole archive in memory.
type Reader struct {
	src     Source
	entries []CdEntry
	// numEntries is the archive's declared entry count, which may exceed
	// len(entries) in lenient mode when the central directory overflows
	// MaxCDEntries.
	numEntries int
	limits     ZipLimits
}

// Open parses the end-of-central-directory record (and ZIP64 extension, if
// present) and indexes up to MaxCDEntries central-directory records.
func Open(src Source, limits ZipLimits) (*Reader, error) {
	eocd, err := findEOCD(src, limits.clampedEocdScan())
	if err != nil {
		return nil, err
	}
	if limits.Strict && eocd.numEntries > MaxCDEntries {
		return nil, epuberr.NewZipError(epuberr.CentralDirFull)
	}

	if _, err := src.Seek(int64(eocd.cdOffset), io.SeekStart); err != nil {
		return nil, epuberr.NewZipError(epuberr.IoError)
	}
	cdEnd := eocd.cdOffset + eocd.cdSize
	if cdEnd < eocd.cdOffset {
		return nil, epuberr.NewZipError(epuberr.InvalidFormat)
	}

	entriesToScan := eocd.numEntries
	if entriesToScan > MaxCDEntries {
		entriesToScan = MaxCDEntries
	}

	entries := make([]CdEntry, 0, entriesToScan)
	for i := uint64(0); i < entriesToScan; i++ {
		pos, err := src.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, epuberr.NewZipError(epuberr.IoError)
		}
		if uint64(pos) >= cdEnd {
			if limits.Strict {
				return nil, epuberr.NewZipError(epuberr.InvalidFormat)
			}
			break
		}
		entry, ok, err := readCDEntry(src)
		if err != nil {
			return nil, err
		}
		if !ok {
			if limits.Strict {
				return nil, epuberr.NewZipError(epuberr.InvalidFormat)
			}
			break
		}
		entries = append(entries, entry)
	}

	numEntries := eocd.numEntries
	if numEntries > uint64(^uint(0)>>1) {
		numEntries = uint64(^uint(0) >> 1)
	}

	return &Reader{
		src:        src,
		entries:    entries,
		numEntries: int(numEntries),
		limits:     limits,
	}, nil
}

func findEOCD(src Source, maxEocdScan int) (eocdInfo, error) {
	fileSize, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return eocdInfo{}, epuberr.NewZipError(epuberr.IoError)
	}
	if fileSize < EOCDMinSize {
		return eocdInfo{}, epuberr.NewZipError(epuberr.InvalidFormat)
	}

	scanRange := int64(maxEocdScan)
	if scanRange > fileSize {
		scanRange = fileSize
	}
	buf := make([]byte, scanRange)
	if _, err := src.Seek(fileSize-scanRange, io.SeekStart); err != nil {
		return eocdInfo{}, epuberr.NewZipError(epuberr.IoError)
	}
	bytesRead, err := io.ReadFull(src, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return eocdInfo{}, epuberr.NewZipError(epuberr.IoError)
	}
	scanBase := fileSize - int64(bytesRead)

	for i := bytesRead - EOCDMinSize; i >= 0; i-- {
		if binary.LittleEndian.Uint32(buf[i:]) != sigEOCD {
			continue
		}
		numEntries := uint64(binary.LittleEndian.Uint16(buf[i+8:]))
		cdSize32 := binary.LittleEndian.Uint32(buf[i+12:])
		cdOffset32 := uint64(binary.LittleEndian.Uint32(buf[i+16:]))
		commentLen := uint64(binary.LittleEndian.Uint16(buf[i+20:]))
		eocdPos := scanBase + int64(i)
		eocdEnd := eocdPos + EOCDMinSize + int64(commentLen)
		if eocdEnd != fileSize {
			continue
		}

		usesZip64Sentinel := numEntries == 0xFFFF || cdSize32 == 0xFFFFFFFF || cdOffset32 == 0xFFFFFFFF

		var (
			haveLocator   bool
			locatorDisk   uint32
			locatorOffset uint64
			totalDisks    uint32
		)
		if eocdPos >= 20 {
			if _, err := src.Seek(eocdPos-20, io.SeekStart); err != nil {
				return eocdInfo{}, epuberr.NewZipError(epuberr.IoError)
			}
			locator := make([]byte, 20)
			if _, err := io.ReadFull(src, locator); err != nil {
				return eocdInfo{}, epuberr.NewZipError(epuberr.IoError)
			}
			if binary.LittleEndian.Uint32(locator) == sigZip64EOCDLocator {
				haveLocator = true
				locatorDisk = binary.LittleEndian.Uint32(locator[4:])
				locatorOffset = binary.LittleEndian.Uint64(locator[8:])
				totalDisks = binary.LittleEndian.Uint32(locator[16:])
			}
		}

		if usesZip64Sentinel || haveLocator {
			if !haveLocator {
				return eocdInfo{}, epuberr.NewZipError(epuberr.InvalidFormat)
			}
			if locatorDisk != 0 || totalDisks != 1 {
				return eocdInfo{}, epuberr.NewZipError(epuberr.UnsupportedZip64)
			}
			zip64, err := readZip64Eocd(src, locatorOffset)
			if err != nil {
				return eocdInfo{}, err
			}
			if zip64.diskNumber != 0 || zip64.diskWithCDStart != 0 {
				return eocdInfo{}, epuberr.NewZipError(epuberr.UnsupportedZip64)
			}
			cdEnd := zip64.cdOffset + zip64.cdSize
			if cdEnd < zip64.cdOffset || int64(cdEnd) > eocdPos || int64(cdEnd) > fileSize {
				return eocdInfo{}, epuberr.NewZipError(epuberr.InvalidFormat)
			}
			return eocdInfo{cdOffset: zip64.cdOffset, cdSize: zip64.cdSize, numEntries: zip64.numEntries}, nil
		}

		cdEnd := cdOffset32 + uint64(cdSize32)
		if cdEnd < cdOffset32 || int64(cdEnd) > eocdPos || int64(cdEnd) > fileSize {
			return eocdInfo{}, epuberr.NewZipError(epuberr.InvalidFormat)
		}
		return eocdInfo{cdOffset: cdOffset32, cdSize: uint64(cdSize32), numEntries: numEntries}, nil
	}

	return eocdInfo{}, epuberr.NewZipError(epuberr.InvalidFormat)
}

func readZip64Eocd(src Source, offset uint64) (zip64EocdInfo, error) {
	if _, err := src.Seek(int64(offset), io.SeekStart); err != nil {
		return zip64EocdInfo{}, epuberr.NewZipError(epuberr.IoError)
	}
	fixed := make([]byte, 56)
	if _, err := io.ReadFull(src, fixed); err != nil {
		return zip64EocdInfo{}, epuberr.NewZipError(epuberr.IoError)
	}
	if binary.LittleEndian.Uint32(fixed) != sigZip64EOCD {
		return zip64EocdInfo{}, epuberr.NewZipError(epuberr.InvalidFormat)
	}
	recordSize := binary.LittleEndian.Uint64(fixed[4:])
	if recordSize < 44 {
		return zip64EocdInfo{}, epuberr.NewZipError(epuberr.InvalidFormat)
	}
	return zip64EocdInfo{
		diskNumber:      binary.LittleEndian.Uint32(fixed[16:]),
		diskWithCDStart: binary.LittleEndian.Uint32(fixed[20:]),
		numEntries:      binary.LittleEndian.Uint64(fixed[32:]),
		cdSize:          binary.LittleEndian.Uint64(fixed[40:]),
		cdOffset:        binary.LittleEndian.Uint64(fixed[48:]),
	}, nil
}

// readCDEntry reads one central-directory record. ok is false (with a nil
// error) when the signature doesn't match, signalling end-of-directory.
func readCDEntry(src Source) (CdEntry, bool, error) {
	sigBuf := make([]byte, 4)
	n, err := io.ReadFull(src, sigBuf)
	if err != nil || n < 4 {
		return CdEntry{}, false, nil
	}
	if binary.LittleEndian.Uint32(sigBuf) != sigCDEntry {
		return CdEntry{}, false, nil
	}

	buf := make([]byte, 42)
	if _, err := io.ReadFull(src, buf); err != nil {
		return CdEntry{}, false, epuberr.NewZipError(epuberr.IoError)
	}

	var entry CdEntry
	entry.Method = binary.LittleEndian.Uint16(buf[6:])
	entry.CRC32 = binary.LittleEndian.Uint32(buf[12:])
	compressedSize32 := binary.LittleEndian.Uint32(buf[16:])
	uncompressedSize32 := binary.LittleEndian.Uint32(buf[20:])
	nameLen := int(binary.LittleEndian.Uint16(buf[24:]))
	extraLen := int(binary.LittleEndian.Uint16(buf[26:]))
	commentLen := int(binary.LittleEndian.Uint16(buf[28:]))
	localHeaderOffset32 := binary.LittleEndian.Uint32(buf[38:])
	entry.CompressedSize = uint64(compressedSize32)
	entry.UncompressedSize = uint64(uncompressedSize32)
	entry.LocalHeaderOffset = uint64(localHeaderOffset32)

	switch {
	case nameLen > 0 && nameLen <= MaxFilenameLen:
		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(src, nameBuf); err != nil {
			return CdEntry{}, false, epuberr.NewZipError(epuberr.IoError)
		}
		entry.Filename = string(nameBuf)
	case nameLen > MaxFilenameLen:
		if _, err := src.Seek(int64(nameLen), io.SeekCurrent); err != nil {
			return CdEntry{}, false, epuberr.NewZipError(epuberr.IoError)
		}
	}

	needsZip64Uncompressed := uncompressedSize32 == 0xFFFFFFFF
	needsZip64Compressed := compressedSize32 == 0xFFFFFFFF
	needsZip64Offset := localHeaderOffset32 == 0xFFFFFFFF
	var gotZip64Uncompressed, gotZip64Compressed, gotZip64Offset bool

	extraRemaining := extraLen
	for extraRemaining >= 4 {
		hdr := make([]byte, 4)
		if _, err := io.ReadFull(src, hdr); err != nil {
			return CdEntry{}, false, epuberr.NewZipError(epuberr.IoError)
		}
		headerID := binary.LittleEndian.Uint16(hdr)
		fieldSize := int(binary.LittleEndian.Uint16(hdr[2:]))
		extraRemaining -= 4
		if fieldSize > extraRemaining {
			return CdEntry{}, false, epuberr.NewZipError(epuberr.InvalidFormat)
		}

		if headerID == 0x0001 {
			fieldRemaining := fieldSize
			if needsZip64Uncompressed {
				if fieldRemaining < 8 {
					return CdEntry{}, false, epuberr.NewZipError(epuberr.InvalidFormat)
				}
				val := make([]byte, 8)
				if _, err := io.ReadFull(src, val); err != nil {
					return CdEntry{}, false, epuberr.NewZipError(epuberr.IoError)
				}
				entry.UncompressedSize = binary.LittleEndian.Uint64(val)
				gotZip64Uncompressed = true
				fieldRemaining -= 8
			}
			if needsZip64Compressed {
				if fieldRemaining < 8 {
					return CdEntry{}, false, epuberr.NewZipError(epuberr.InvalidFormat)
				}
				val := make([]byte, 8)
				if _, err := io.ReadFull(src, val); err != nil {
					return CdEntry{}, false, epuberr.NewZipError(epuberr.IoError)
				}
				entry.CompressedSize = binary.LittleEndian.Uint64(val)
				gotZip64Compressed = true
				fieldRemaining -= 8
			}
			if needsZip64Offset {
				if fieldRemaining < 8 {
					return CdEntry{}, false, epuberr.NewZipError(epuberr.InvalidFormat)
				}
				val := make([]byte, 8)
				if _, err := io.ReadFull(src, val); err != nil {
					return CdEntry{}, false, epuberr.NewZipError(epuberr.IoError)
				}
				entry.LocalHeaderOffset = binary.LittleEndian.Uint64(val)
				gotZip64Offset = true
				fieldRemaining -= 8
			}
			if fieldRemaining > 0 {
				if _, err := src.Seek(int64(fieldRemaining), io.SeekCurrent); err != nil {
					return CdEntry{}, false, epuberr.NewZipError(epuberr.IoError)
				}
			}
		} else if fieldSize > 0 {
			if _, err := src.Seek(int64(fieldSize), io.SeekCurrent); err != nil {
				return CdEntry{}, false, epuberr.NewZipError(epuberr.IoError)
			}
		}
		extraRemaining -= fieldSize
	}
	if extraRemaining > 0 {
		if _, err := src.Seek(int64(extraRemaining), io.SeekCurrent); err != nil {
			return CdEntry{}, false, epuberr.NewZipError(epuberr.IoError)
		}
	}

	if (needsZip64Uncompressed && !gotZip64Uncompressed) ||
		(needsZip64Compressed && !gotZip64Compressed) ||
		(needsZip64Offset && !gotZip64Offset) {
		return CdEntry{}, false, epuberr.NewZipError(epuberr.InvalidFormat)
	}

	if commentLen > 0 {
		if _, err := src.Seek(int64(commentLen), io.SeekCurrent); err != nil {
			return CdEntry{}, false, epuberr.NewZipError(epuberr.IoError)
		}
	}

	return entry, true, nil
}

// GetEntry looks up an entry by name, case-insensitively, tolerating a
// leading "/" mismatch in either direction.
func (r *Reader) GetEntry(name string) *CdEntry {
	for i := range r.entries {
		e := &r.entries[i]
		if e.Filename == name || strings.EqualFold(e.Filename, name) {
			return e
		}
		if strings.HasPrefix(name, "/") && strings.EqualFold(e.Filename, name[1:]) {
			return e
		}
		if strings.HasPrefix(e.Filename, "/") && strings.EqualFold(e.Filename[1:], name) {
			return e
		}
	}
	return nil
}

// GetEntryByIndex returns the entry at position i, or nil if out of range.
func (r *Reader) GetEntryByIndex(i int) *CdEntry {
	if i < 0 || i >= len(r.entries) {
		return nil
	}
	return &r.entries[i]
}

// Entries returns every indexed central-directory record.
func (r *Reader) Entries() []CdEntry {
	return r.entries
}

// NumEntries returns the archive's declared entry count (which may exceed
// len(Entries()) in lenient mode when the central directory overflows
// MaxCDEntries).
func (r *Reader) NumEntries() int {
	if r.numEntries < len(r.entries) {
		return len(r.entries)
	}
	return r.numEntries
}

// Limits returns the limits this Reader was opened with.
func (r *Reader) Limits() ZipLimits {
	return r.limits
}

package fixture

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

const (
	sigLocalFileHeader  = 0x04034b50
	sigCDEntry          = 0x02014b50
	sigZip64EOCD        = 0x06064b50
	sigZip64EOCDLocator = 0x07064b50
	sigEOCD             = 0x06054b50
)

// Zip64Options configures GenerateZip64Archive's single-entry archive.
type Zip64Options struct {
	// OmitLocator builds an EOCD carrying ZIP64 sentinel values but skips
	// the ZIP64 EOCD locator and record entirely, producing an archive
	// pkg/zipio must reject with InvalidFormat (spec.md §8 boundary case:
	// "ZIP64 sentinel without locator").
	OmitLocator bool
}

// GenerateZip64Archive hand-assembles a minimal single-entry STORED ZIP64
// archive byte-for-byte (bypassing archive/zip, which cannot emit ZIP64
// records), naming the entry "mimetype". The central-directory record
// declares ZIP64 sentinels (0xFFFFFFFF) for compressed size, uncompressed
// size, and local-header offset, and the EOCD itself declares ZIP64
// sentinels for entry count and central-directory size/offset, so opening
// it exercises the reader's full ZIP64 locator + EOCD64 parse path
// (spec.md §8 scenario 3).
func GenerateZip64Archive(t *testing.T, content []byte, opts Zip64Options) []byte {
	t.Helper()

	const name = "mimetype"
	crc := crc32.ChecksumIEEE(content)

	var buf bytes.Buffer

	// Local file header: ordinary (non-ZIP64) sizes, since content is tiny
	// and only the central directory is exercising the ZIP64 upgrade path.
	localHeaderOffset := uint64(buf.Len())
	writeUint32(&buf, sigLocalFileHeader)
	writeUint16(&buf, 20) // version needed to extract
	writeUint16(&buf, 0)  // general purpose bit flag
	writeUint16(&buf, 0)  // compression method: stored
	writeUint16(&buf, 0)  // last mod time
	writeUint16(&buf, 0)  // last mod date
	writeUint32(&buf, crc)
	writeUint32(&buf, uint32(len(content))) // compressed size
	writeUint32(&buf, uint32(len(content))) // uncompressed size
	writeUint16(&buf, uint16(len(name)))    // filename length
	writeUint16(&buf, 0)                    // extra field length
	buf.WriteString(name)
	buf.Write(content)

	cdOffset := uint64(buf.Len())

	// ZIP64 extra field: only the fields the base record marks 0xFFFFFFFF
	// are present, in the fixed order uncompressed size, compressed size,
	// local header offset.
	var zip64Extra bytes.Buffer
	writeUint16(&zip64Extra, 0x0001) // header id: Zip64 extended information
	writeUint16(&zip64Extra, 24)     // data size: 3 * 8 bytes
	writeUint64(&zip64Extra, uint64(len(content)))
	writeUint64(&zip64Extra, uint64(len(content)))
	writeUint64(&zip64Extra, localHeaderOffset)

	writeUint32(&buf, sigCDEntry)
	writeUint16(&buf, 45) // version made by
	writeUint16(&buf, 45) // version needed to extract
	writeUint16(&buf, 0)  // general purpose bit flag
	writeUint16(&buf, 0)  // compression method: stored
	writeUint16(&buf, 0)  // last mod time
	writeUint16(&buf, 0)  // last mod date
	writeUint32(&buf, crc)
	writeUint32(&buf, 0xFFFFFFFF) // compressed size sentinel
	writeUint32(&buf, 0xFFFFFFFF) // uncompressed size sentinel
	writeUint16(&buf, uint16(len(name)))
	writeUint16(&buf, uint16(zip64Extra.Len()))
	writeUint16(&buf, 0) // file comment length
	writeUint16(&buf, 0) // disk number start
	writeUint16(&buf, 0) // internal file attributes
	writeUint32(&buf, 0) // external file attributes
	writeUint32(&buf, 0xFFFFFFFF) // local header offset sentinel
	buf.WriteString(name)
	buf.Write(zip64Extra.Bytes())

	cdSize := uint64(buf.Len()) - cdOffset

	if !opts.OmitLocator {
		zip64EocdOffset := uint64(buf.Len())

		writeUint32(&buf, sigZip64EOCD)
		writeUint64(&buf, 44) // size of zip64 eocd record following this field
		writeUint16(&buf, 45) // version made by
		writeUint16(&buf, 45) // version needed to extract
		writeUint32(&buf, 0)  // number of this disk
		writeUint32(&buf, 0)  // disk with start of central directory
		writeUint64(&buf, 1)  // total entries on this disk
		writeUint64(&buf, 1)  // total entries overall
		writeUint64(&buf, cdSize)
		writeUint64(&buf, cdOffset)

		writeUint32(&buf, sigZip64EOCDLocator)
		writeUint32(&buf, 0) // disk with start of zip64 eocd record
		writeUint64(&buf, zip64EocdOffset)
		writeUint32(&buf, 1) // total number of disks
	}

	writeUint32(&buf, sigEOCD)
	writeUint16(&buf, 0)      // number of this disk
	writeUint16(&buf, 0)      // disk with start of central directory
	writeUint16(&buf, 0xFFFF) // total entries on this disk (sentinel)
	writeUint16(&buf, 0xFFFF) // total entries overall (sentinel)
	writeUint32(&buf, 0xFFFFFFFF) // central directory size (sentinel)
	writeUint32(&buf, 0xFFFFFFFF) // central directory offset (sentinel)
	writeUint16(&buf, 0)          // comment length

	return buf.Bytes()
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

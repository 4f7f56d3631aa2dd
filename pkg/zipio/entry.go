package zipio

// Compression methods recognized in the central directory.
const (
	MethodStored   uint16 = 0
	MethodDeflated uint16 = 8
)

// CdEntry is one parsed central-directory record: everything needed to
// locate and decompress an archive member without re-reading the whole
// central directory.
type CdEntry struct {
	Method            uint16
	CompressedSize    uint64
	UncompressedSize  uint64
	LocalHeaderOffset uint64
	CRC32             uint32
	Filename          string
}

package epuberr

import "fmt"

// ZipErrorKind is the kind-only ZIP error enum from spec.md §7. It is
// deliberately not a PhaseError: the ZIP reader has no notion of phase and
// must remain usable standalone (e.g. from an embedded caller that never
// touches the EPUB container layer). The container layer wraps a
// ZipErrorKind into a PhaseError at the container boundary via WrapZip.
type ZipErrorKind int

const (
	FileNotFound ZipErrorKind = iota
	InvalidFormat
	UnsupportedCompression
	DecompressError
	CrcMismatch
	IoError
	CentralDirFull
	BufferTooSmall
	FileTooLarge
	InvalidMimetypeKind
	UnsupportedZip64
)

func (k ZipErrorKind) String() string {
	switch k {
	case FileNotFound:
		return "file not found in archive"
	case InvalidFormat:
		return "invalid ZIP format"
	case UnsupportedCompression:
		return "unsupported compression method"
	case DecompressError:
		return "decompression failed"
	case CrcMismatch:
		return "CRC32 checksum mismatch"
	case IoError:
		return "I/O error"
	case CentralDirFull:
		return "central directory full"
	case BufferTooSmall:
		return "buffer too small"
	case FileTooLarge:
		return "file too large"
	case InvalidMimetypeKind:
		return "invalid mimetype"
	case UnsupportedZip64:
		return "ZIP64 is not supported"
	default:
		return "unknown ZIP error"
	}
}

// ZipError is the error value returned by pkg/zipio. It implements the
// standard error interface plus Is, so errors.Is matches it against another
// *ZipError of the same Kind (see Is and IsZipKind below), and carries an
// optional message for the one variant (invalid mimetype) that needs one.
type ZipError struct {
	Kind    ZipErrorKind
	Message string
}

func NewZipError(kind ZipErrorKind) *ZipError {
	return &ZipError{Kind: kind}
}

func NewZipErrorf(kind ZipErrorKind, format string, args ...interface{}) *ZipError {
	return &ZipError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *ZipError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

// Is lets callers write errors.Is(err, epuberr.NewZipError(epuberr.CrcMismatch))
// or, more conveniently, errors.Is(err, epuberr.CrcMismatch) is not directly
// supported since ZipErrorKind itself is not an error; IsZipKind below is
// the ergonomic helper for that common case.
func (e *ZipError) Is(target error) bool {
	te, ok := target.(*ZipError)
	if !ok {
		return false
	}
	return te.Kind == e.Kind
}

// IsZipKind reports whether err is a *ZipError of the given kind.
func IsZipKind(err error, kind ZipErrorKind) bool {
	ze, ok := err.(*ZipError)
	if !ok {
		return false
	}
	return ze.Kind == kind
}

// WrapZip wraps a ZIP-layer error into the container-layer phase taxonomy,
// used at the boundary described in spec.md §7 ("ZIP errors ... wrap into
// the top-level taxonomy at the container boundary").
func WrapZip(err error) *PhaseError {
	if err == nil {
		return nil
	}
	ze, ok := err.(*ZipError)
	if !ok {
		return New(PhaseOpen, "zip error", err.Error()).WithCause(err)
	}
	if ze.Kind == UnsupportedZip64 || ze.Kind == InvalidFormat {
		return New(PhaseOpen, "invalid archive", ze.Error()).WithCause(err)
	}
	if ze.Kind == InvalidMimetypeKind {
		return InvalidMimetype(ze.Error())
	}
	return New(PhaseOpen, "archive read failed", ze.Error()).WithCause(err)
}

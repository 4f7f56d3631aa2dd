// Package epuberr defines the phase-tagged error taxonomy shared by every
// layer of mu-epub: the ZIP reader, the container parser, the layout
// engine, and the render engine all return errors that carry a stable
// processing phase and a stable machine-readable code, so a caller can
// branch on failure kind without string-matching a message.
package epuberr

import (
	"fmt"

	"github.com/iancoleman/strcase"
)

// Phase identifies which stage of the pipeline produced an error.
type Phase int

const (
	// PhaseOpen covers container/OPF/Nav bootstrap work.
	PhaseOpen Phase = iota
	// PhaseParse covers generic XML/XHTML parsing and tokenization.
	PhaseParse
	// PhaseStyle covers CSS cascade preparation.
	PhaseStyle
	// PhaseLayout covers reflow/pagination work.
	PhaseLayout
	// PhaseRender covers engine orchestration (cache, overlay, cancel).
	PhaseRender
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseParse:
		return "parse"
	case PhaseStyle:
		return "style"
	case PhaseLayout:
		return "layout"
	case PhaseRender:
		return "render"
	default:
		return "unknown"
	}
}

// LimitContext is the typed actual-vs-limit payload attached to hard-cap
// failures.
type LimitContext struct {
	// Kind is the stable limit field name, e.g. "max_css_bytes".
	Kind string
	// Actual is the observed value that tripped the limit.
	Actual int
	// Limit is the configured cap.
	Limit int
}

// Context is optional rich context attached to a PhaseError.
type Context struct {
	Path             string
	Href             string
	ChapterIndex     *int
	Source           string
	Selector         string
	SelectorIndex    *int
	Declaration      string
	DeclarationIndex *int
	TokenOffset      *int
	Limit            *LimitContext
}

// PhaseError is the core typed error: a stable phase, a stable code, a
// human message, and optional structured context.
type PhaseError struct {
	Phase   Phase
	Code    string
	Message string
	Context *Context
	cause   error
}

// New builds a PhaseError. reason is a short, human-readable slug (e.g.
// "style limit") used to derive the stable Code via ToScreamingSnake, so
// call sites never hand-write inconsistent code strings.
func New(phase Phase, reason, message string) *PhaseError {
	return &PhaseError{
		Phase:   phase,
		Code:    strcase.ToScreamingSnake(reason),
		Message: message,
	}
}

// WithContext attaches structured context and returns the same error for
// chaining at the call site.
func (e *PhaseError) WithContext(ctx Context) *PhaseError {
	e.Context = &ctx
	return e
}

// WithCause attaches the underlying error that triggered this one; Unwrap
// exposes it so callers can still errors.As into the original cause.
func (e *PhaseError) WithCause(cause error) *PhaseError {
	e.cause = cause
	return e
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s error [%s]: %s", e.Phase, e.Code, e.Message)
}

func (e *PhaseError) Unwrap() error {
	return e.cause
}

// Is supports errors.Is(err, &PhaseError{Phase: ..., Code: ...}) style
// sentinel comparisons by phase+code, the same shape as the teacher's
// errcodes.Error.Is.
func (e *PhaseError) Is(target error) bool {
	te, ok := target.(*PhaseError)
	if !ok {
		return false
	}
	return te.Phase == e.Phase && te.Code == e.Code
}

// As supports errors.As(err, &context) extraction.
func (e *PhaseError) As(target interface{}) bool {
	te, ok := target.(**PhaseError)
	if !ok {
		return false
	}
	*te = e
	return true
}

// LimitExceeded is a convenience constructor for hard-cap failures, used
// across the style, layout, and render-prep limit checks.
func LimitExceeded(phase Phase, kind string, actual, limit int) *PhaseError {
	return New(phase, kind+" limit exceeded", fmt.Sprintf("%s: %d exceeds limit %d", kind, actual, limit)).
		WithContext(Context{Limit: &LimitContext{Kind: kind, Actual: actual, Limit: limit}})
}

// Cancelled is returned by render-engine operations when a CancelToken
// reports cancellation; it is distinct from any I/O-origin error kind.
var Cancelled = New(PhaseRender, "cancelled", "operation was cancelled")

// ManifestItemMissing reports a spine idref that does not resolve against
// the manifest.
func ManifestItemMissing(idref string) *PhaseError {
	return New(PhaseOpen, "manifest item missing", fmt.Sprintf("spine item %q does not exist in manifest", idref)).
		WithContext(Context{Href: idref})
}

// ChapterOutOfBounds reports a chapter index request beyond chapter_count.
func ChapterOutOfBounds(index, chapterCount int) *PhaseError {
	idx := index
	return New(PhaseOpen, "chapter out of bounds", fmt.Sprintf("chapter index %d out of bounds (chapter count: %d)", index, chapterCount)).
		WithContext(Context{ChapterIndex: &idx})
}

// ChapterNotUTF8 reports that chapter content could not be decoded.
func ChapterNotUTF8(href string) *PhaseError {
	return New(PhaseParse, "chapter not utf8", fmt.Sprintf("chapter content is not valid UTF-8: %s", href)).
		WithContext(Context{Href: href})
}

// InvalidMimetype reports a missing or malformed mimetype entry.
func InvalidMimetype(message string) *PhaseError {
	return New(PhaseOpen, "invalid mimetype", message)
}

// DuplicateManifestID reports a manifest with more than one <item> sharing
// an id, a structural anomaly Strict mode rejects per spec.md §4.2.
func DuplicateManifestID(id string) *PhaseError {
	return New(PhaseOpen, "duplicate manifest id", fmt.Sprintf("manifest id %q is declared more than once", id)).
		WithContext(Context{Href: id})
}

// MissingNavFallback reports an EPUB with neither a Nav document nor an
// NCX, a structural anomaly Strict mode rejects per spec.md §4.2.
func MissingNavFallback() *PhaseError {
	return New(PhaseOpen, "missing nav fallback", "archive declares neither a Nav document nor an NCX fallback")
}

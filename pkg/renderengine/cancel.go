package renderengine

// CancelToken is polled between pages (and at coarse stage transitions)
// during a prepare_chapter* call, per spec.md §4.4 and §5. It is never
// polled inside the inner layout loop: cancellation is cooperative and
// best-effort-prompt, not immediate.
type CancelToken interface {
	IsCancelled() bool
}

// NeverCancel is the trivial no-op CancelToken default.
type NeverCancel struct{}

// IsCancelled always reports false.
func (NeverCancel) IsCancelled() bool { return false }

// cancelled reports whether token requests cancellation, tolerating a nil
// token (equivalent to NeverCancel).
func cancelled(token CancelToken) bool {
	return token != nil && token.IsCancelled()
}

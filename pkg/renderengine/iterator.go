package renderengine

import "github.com/epubkit/mu-epub/pkg/renderir"

// PageIter yields a chapter's pages one at a time. A terminal error
// surfaces as exactly one failed Next call, after which the iterator is
// permanently exhausted (spec.md §4.4).
type PageIter struct {
	pages []renderir.RenderPage
	pos   int
	err   error
	done  bool
}

// Next returns the next page, or ok=false once the iterator is
// exhausted. If the underlying render failed, the first and only Next
// call returns ok=false and Err reports the failure.
func (it *PageIter) Next() (page renderir.RenderPage, ok bool) {
	if it.done {
		return renderir.RenderPage{}, false
	}
	if it.err != nil {
		it.done = true
		return renderir.RenderPage{}, false
	}
	if it.pos >= len(it.pages) {
		it.done = true
		return renderir.RenderPage{}, false
	}
	page = it.pages[it.pos]
	it.pos++
	return page, true
}

// Err reports the terminal error, if any, once the iterator is exhausted.
func (it *PageIter) Err() error {
	return it.err
}

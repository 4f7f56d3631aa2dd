// Package rendercache provides renderengine.CacheStore implementations:
// an in-memory store for short-lived processes and a SQLite-backed store
// (via uptrace/bun) for a cache that survives process restarts, per
// spec.md §4.4's cache interposition contract.
package rendercache

import (
	"encoding/hex"
	"sync"

	"github.com/epubkit/mu-epub/pkg/renderir"
)

func cacheKey(profileID renderir.PaginationProfileId, chapterIndex int) string {
	return hex.EncodeToString(profileID[:]) + ":" + itoa(chapterIndex)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Memory is a process-local, mutex-guarded renderengine.CacheStore. It
// never evicts: callers that run many distinct pagination profiles
// against many chapters should size their own eviction policy on top, or
// use Sqlite instead.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]renderir.RenderPage
}

// NewMemory constructs an empty in-memory cache store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]renderir.RenderPage)}
}

// LoadChapterPages implements renderengine.CacheStore.
func (m *Memory) LoadChapterPages(profileID renderir.PaginationProfileId, chapterIndex int) ([]renderir.RenderPage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages, ok := m.entries[cacheKey(profileID, chapterIndex)]
	return pages, ok
}

// StoreChapterPages implements renderengine.CacheStore.
func (m *Memory) StoreChapterPages(profileID renderir.PaginationProfileId, chapterIndex int, pages []renderir.RenderPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[cacheKey(profileID, chapterIndex)] = pages
}

// Len reports the number of cached chapter entries, for tests and
// diagnostics.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

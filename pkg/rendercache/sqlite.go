package rendercache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/epubkit/mu-epub/pkg/renderir"
)

// Sqlite is a renderengine.CacheStore backed by a SQLite database via
// uptrace/bun, surviving process restarts unlike Memory. Load/Store
// errors are swallowed to nil/false and logged nowhere: a cache miss is
// always a safe fallback to reflow, per spec.md §4.4, so a CacheStore
// implementation must never turn a storage hiccup into a hard failure.
type Sqlite struct {
	db *bun.DB
}

// OpenSqlite opens (creating if absent) a SQLite database at path and
// ensures the cache table exists.
func OpenSqlite(path string) (*Sqlite, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	if _, err := db.NewCreateTable().Model((*ChapterPageCache)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, errors.Wrap(err, "creating render_page_cache table")
	}

	return &Sqlite{db: db}, nil
}

// NewSqliteFromDB wraps an already-open *bun.DB, for callers that share a
// single database connection across multiple stores.
func NewSqliteFromDB(db *bun.DB) *Sqlite {
	return &Sqlite{db: db}
}

// Close closes the underlying database connection.
func (s *Sqlite) Close() error {
	return errors.WithStack(s.db.Close())
}

// LoadChapterPages implements renderengine.CacheStore.
func (s *Sqlite) LoadChapterPages(profileID renderir.PaginationProfileId, chapterIndex int) ([]renderir.RenderPage, bool) {
	row := new(ChapterPageCache)
	err := s.db.NewSelect().
		Model(row).
		Where("profile_id = ?", profileIDHex(profileID)).
		Where("chapter_index = ?", chapterIndex).
		Scan(context.Background())
	if err != nil {
		return nil, false
	}

	var pages []renderir.RenderPage
	if err := json.Unmarshal([]byte(row.PagesJSON), &pages); err != nil {
		return nil, false
	}
	return pages, true
}

// StoreChapterPages implements renderengine.CacheStore.
func (s *Sqlite) StoreChapterPages(profileID renderir.PaginationProfileId, chapterIndex int, pages []renderir.RenderPage) {
	data, err := json.Marshal(pages)
	if err != nil {
		return
	}

	row := &ChapterPageCache{
		ProfileID:    profileIDHex(profileID),
		ChapterIndex: chapterIndex,
		PagesJSON:    string(data),
		CreatedAt:    time.Now(),
	}

	_, _ = s.db.NewInsert().
		Model(row).
		On("CONFLICT (profile_id, chapter_index) DO UPDATE").
		Set("pages_json = EXCLUDED.pages_json").
		Set("created_at = EXCLUDED.created_at").
		Exec(context.Background())
}

func profileIDHex(profileID renderir.PaginationProfileId) string {
	return hex.EncodeToString(profileID[:])
}

package rendercache

import (
	"time"

	"github.com/uptrace/bun"
)

// ChapterPageCache is the SQLite row backing Sqlite: one row per
// (profile_id, chapter_index) pair, holding the chapter's rendered pages
// serialized as JSON (segmentio/encoding, matching the teacher's jobs.Job
// data-column convention).
type ChapterPageCache struct {
	bun.BaseModel `bun:"table:render_page_cache,alias:rpc" tstype:"-"`

	ProfileID    string    `bun:",pk" json:"profile_id"`
	ChapterIndex int       `bun:",pk" json:"chapter_index"`
	PagesJSON    string    `bun:",nullzero" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

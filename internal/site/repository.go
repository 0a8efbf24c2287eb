package site

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned by ByHost and ByID when no live site matches.
var ErrNotFound = errors.New("site not found")

const columns = `id, host, title, root_page_id, suspended_at, deleted_at,
               created_at, updated_at`

// AllActive returns every site that is neither suspended nor deleted,
// ordered by id.  Used by the maintenance commands, not by the HTTP
// bootstrap path.
func AllActive(ctx context.Context, db *sqlx.DB) ([]Record, error) {
	const q = `
        SELECT ` + columns + `
        FROM   site
        WHERE  suspended_at IS NULL
          AND  deleted_at   IS NULL
        ORDER  BY id`
	var rows []Record
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// ByHost fetches a single site row that is not suspended or deleted.  The
// caller supplies a context so the lookup respects request deadlines.
func ByHost(ctx context.Context, db *sqlx.DB, host string) (*Record, error) {
	const q = `
        SELECT ` + columns + `
        FROM   site
        WHERE  host = ?
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  1`
	return get(ctx, db, q, host)
}

// ByID is ByHost keyed by id.
func ByID(ctx context.Context, db *sqlx.DB, id uint64) (*Record, error) {
	const q = `
        SELECT ` + columns + `
        FROM   site
        WHERE  id = ?
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  1`
	return get(ctx, db, q, id)
}

func get(ctx context.Context, db *sqlx.DB, q string, arg any) (*Record, error) {
	var rec Record
	if err := db.GetContext(ctx, &rec, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Repository bundles the helpers above behind a value that satisfies the
// catalog and maintenance site interfaces.
type Repository struct {
	DB *sqlx.DB
}

func (r Repository) All(ctx context.Context) ([]Record, error) { return AllActive(ctx, r.DB) }

func (r Repository) ByID(ctx context.Context, id uint64) (*Record, error) {
	return ByID(ctx, r.DB, id)
}

func (r Repository) ByHost(ctx context.Context, host string) (*Record, error) {
	return ByHost(ctx, r.DB, host)
}

func uitoa(n uint64) string { return strconv.FormatUint(n, 10) }

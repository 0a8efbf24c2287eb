// internal/redirect/sqlstore/sqlstore.go
//
// MySQL-backed redirect.Repository.
//
// Context
// -------
// Rows live in one `redirect_entry` table keyed by an auto-increment id and
// scoped by site_id.  The destination variant is stored as two nullable
// columns; exactly one is set for a routable entry and neither for a
// recorded miss.
//
// Schema reference
//
//	CREATE TABLE redirect_entry (
//	    id               BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    site_id          BIGINT UNSIGNED NOT NULL,
//	    source           VARCHAR(1000)   NOT NULL,
//	    is_regex         TINYINT(1)      NOT NULL DEFAULT 0,
//	    redirect_page_id BIGINT UNSIGNED NULL,
//	    redirect_url     VARCHAR(400)    NULL,
//	    status_code      SMALLINT        NOT NULL DEFAULT 302,
//	    is_active        TINYINT(1)      NOT NULL DEFAULT 1,
//	    priority         INT             NOT NULL DEFAULT 0,
//	    is_fallback      TINYINT(1)      NOT NULL DEFAULT 0,
//	    is_builtin       TINYINT(1)      NOT NULL DEFAULT 0,
//	    created_at       TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at       TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
// Notes
// -----
// • Every statement is a single parameterised query, so per-entry atomicity
//   comes from the database.
// • Column list matches `row`; update both together.
// • Oxford commas, two spaces after periods.

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-redirects/internal/redirect"
)

// Migrations creates the table and its lookup indexes.  Statements are
// idempotent.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS redirect_entry (
	    id               BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
	    site_id          BIGINT UNSIGNED NOT NULL,
	    source           VARCHAR(1000)   NOT NULL,
	    is_regex         TINYINT(1)      NOT NULL DEFAULT 0,
	    redirect_page_id BIGINT UNSIGNED NULL,
	    redirect_url     VARCHAR(400)    NULL,
	    status_code      SMALLINT        NOT NULL DEFAULT 302,
	    is_active        TINYINT(1)      NOT NULL DEFAULT 1,
	    priority         INT             NOT NULL DEFAULT 0,
	    is_fallback      TINYINT(1)      NOT NULL DEFAULT 0,
	    is_builtin       TINYINT(1)      NOT NULL DEFAULT 0,
	    created_at       TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    updated_at       TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
	    KEY idx_redirect_site_active (site_id, is_active),
	    KEY idx_redirect_site_source (site_id, source(191))
	)`,
}

const columns = `id, site_id, source, is_regex, redirect_page_id, redirect_url,
	       status_code, is_active, priority, is_fallback, is_builtin,
	       created_at, updated_at`

type row struct {
	ID         uint64         `db:"id"`
	SiteID     uint64         `db:"site_id"`
	Source     string         `db:"source"`
	IsRegex    bool           `db:"is_regex"`
	PageID     sql.NullInt64  `db:"redirect_page_id"`
	URL        sql.NullString `db:"redirect_url"`
	StatusCode int            `db:"status_code"`
	IsActive   bool           `db:"is_active"`
	Priority   int            `db:"priority"`
	IsFallback bool           `db:"is_fallback"`
	IsBuiltin  bool           `db:"is_builtin"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r row) entry() redirect.Entry {
	e := redirect.Entry{
		ID:        r.ID,
		SiteID:    r.SiteID,
		Source:    r.Source,
		IsRegex:   r.IsRegex,
		Status:    redirect.StatusCode(r.StatusCode),
		Active:    r.IsActive,
		Priority:  r.Priority,
		Fallback:  r.IsFallback,
		Builtin:   r.IsBuiltin,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	switch {
	case r.PageID.Valid && r.PageID.Int64 > 0:
		e.Destination = redirect.Page(uint64(r.PageID.Int64))
	case r.URL.Valid && r.URL.String != "":
		e.Destination = redirect.URL(r.URL.String)
	}
	return e
}

// destinationArgs splits a Destination into the two nullable columns.
func destinationArgs(d redirect.Destination) (sql.NullInt64, sql.NullString) {
	switch d.Kind {
	case redirect.DestinationPage:
		return sql.NullInt64{Int64: int64(d.PageID), Valid: d.PageID != 0}, sql.NullString{}
	case redirect.DestinationURL:
		return sql.NullInt64{}, sql.NullString{String: d.URL, Valid: d.URL != ""}
	default:
		return sql.NullInt64{}, sql.NullString{}
	}
}

// Repository implements redirect.Repository on a *sqlx.DB.
type Repository struct {
	db *sqlx.DB
}

var _ redirect.Repository = (*Repository)(nil)

// New returns a Repository using db.
func New(db *sqlx.DB) *Repository { return &Repository{db: db} }

// Migrate applies Migrations in order.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range Migrations {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uint64) (redirect.Entry, error) {
	const q = `SELECT ` + columns + ` FROM redirect_entry WHERE id = ? LIMIT 1`
	var rw row
	if err := r.db.GetContext(ctx, &rw, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return redirect.Entry{}, redirect.ErrNotFound
		}
		return redirect.Entry{}, err
	}
	return rw.entry(), nil
}

func (r *Repository) List(ctx context.Context, f redirect.Filter) ([]redirect.Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.SiteID != 0 {
		where = append(where, "site_id = ?")
		args = append(args, f.SiteID)
	}
	if f.Active != nil {
		where = append(where, "is_active = ?")
		args = append(args, *f.Active)
	}
	if f.IsRegex != nil {
		where = append(where, "is_regex = ?")
		args = append(args, *f.IsRegex)
	}
	if f.Builtin != nil {
		where = append(where, "is_builtin = ?")
		args = append(args, *f.Builtin)
	}
	if len(f.Sources) > 0 {
		where = append(where, "source IN (?)")
		args = append(args, f.Sources)
	}
	if !f.UpdatedBefore.IsZero() {
		where = append(where, "updated_at < ?")
		args = append(args, f.UpdatedBefore)
	}

	q := `SELECT ` + columns + ` FROM redirect_entry`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id`

	if len(f.Sources) > 0 {
		var err error
		q, args, err = sqlx.In(q, args...)
		if err != nil {
			return nil, err
		}
		q = r.db.Rebind(q)
	}

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]redirect.Entry, 0, len(rows))
	for _, rw := range rows {
		out = append(out, rw.entry())
	}
	return out, nil
}

func (r *Repository) Insert(ctx context.Context, e *redirect.Entry) error {
	const q = `
	    INSERT INTO redirect_entry
	           (site_id, source, is_regex, redirect_page_id, redirect_url, status_code,
	            is_active, priority, is_fallback, is_builtin, created_at, updated_at)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	page, url := destinationArgs(e.Destination)
	res, err := r.db.ExecContext(ctx, q,
		e.SiteID, e.Source, e.IsRegex, page, url, int(e.Status),
		e.Active, e.Priority, e.Fallback, e.Builtin, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func (r *Repository) Update(ctx context.Context, e *redirect.Entry) error {
	const q = `
	    UPDATE redirect_entry
	       SET source = ?, is_regex = ?, redirect_page_id = ?, redirect_url = ?,
	           status_code = ?, is_active = ?, priority = ?, is_fallback = ?,
	           is_builtin = ?, updated_at = ?
	     WHERE id = ?`
	page, url := destinationArgs(e.Destination)
	_, err := r.db.ExecContext(ctx, q,
		e.Source, e.IsRegex, page, url, int(e.Status), e.Active, e.Priority,
		e.Fallback, e.Builtin, e.UpdatedAt, e.ID)
	return err
}

func (r *Repository) SetActive(ctx context.Context, id uint64, active bool, at time.Time) error {
	const q = `UPDATE redirect_entry SET is_active = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, active, at, id)
	return err
}

func (r *Repository) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM redirect_entry WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return redirect.ErrNotFound
	}
	return nil
}

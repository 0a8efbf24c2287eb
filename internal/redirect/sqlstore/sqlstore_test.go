// internal/redirect/sqlstore/sqlstore_test.go
//
// Repository tests using sqlmock.
//
// Run: go test ./internal/redirect/sqlstore -v

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-redirects/internal/redirect"
)

var cols = []string{
	"id", "site_id", "source", "is_regex", "redirect_page_id", "redirect_url",
	"status_code", "is_active", "priority", "is_fallback", "is_builtin",
	"created_at", "updated_at",
}

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "mysql")), mock
}

func TestGet(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM redirect_entry WHERE id = \? LIMIT 1`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(7, 1, "/old", false, 42, nil, 301, true, 0, false, false, now, now))

	e, err := repo.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.Destination != redirect.Page(42) || e.Status != redirect.StatusPermanent || !e.Active {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT .* FROM redirect_entry`).
		WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), 9); !errors.Is(err, redirect.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(
		`WHERE site_id = ? AND is_active = ? AND is_regex = ? AND source IN (?, ?) ORDER BY id`)).
		WithArgs(uint64(1), true, false, "/a", "/a/").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(3, 1, "/a", false, nil, "https://x.example/", 302, true, 0, false, false, now, now))

	got, err := repo.List(context.Background(), redirect.Filter{
		SiteID:  1,
		Active:  redirect.Bool(true),
		IsRegex: redirect.Bool(false),
		Sources: []string{"/a", "/a/"},
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Destination != redirect.URL("https://x.example/") {
		t.Fatalf("unexpected rows: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestInsertAssignsID(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO redirect_entry`).
		WillReturnResult(sqlmock.NewResult(55, 1))

	e := redirect.Entry{SiteID: 1, Source: "/a", Destination: redirect.URL("/b"), Status: 302}
	if err := repo.Insert(context.Background(), &e); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if e.ID != 55 {
		t.Fatalf("ID = %d", e.ID)
	}
}

func TestSetActive(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE redirect_entry SET is_active = ?, updated_at = ? WHERE id = ?`)).
		WithArgs(false, at, uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetActive(context.Background(), 4, false, at); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM redirect_entry WHERE id = \?`).
		WithArgs(uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 8); !errors.Is(err, redirect.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// internal/site/site_test.go
//
// Site and site_config queries using sqlmock.
//
// Run: go test ./internal/site -v

package site

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

var siteCols = []string{"id", "host", "title", "root_page_id", "suspended_at", "deleted_at",
	"created_at", "updated_at"}

func newDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func TestByHost(t *testing.T) {
	db, mock := newDB(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM site WHERE host = \?`).
		WithArgs("one.example").
		WillReturnRows(sqlmock.NewRows(siteCols).
			AddRow(1, "one.example", "One", 77, nil, nil, now, now))

	rec, err := Repository{DB: db}.ByHost(context.Background(), "one.example")
	if err != nil {
		t.Fatalf("ByHost: %v", err)
	}
	if rec.ID != 1 || rec.RootPageID == nil || *rec.RootPageID != 77 || rec.Name() != "One" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestByIDNotFound(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectQuery(`SELECT .* FROM site WHERE id = \?`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(siteCols))

	if _, err := ByID(context.Background(), db, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAllActive(t *testing.T) {
	db, mock := newDB(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM site WHERE suspended_at IS NULL AND deleted_at IS NULL ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(siteCols).
			AddRow(1, "one.example", "", nil, nil, nil, now, now).
			AddRow(2, "two.example", "", nil, nil, nil, now, now))

	recs, err := Repository{DB: db}.All(context.Background())
	if err != nil || len(recs) != 2 {
		t.Fatalf("All = %+v, %v", recs, err)
	}
	if recs[0].RootPageID != nil || recs[1].Name() != "two.example" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestConfigBySite(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectQuery("SELECT `key`, value FROM site_config WHERE site_id = ?").
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("redirects.record_misses", "false"))

	cfg, err := ConfigBySite(context.Background(), db, 3)
	if err != nil {
		t.Fatalf("ConfigBySite: %v", err)
	}
	if BoolSetting(cfg, "redirects.record_misses", true) {
		t.Fatalf("site override ignored")
	}
	if !BoolSetting(cfg, "missing", true) || BoolSetting(map[string]string{"x": "maybe"}, "x", false) {
		t.Fatalf("BoolSetting defaults wrong")
	}
}

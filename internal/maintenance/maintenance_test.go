// internal/maintenance/maintenance_test.go
//
// Run: go test ./internal/maintenance -v

package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yanizio/adept-redirects/internal/catalog"
	"github.com/yanizio/adept-redirects/internal/redirect"
	"github.com/yanizio/adept-redirects/internal/site"
)

type sites []site.Record

func (s sites) All(context.Context) ([]site.Record, error) { return s, nil }

func (s sites) ByID(_ context.Context, id uint64) (*site.Record, error) {
	for i := range s {
		if s[i].ID == id {
			return &s[i], nil
		}
	}
	return nil, site.ErrNotFound
}

type recorder struct {
	sites []uint64
	all   int
}

func (r *recorder) Invalidate(id uint64) { r.sites = append(r.sites, id) }
func (r *recorder) InvalidateAll()       { r.all++ }

func newOps(t *testing.T) (*Ops, *redirect.MemoryRepository, *recorder) {
	t.Helper()
	repo := redirect.NewMemoryRepository()
	rec := &recorder{}
	st := redirect.NewStore(repo, rec)
	ss := sites{{ID: 1, Host: "one.example"}, {ID: 2, Host: "two.example"}}
	return &Ops{
		Store:     st,
		Catalog:   catalog.New(catalog.Builtin, st, ss),
		Sites:     ss,
		Cache:     rec,
		Retention: 30 * 24 * time.Hour,
	}, repo, rec
}

func TestClearCache(t *testing.T) {
	ops, _, rec := newOps(t)
	ctx := context.Background()

	if err := ops.ClearCache(ctx, 0); err != nil || rec.all != 1 {
		t.Fatalf("ClearCache(all): err=%v all=%d", err, rec.all)
	}
	if err := ops.ClearCache(ctx, 2); err != nil || len(rec.sites) != 1 || rec.sites[0] != 2 {
		t.Fatalf("ClearCache(2): err=%v sites=%v", err, rec.sites)
	}
	if err := ops.ClearCache(ctx, 9); !errors.Is(err, ErrUnknownSite) {
		t.Fatalf("ClearCache(9): want ErrUnknownSite, got %v", err)
	}
}

func TestCleanEntriesRetention(t *testing.T) {
	ops, repo, rec := newOps(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ops.now = func() time.Time { return now }

	old := now.Add(-60 * 24 * time.Hour)
	seed := []redirect.Entry{
		{SiteID: 1, Source: "/stale", UpdatedAt: old},                                               // purged
		{SiteID: 1, Source: "/fresh", UpdatedAt: now.Add(-time.Hour)},                               // kept: recent
		{SiteID: 2, Source: "/live", Destination: redirect.URL("/x"), Active: true, UpdatedAt: old}, // kept: active
		{SiteID: 2, Source: `/cat/.*`, IsRegex: true, Builtin: true, UpdatedAt: old},                // kept: catalog
	}
	for i := range seed {
		repo.Insert(ctx, &seed[i])
	}

	rep, err := ops.CleanEntries(ctx)
	if err != nil {
		t.Fatalf("CleanEntries: %v", err)
	}
	if rep.Expired != 1 {
		t.Fatalf("Expired = %d", rep.Expired)
	}
	left, _ := repo.List(ctx, redirect.Filter{})
	if len(left) != 3 {
		t.Fatalf("want 3 entries left, got %+v", left)
	}
	if len(rec.sites) != 1 || rec.sites[0] != 1 {
		t.Fatalf("want site 1 invalidated, got %v", rec.sites)
	}
}

func TestCleanEntriesProbes(t *testing.T) {
	ops, repo, _ := newOps(t)
	ctx := context.Background()
	ops.Retention = 0

	seed := []redirect.Entry{
		{SiteID: 1, Source: `(?i)^/\.git(?:/.*)?$`, IsRegex: true, Builtin: true, Active: true, Destination: redirect.URL("/")},
		{SiteID: 1, Source: "/.git/config"},                                    // purged
		{SiteID: 1, Source: "/.git/HEAD", Destination: redirect.URL("/ok")},    // kept: has destination
		{SiteID: 1, Source: "/about-us"},                                       // kept: no match
		{SiteID: 2, Source: "/.git/config"},                                    // kept: site 2 has no active catalog
	}
	for i := range seed {
		repo.Insert(ctx, &seed[i])
	}

	rep, err := ops.CleanEntries(ctx)
	if err != nil {
		t.Fatalf("CleanEntries: %v", err)
	}
	if rep.Probes != 1 || rep.Expired != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if _, err := repo.Get(ctx, 2); !errors.Is(err, redirect.ErrNotFound) {
		t.Fatalf("probe entry survived: %v", err)
	}
}

func TestCleanEntriesMatchesPatternsIgnoringCase(t *testing.T) {
	ops, repo, _ := newOps(t)
	ctx := context.Background()
	ops.Retention = 0

	seed := []redirect.Entry{
		{SiteID: 1, Source: `/wp-admin(?:/.*)?`, IsRegex: true, Builtin: true, Active: true, Destination: redirect.URL("/")},
		{SiteID: 1, Source: "/WP-Admin/setup.php"},
	}
	for i := range seed {
		repo.Insert(ctx, &seed[i])
	}

	rep, err := ops.CleanEntries(ctx)
	if err != nil {
		t.Fatalf("CleanEntries: %v", err)
	}
	if rep.Probes != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if _, err := repo.Get(ctx, seed[1].ID); !errors.Is(err, redirect.ErrNotFound) {
		t.Fatalf("mixed-case entry survived: %v", err)
	}
}

func TestImportAndActivateBuiltin(t *testing.T) {
	ops, repo, _ := newOps(t)
	ctx := context.Background()

	if _, err := ops.ImportBuiltin(ctx, 5); !errors.Is(err, ErrUnknownSite) {
		t.Fatalf("want ErrUnknownSite, got %v", err)
	}
	res, err := ops.ImportBuiltin(ctx, 2)
	if err != nil || len(res) != 1 || res[0].Created != len(catalog.Builtin.Patterns) {
		t.Fatalf("ImportBuiltin: %+v, %v", res, err)
	}
	act, err := ops.ActivateBuiltin(ctx, 2)
	if err != nil || act[0].Activated != len(catalog.Builtin.Patterns) {
		t.Fatalf("ActivateBuiltin: %+v, %v", act, err)
	}
	on, _ := repo.List(ctx, redirect.Filter{SiteID: 2, Active: redirect.Bool(true)})
	if len(on) != len(catalog.Builtin.Patterns) {
		t.Fatalf("want all catalog entries active, got %d", len(on))
	}
	if n, _ := repo.List(ctx, redirect.Filter{SiteID: 1}); len(n) != 0 {
		t.Fatalf("site 1 touched")
	}
}

// internal/catalog/catalog_test.go
//
// Catalog import/activate tests over the in-memory repository.
//
// Run: go test ./internal/catalog -v

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yanizio/adept-redirects/internal/redirect"
	"github.com/yanizio/adept-redirects/internal/site"
)

type fakeSites []site.Record

func (f fakeSites) All(context.Context) ([]site.Record, error) { return f, nil }

func (f fakeSites) ByID(_ context.Context, id uint64) (*site.Record, error) {
	for i := range f {
		if f[i].ID == id {
			return &f[i], nil
		}
	}
	return nil, site.ErrNotFound
}

func newCatalog(t *testing.T, table Table) (*Catalog, *redirect.Store, *redirect.MemoryRepository) {
	t.Helper()
	root := uint64(77)
	repo := redirect.NewMemoryRepository()
	st := redirect.NewStore(repo, nil)
	sites := fakeSites{
		{ID: 1, Host: "one.example", RootPageID: &root},
		{ID: 2, Host: "two.example"},
	}
	return New(table, st, sites), st, repo
}

func TestBuiltinValid(t *testing.T) {
	if err := Builtin.Validate(); err != nil {
		t.Fatalf("Builtin table: %v", err)
	}
	if Builtin.Version == "" {
		t.Fatalf("Builtin table has no version")
	}
}

func TestBuiltinMatchesProbes(t *testing.T) {
	snap, errs := redirect.Build(1, entriesFor(Builtin))
	if len(errs) > 0 {
		t.Fatalf("Build: %v", errs)
	}
	for _, p := range []string{"/.git/config", "/wp-admin/setup.php", "/.env", "/cgi-bin/test.sh", "/backup.sql.gz"} {
		if _, ok := redirect.Resolve(1, p, snap); !ok {
			t.Errorf("%s: expected a catalog match", p)
		}
	}
	for _, p := range []string{"/", "/about", "/blog/2024/hello-world"} {
		if m, ok := redirect.Resolve(1, p, snap); ok {
			t.Errorf("%s: unexpected match %q", p, m.Entry.Source)
		}
	}
}

func entriesFor(t Table) []redirect.Entry {
	out := make([]redirect.Entry, len(t.Patterns))
	for i, p := range t.Patterns {
		out[i] = redirect.Entry{
			ID: uint64(i + 1), SiteID: 1, Source: p.Source, IsRegex: true,
			Destination: redirect.URL("/"), Status: p.Status, Active: true,
			Priority: BasePriority + i*10,
		}
	}
	return out
}

func TestImportIdempotent(t *testing.T) {
	ctx := context.Background()
	c, _, repo := newCatalog(t, Builtin)

	first, err := c.Import(ctx, 0)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(first) != 2 || first[0].Created != len(Builtin.Patterns) {
		t.Fatalf("unexpected first import: %+v", first)
	}
	before, _ := repo.List(ctx, redirect.Filter{})

	second, err := c.Import(ctx, 0)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if second[0].Created != 0 || len(second[0].Skipped) != len(Builtin.Patterns) {
		t.Fatalf("second import changed something: %+v", second[0])
	}
	after, _ := repo.List(ctx, redirect.Filter{})
	if len(before) != len(after) {
		t.Fatalf("entry count changed: %d → %d", len(before), len(after))
	}
	for _, e := range after {
		if e.Active || !e.Builtin || !e.IsRegex {
			t.Fatalf("imported entry has wrong flags: %+v", e)
		}
	}

	present, total, err := c.Status(ctx, 1)
	if err != nil || present != total || total != len(Builtin.Patterns) {
		t.Fatalf("Status = %d/%d, %v", present, total, err)
	}
}

func TestImportUnknownSite(t *testing.T) {
	c, _, _ := newCatalog(t, Builtin)
	if _, err := c.Import(context.Background(), 99); err != site.ErrNotFound {
		t.Fatalf("want site.ErrNotFound, got %v", err)
	}
}

func TestActivateFillsDestinations(t *testing.T) {
	ctx := context.Background()
	table := Table{Version: "t", Patterns: []Pattern{
		{Source: `/legacy/.*`, Rule: RuleSiteRoot, Status: redirect.StatusTemporary},
		{Source: `/shop/.*`, Rule: "/store", Status: redirect.StatusPermanent},
		{Source: `/kept/.*`, Rule: RuleSiteRoot, Status: redirect.StatusTemporary},
	}}
	c, st, repo := newCatalog(t, table)

	if _, err := c.Import(ctx, 0); err != nil {
		t.Fatalf("Import: %v", err)
	}
	kept, _ := repo.List(ctx, redirect.Filter{SiteID: 1, Sources: []string{`/kept/.*`}})
	kept[0].Destination = redirect.URL("/operator-choice")
	if _, err := st.Update(ctx, kept[0]); err != nil {
		t.Fatalf("Update: %v", err)
	}

	res, err := c.Activate(ctx, 1)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if res[0].Activated != 3 || res[0].Filled != 2 {
		t.Fatalf("unexpected result: %+v", res[0])
	}

	want := map[string]redirect.Destination{
		`/legacy/.*`: redirect.Page(77),
		`/shop/.*`:   redirect.URL("/store"),
		`/kept/.*`:   redirect.URL("/operator-choice"),
	}
	rows, _ := repo.List(ctx, redirect.Filter{SiteID: 1})
	for _, e := range rows {
		if !e.Active || e.Destination != want[e.Source] {
			t.Errorf("%s: active=%v dest=%v", e.Source, e.Active, e.Destination)
		}
	}

	// Site 2 has no root page and was not targeted.
	rows, _ = repo.List(ctx, redirect.Filter{SiteID: 2, Active: redirect.Bool(true)})
	if len(rows) != 0 {
		t.Fatalf("site 2 touched: %+v", rows)
	}
	res, _ = c.Activate(ctx, 2)
	rows, _ = repo.List(ctx, redirect.Filter{SiteID: 2, Sources: []string{`/legacy/.*`}})
	if res[0].Activated != 3 || rows[0].Destination != redirect.URL("/") {
		t.Fatalf("root fallback: %+v %+v", res[0], rows[0])
	}
}

func TestLoadAndMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `version: "local-1"
patterns:
  - source: '(?i)^/old-shop/.*'
    rule: /shop
    status: 301
  - source: '(?i)^/\.git(?:/.*)?$'
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	tb, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tb.Patterns[1].Rule != RuleSiteRoot || tb.Patterns[1].Status != redirect.StatusTemporary {
		t.Fatalf("defaults not applied: %+v", tb.Patterns[1])
	}

	merged := Builtin.With(tb)
	if merged.Version != Builtin.Version+"+local-1" {
		t.Fatalf("Version = %q", merged.Version)
	}
	if len(merged.Patterns) != len(Builtin.Patterns)+2 {
		t.Fatalf("want %d patterns, got %d", len(Builtin.Patterns)+2, len(merged.Patterns))
	}
}

func TestLoadRejectsBadPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("patterns:\n  - source: '('\n"), 0o600)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected compile error")
	}
}

// internal/catalog/catalog.go
//
// Built-in redirect catalog: a versioned table of regex patterns that can be
// imported into a site's store and activated in bulk.
//
// Context
// -------
// The table is read-only data handed to New; nothing here keeps global
// mutable state.  Imported rows are ordinary redirect entries flagged
// Builtin, so the matcher, cache, and toggle endpoint treat them like any
// other entry.
//
// Lifecycle
// ---------
//   - Import(site) inserts every pattern the site does not already hold as
//     an inactive regex entry.  Running it twice changes nothing.
//   - Activate(site) switches on every inactive Builtin entry.  Empty
//     destinations are filled from the pattern's Rule first; destinations an
//     operator already set are kept.
//   - Status(site) counts how many table patterns the site holds.
//
// A zero site id means "every live site".
//
// Notes
// -----
// • Catalog priorities start at BasePriority so operator patterns, which
//   default to 0, are tried first.
// • Oxford commas, two spaces after periods.

package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/adept-redirects/internal/redirect"
	"github.com/yanizio/adept-redirects/internal/site"
)

// BasePriority is the priority of the first catalog pattern; later patterns
// step by 10.
const BasePriority = 10000

// Rule says how Activate fills an empty destination.
//
//	site_root      root page of the site, or "/" when it has none
//	/path, https:  that URL, verbatim
type Rule string

const RuleSiteRoot Rule = "site_root"

// Pattern is one catalog row.
type Pattern struct {
	Source string              `yaml:"source"`
	Rule   Rule                `yaml:"rule"`
	Status redirect.StatusCode `yaml:"status"`
}

// Table is a versioned, ordered pattern list.
type Table struct {
	Version  string    `yaml:"version"`
	Patterns []Pattern `yaml:"patterns"`
}

// Sources lists the pattern strings in table order.
func (t Table) Sources() []string {
	out := make([]string, len(t.Patterns))
	for i, p := range t.Patterns {
		out[i] = p.Source
	}
	return out
}

// With returns t followed by the patterns of extra that t lacks.  The
// version string records both.
func (t Table) With(extra Table) Table {
	seen := make(map[string]struct{}, len(t.Patterns))
	out := Table{Version: t.Version, Patterns: append([]Pattern(nil), t.Patterns...)}
	for _, p := range t.Patterns {
		seen[p.Source] = struct{}{}
	}
	for _, p := range extra.Patterns {
		if _, dup := seen[p.Source]; dup {
			continue
		}
		seen[p.Source] = struct{}{}
		out.Patterns = append(out.Patterns, p)
	}
	if extra.Version != "" {
		out.Version = t.Version + "+" + extra.Version
	}
	return out
}

// Validate compiles every pattern and checks rules and status codes.
func (t Table) Validate() error {
	for i, p := range t.Patterns {
		if strings.TrimSpace(p.Source) == "" {
			return fmt.Errorf("pattern %d: empty source", i)
		}
		if _, err := redirect.Compile(p.Source); err != nil {
			return fmt.Errorf("pattern %d %q: %w", i, p.Source, err)
		}
		if !p.Status.Valid() {
			return fmt.Errorf("pattern %d %q: status %d", i, p.Source, p.Status)
		}
		if _, err := p.Rule.fixed(); err != nil {
			return fmt.Errorf("pattern %d %q: %w", i, p.Source, err)
		}
	}
	return nil
}

// fixed returns the URL of a non-site_root rule.
func (r Rule) fixed() (string, error) {
	switch {
	case r == RuleSiteRoot || r == "":
		return "", nil
	case strings.HasPrefix(string(r), "/"),
		strings.HasPrefix(string(r), "http://"),
		strings.HasPrefix(string(r), "https://"):
		return string(r), nil
	default:
		return "", fmt.Errorf("unknown rule %q", string(r))
	}
}

// destination resolves r for rec.
func (r Rule) destination(rec site.Record) redirect.Destination {
	if u, _ := r.fixed(); u != "" {
		return redirect.URL(u)
	}
	if rec.RootPageID != nil && *rec.RootPageID != 0 {
		return redirect.Page(*rec.RootPageID)
	}
	return redirect.URL("/")
}

// Sites enumerates the sites a catalog operation can target.
// site.Repository satisfies it.
type Sites interface {
	All(ctx context.Context) ([]site.Record, error)
	ByID(ctx context.Context, id uint64) (*site.Record, error)
}

// Catalog applies a Table to sites through a redirect.Store.
type Catalog struct {
	table Table
	store *redirect.Store
	sites Sites
}

// New returns a Catalog for t.
func New(t Table, st *redirect.Store, sites Sites) *Catalog {
	return &Catalog{table: t, store: st, sites: sites}
}

// Table returns the table the catalog was built with.
func (c *Catalog) Table() Table { return c.table }

// ImportResult reports one site's import.
type ImportResult struct {
	Site    site.Record
	Created int
	Skipped []string // sources the site already held
	Errors  []string
}

// ActivateResult reports one site's activation.
type ActivateResult struct {
	Site      site.Record
	Activated int
	Filled    int // of Activated, how many got a destination from the rule
	Skipped   []string
}

// Targets returns the site with id, or every live site when id is zero.
func (c *Catalog) Targets(ctx context.Context, id uint64) ([]site.Record, error) {
	if id == 0 {
		return c.sites.All(ctx)
	}
	rec, err := c.sites.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return []site.Record{*rec}, nil
}

// Import inserts missing catalog patterns as inactive entries.
func (c *Catalog) Import(ctx context.Context, siteID uint64) ([]ImportResult, error) {
	recs, err := c.Targets(ctx, siteID)
	if err != nil {
		return nil, err
	}
	out := make([]ImportResult, 0, len(recs))
	for _, rec := range recs {
		res, err := c.importSite(ctx, rec)
		if err != nil {
			return out, fmt.Errorf("site %d: %w", rec.ID, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func (c *Catalog) importSite(ctx context.Context, rec site.Record) (ImportResult, error) {
	res := ImportResult{Site: rec}
	have, err := c.present(ctx, rec.ID)
	if err != nil {
		return res, err
	}
	for i, p := range c.table.Patterns {
		if _, ok := have[p.Source]; ok {
			res.Skipped = append(res.Skipped, p.Source)
			continue
		}
		_, err := c.store.Create(ctx, redirect.Entry{
			SiteID:   rec.ID,
			Source:   p.Source,
			IsRegex:  true,
			Status:   p.Status,
			Priority: BasePriority + i*10,
			Builtin:  true,
		})
		switch {
		case err == nil:
			res.Created++
		case redirect.IsValidationError(err):
			res.Errors = append(res.Errors, p.Source+": "+err.Error())
		default:
			return res, err
		}
	}
	zap.L().Info("catalog imported",
		zap.Uint64("site_id", rec.ID),
		zap.String("version", c.table.Version),
		zap.Int("created", res.Created),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

// Activate switches on every inactive Builtin entry of the target sites.
func (c *Catalog) Activate(ctx context.Context, siteID uint64) ([]ActivateResult, error) {
	recs, err := c.Targets(ctx, siteID)
	if err != nil {
		return nil, err
	}
	rules := make(map[string]Rule, len(c.table.Patterns))
	for _, p := range c.table.Patterns {
		rules[p.Source] = p.Rule
	}

	out := make([]ActivateResult, 0, len(recs))
	for _, rec := range recs {
		entries, err := c.store.List(ctx, redirect.Filter{
			SiteID:  rec.ID,
			Builtin: redirect.Bool(true),
			Active:  redirect.Bool(false),
		})
		if err != nil {
			return out, fmt.Errorf("site %d: %w", rec.ID, err)
		}

		res := ActivateResult{Site: rec}
		batch := make([]redirect.Entry, 0, len(entries))
		for _, e := range entries {
			filled := e.Destination.Empty()
			if filled {
				e.Destination = rules[e.Source].destination(rec)
			}
			e.Active = true
			if err := redirect.Validate(e); err != nil {
				zap.L().Warn("catalog entry not activated",
					zap.Uint64("site_id", rec.ID),
					zap.Uint64("entry_id", e.ID),
					zap.Error(err))
				res.Skipped = append(res.Skipped, e.Source)
				continue
			}
			if filled {
				res.Filled++
			}
			batch = append(batch, e)
		}
		n, err := c.store.UpdateMany(ctx, batch)
		res.Activated = n
		if err != nil {
			return append(out, res), fmt.Errorf("site %d: %w", rec.ID, err)
		}
		zap.L().Info("catalog activated",
			zap.Uint64("site_id", rec.ID),
			zap.Int("activated", res.Activated),
			zap.Int("filled", res.Filled))
		out = append(out, res)
	}
	return out, nil
}

// Status reports how many table patterns siteID already holds, and the
// table size.
func (c *Catalog) Status(ctx context.Context, siteID uint64) (present, total int, err error) {
	have, err := c.present(ctx, siteID)
	if err != nil {
		return 0, 0, err
	}
	return len(have), len(c.table.Patterns), nil
}

// present returns the table sources siteID holds as regex entries.
func (c *Catalog) present(ctx context.Context, siteID uint64) (map[string]struct{}, error) {
	if len(c.table.Patterns) == 0 {
		return map[string]struct{}{}, nil
	}
	rows, err := c.store.List(ctx, redirect.Filter{
		SiteID:  siteID,
		IsRegex: redirect.Bool(true),
		Sources: c.table.Sources(),
	})
	if err != nil {
		return nil, err
	}
	have := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		have[r.Source] = struct{}{}
	}
	return have, nil
}

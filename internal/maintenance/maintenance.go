// internal/maintenance/maintenance.go
//
// Operator maintenance operations behind the `redirects` command.
//
// Context
// -------
// Each operation is a thin wrapper: validate the site argument, then call
// into the cache, the store, or the catalog.  None of them holds state of
// its own, so the same Ops value serves the CLI and tests.
//
//	ClearCache(site?)        invalidate one site or all sites
//	CleanEntries()           purge stale inactive entries and probe noise
//	ImportBuiltin(site?)     catalog.Import
//	ActivateBuiltin(site?)   catalog.Activate
//
// A zero site id means "every site".  An id that names no live site is
// reported as ErrUnknownSite so callers can treat it as a usage error.

package maintenance

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/adept-redirects/internal/catalog"
	"github.com/yanizio/adept-redirects/internal/redirect"
	"github.com/yanizio/adept-redirects/internal/site"
)

// DefaultRetention is how long an inactive entry survives without edits.
const DefaultRetention = 180 * 24 * time.Hour

// ErrUnknownSite is returned when a site id names no live site.
var ErrUnknownSite = errors.New("unknown site id")

// Ops bundles the collaborators the operations need.
type Ops struct {
	Store   *redirect.Store
	Catalog *catalog.Catalog
	Sites   catalog.Sites

	// Cache receives ClearCache.  In the CLI this is the broadcast
	// publisher, so running web instances drop their snapshots.
	Cache redirect.Invalidator

	// Retention ≤ 0 disables the age-based half of CleanEntries.
	Retention time.Duration

	now func() time.Time
}

func (o *Ops) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

// checkSite maps a missing site to ErrUnknownSite.  Zero is always valid.
func (o *Ops) checkSite(ctx context.Context, id uint64) error {
	if id == 0 {
		return nil
	}
	if _, err := o.Sites.ByID(ctx, id); err != nil {
		if errors.Is(err, site.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrUnknownSite, id)
		}
		return err
	}
	return nil
}

// ClearCache drops cached snapshots.  Idempotent.
func (o *Ops) ClearCache(ctx context.Context, siteID uint64) error {
	if err := o.checkSite(ctx, siteID); err != nil {
		return err
	}
	if siteID == 0 {
		o.Cache.InvalidateAll()
	} else {
		o.Cache.Invalidate(siteID)
	}
	zap.L().Info("redirect cache cleared", zap.Uint64("site_id", siteID))
	return nil
}

// CleanReport summarises one CleanEntries run.
type CleanReport struct {
	Expired int // inactive entries past retention
	Probes  int // destination-less literals matched by an active catalog pattern
}

// CleanEntries hard-deletes
//
//   - inactive, non-catalog entries untouched for longer than Retention, and
//   - destination-less literal entries (recorded misses) whose path is
//     matched by one of their site's active catalog patterns.
//
// The store invalidates every affected site.
func (o *Ops) CleanEntries(ctx context.Context) (CleanReport, error) {
	var rep CleanReport

	if o.Retention > 0 {
		stale, err := o.Store.List(ctx, redirect.Filter{
			Active:        redirect.Bool(false),
			Builtin:       redirect.Bool(false),
			UpdatedBefore: o.clock().Add(-o.Retention),
		})
		if err != nil {
			return rep, err
		}
		n, err := o.Store.Purge(ctx, ids(stale))
		rep.Expired = n
		if err != nil {
			return rep, err
		}
	}

	sites, err := o.Sites.All(ctx)
	if err != nil {
		return rep, err
	}
	for _, s := range sites {
		n, err := o.cleanProbes(ctx, s.ID)
		rep.Probes += n
		if err != nil {
			return rep, fmt.Errorf("site %d: %w", s.ID, err)
		}
	}

	zap.L().Info("redirect entries cleaned",
		zap.Int("expired", rep.Expired),
		zap.Int("probes", rep.Probes))
	return rep, nil
}

func (o *Ops) cleanProbes(ctx context.Context, siteID uint64) (int, error) {
	patterns, err := o.Store.List(ctx, redirect.Filter{
		SiteID:  siteID,
		Active:  redirect.Bool(true),
		Builtin: redirect.Bool(true),
		IsRegex: redirect.Bool(true),
	})
	if err != nil || len(patterns) == 0 {
		return 0, err
	}
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := redirect.Compile(p.Source)
		if err != nil {
			zap.L().Warn("catalog pattern skipped during clean",
				zap.Uint64("site_id", siteID), zap.String("pattern", p.Source), zap.Error(err))
			continue
		}
		res = append(res, re)
	}

	literals, err := o.Store.List(ctx, redirect.Filter{SiteID: siteID, IsRegex: redirect.Bool(false)})
	if err != nil {
		return 0, err
	}
	var doomed []uint64
	for _, e := range literals {
		if !e.Destination.Empty() {
			continue
		}
		path := redirect.NormalizePath(e.Source)
		for _, re := range res {
			if re.MatchString(path) {
				doomed = append(doomed, e.ID)
				break
			}
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	return o.Store.Purge(ctx, doomed)
}

// ImportBuiltin imports the catalog into one site or all sites.
func (o *Ops) ImportBuiltin(ctx context.Context, siteID uint64) ([]catalog.ImportResult, error) {
	if err := o.checkSite(ctx, siteID); err != nil {
		return nil, err
	}
	return o.Catalog.Import(ctx, siteID)
}

// ActivateBuiltin activates imported catalog entries for one site or all
// sites.
func (o *Ops) ActivateBuiltin(ctx context.Context, siteID uint64) ([]catalog.ActivateResult, error) {
	if err := o.checkSite(ctx, siteID); err != nil {
		return nil, err
	}
	return o.Catalog.Activate(ctx, siteID)
}

func ids(entries []redirect.Entry) []uint64 {
	out := make([]uint64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

// internal/redirect/resolver.go
//
// Resolver ties the cache, the matcher, and the host's page lookup
// together for the not-found path.
//
// Resolution must never fail a request.  Store read errors, skipped
// patterns, and page lookups that come back empty are logged and reported
// as "no match", leaving the host's 404 in place.

package redirect

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/adept-redirects/internal/metrics"
)

// PageURLs is the host's "internal page reference → canonical URL" lookup.
type PageURLs interface {
	PageURL(ctx context.Context, siteID, pageID uint64) (string, error)
}

// Target is a resolved redirect ready to be written.
type Target struct {
	Entry    Entry
	Location string
	Status   int
}

// Resolver is safe for concurrent use.
type Resolver struct {
	cache *Cache
	pages PageURLs
}

// NewResolver returns a Resolver.  pages may be nil when no entry uses page
// destinations; such entries then never match.
func NewResolver(c *Cache, pages PageURLs) *Resolver {
	return &Resolver{cache: c, pages: pages}
}

// Resolve returns the redirect target for path on siteID, if any.
func (r *Resolver) Resolve(ctx context.Context, siteID uint64, path string) (Target, bool) {
	return r.ResolveRequest(ctx, siteID, path, "")
}

// ResolveRequest is Resolve with the request's raw query, which patterns
// may match against.
func (r *Resolver) ResolveRequest(ctx context.Context, siteID uint64, path, rawQuery string) (Target, bool) {
	snap, err := r.cache.Get(ctx, siteID)
	if err != nil {
		metrics.RedirectResolveTotal.WithLabelValues(metrics.OutcomeError).Inc()
		zap.L().Error("redirect snapshot unavailable",
			zap.Uint64("site_id", siteID), zap.Error(err))
		return Target{}, false
	}

	m, ok := ResolveQuery(siteID, path, rawQuery, snap)
	if !ok {
		metrics.RedirectResolveTotal.WithLabelValues(metrics.OutcomeMiss).Inc()
		return Target{}, false
	}

	loc := m.Location
	if m.Entry.Destination.Kind == DestinationPage {
		loc = r.pageURL(ctx, siteID, m.Entry)
	}
	if loc == "" {
		metrics.RedirectResolveTotal.WithLabelValues(metrics.OutcomeMiss).Inc()
		return Target{}, false
	}

	outcome := metrics.OutcomeExact
	if m.Entry.IsRegex {
		outcome = metrics.OutcomeRegex
	}
	metrics.RedirectResolveTotal.WithLabelValues(outcome).Inc()
	return Target{Entry: m.Entry, Location: loc, Status: int(m.Entry.Status)}, true
}

func (r *Resolver) pageURL(ctx context.Context, siteID uint64, e Entry) string {
	if r.pages == nil {
		zap.L().Warn("page destination without page lookup",
			zap.Uint64("site_id", siteID), zap.Uint64("entry_id", e.ID))
		return ""
	}
	u, err := r.pages.PageURL(ctx, siteID, e.Destination.PageID)
	if err != nil {
		zap.L().Warn("page destination lookup failed",
			zap.Uint64("site_id", siteID),
			zap.Uint64("entry_id", e.ID),
			zap.Uint64("page_id", e.Destination.PageID),
			zap.Error(err))
		return ""
	}
	return u
}

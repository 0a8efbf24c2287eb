// internal/pages/pages.go
//
// Page URL lookup for redirect entries that point at an internal page.
//
// Context
// -------
// The host page tree owns page URLs; this package only reads the canonical
// `url_path` column and caches the answer for a short TTL so a busy redirect
// does not query the page table on every hit.  Pages that moved show their
// new URL once the TTL lapses or Forget is called for the site.
//
// Notes
// -----
// • Misses are not cached; a page created a moment later resolves on the
//   next request.
package pages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-redirects/internal/cache"
)

const (
	DefaultCapacity = 4096
	DefaultTTL      = 5 * time.Minute
)

// ErrNotFound is returned for a page id that is missing, deleted, or owned
// by another site.
var ErrNotFound = errors.New("page not found")

type key struct {
	site, page uint64
}

// Lookup implements redirect.PageURLs on the `page` table.
type Lookup struct {
	db  *sqlx.DB
	lru *cache.LRU[key, string]
}

// New returns a Lookup with the default capacity and TTL.
func New(db *sqlx.DB) *Lookup {
	return &Lookup{db: db, lru: cache.New[key, string](DefaultCapacity, DefaultTTL)}
}

// PageURL returns the canonical path of pageID on siteID.
func (l *Lookup) PageURL(ctx context.Context, siteID, pageID uint64) (string, error) {
	k := key{siteID, pageID}
	if u, ok := l.lru.Get(k); ok {
		return u, nil
	}

	const q = `
	    SELECT url_path
	    FROM   page
	    WHERE  id = ?
	      AND  site_id = ?
	      AND  deleted_at IS NULL
	    LIMIT  1`
	var u string
	if err := l.db.GetContext(ctx, &u, q, pageID, siteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: site %d page %d", ErrNotFound, siteID, pageID)
		}
		return "", err
	}
	if u == "" {
		u = "/"
	}
	l.lru.Add(k, u)
	return u, nil
}

// Forget drops cached URLs of one site.
func (l *Lookup) Forget(siteID uint64) int {
	return l.lru.RemoveFunc(func(k key) bool { return k.site == siteID })
}

// Invalidate and InvalidateAll let Lookup sit in a redirect.Fanout, so a
// redirect cache clear also drops page URLs.
func (l *Lookup) Invalidate(siteID uint64) { l.Forget(siteID) }

func (l *Lookup) InvalidateAll() { l.lru.RemoveFunc(func(key) bool { return true }) }

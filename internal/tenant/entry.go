// internal/tenant/entry.go
//
// Tenant cache entry and aggregate.
//
// Context
// -------
// A live Tenant aggregates what the redirect layer needs to serve a single
// host: its `site` row and the in-memory `site_config` map.  The cache
// stores a pointer to Tenant inside `entry`, along with a `lastSeen`
// UnixNano timestamp used by the evictor for idle and LRU eviction.
//
// Notes
// -----
//   - Tenant is immutable after load; handlers share one pointer.
//   - Oxford commas, two spaces after periods.
package tenant

import "github.com/yanizio/adept-redirects/internal/site"

//
// Cache entry
//

type entry struct {
	tenant   *Tenant
	lastSeen int64 // UnixNano
}

//
// Tenant aggregate
//

// Tenant groups the per-site state request handlers read.
type Tenant struct {
	Site   site.Record       // Row from `site`
	Config map[string]string // Key-value pairs from `site_config`
}

// ID is the site id redirect entries are scoped by.
func (t *Tenant) ID() uint64 { return t.Site.ID }

// Host is the host the tenant was loaded for.
func (t *Tenant) Host() string { return t.Site.Host }

// RecordMisses reports whether unmatched 404 paths of this site are stored
// for operators.  A `redirects.record_misses` site_config row overrides def.
func (t *Tenant) RecordMisses(def bool) bool {
	return site.BoolSetting(t.Config, "redirects.record_misses", def)
}

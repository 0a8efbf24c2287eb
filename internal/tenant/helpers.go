// internal/tenant/helpers.go
//
// Tenant helper functions shared across loader, middleware, and tests.
//
//   • `resolveLookupHost` maps the literal Host header “localhost” to an
//     alias defined via `ADEPT_LOCALHOST_ALIAS` or `database.localhost_alias`
//     so dev instances can masquerade as any real site row.
//
//   • `StripPort` removes the :port suffix from a Host header.
//
// Notes
// -----
// • No logging here; caller decides what to log.

package tenant

import (
	"net"
	"os"

	"github.com/yanizio/adept-redirects/internal/config"
)

// resolveLookupHost returns the host string that should be used when
// querying the `site` table.
func resolveLookupHost(h string) string {
	if h != "localhost" {
		return h
	}
	if alias := os.Getenv("ADEPT_LOCALHOST_ALIAS"); alias != "" {
		return alias
	}
	if cfg := config.Get(); cfg != nil && cfg.Database.LocalhostAlias != "" {
		return cfg.Database.LocalhostAlias
	}
	return "devlocal"
}

// StripPort removes :port from the Host header when present.
func StripPort(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		return host
	}
	return h
}

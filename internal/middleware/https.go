// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"context"
	"net/http"

	"github.com/yanizio/adept-redirects/internal/tenant"
)

// Hosts is satisfied by *tenant.Cache.
type Hosts interface {
	Get(ctx context.Context, host string) (*tenant.Tenant, error)
}

// ForceHTTPS wraps h.  If the request is plain HTTP, the host is not
// “localhost”, and hosts confirms the site exists, the wrapper issues a 308
// Permanent Redirect to the HTTPS version of the same URL.  Otherwise it
// calls the next handler unchanged.
//
// A TLS-terminating proxy that sets X-Forwarded-Proto: https counts as
// HTTPS.
func ForceHTTPS(hosts Hosts, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := tenant.StripPort(r.Host)

		// Already HTTPS or dev host → continue.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" || host == "localhost" {
			h.ServeHTTP(w, r)
			return
		}

		// Only redirect if the host exists in the site table.
		if _, err := hosts.Get(r.Context(), host); err == nil {
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}

		// Unknown host → keep normal flow (likely 404 later).
		h.ServeHTTP(w, r)
	})
}

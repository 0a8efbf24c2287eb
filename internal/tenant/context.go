package tenant

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type ctxKey struct{}

// WithTenant stores t in ctx.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the Tenant stored by Middleware, if any.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(ctxKey{}).(*Tenant)
	return t, ok && t != nil
}

// Middleware resolves the request host through c and stores the Tenant in
// the request context.  Unknown hosts, and hosts whose lookup fails, pass
// through without one; downstream handlers decide what that means.
func Middleware(c *Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := StripPort(r.Host)
			t, err := c.Get(r.Context(), host)
			switch {
			case err == nil:
				r = r.WithContext(WithTenant(r.Context(), t))
			case errors.Is(err, ErrNotFound):
			default:
				zap.L().Error("tenant lookup failed", zap.String("host", host), zap.Error(err))
			}
			next.ServeHTTP(w, r)
		})
	}
}

package tenant

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adept-redirects/internal/site"
)

// Loader turns host → *Tenant.  It returns ErrNotFound for unknown hosts.
type Loader func(ctx context.Context, host string) (*Tenant, error)

// DBLoader loads tenants from the global database.  Steps:
//
//  1. Fetch site row (with the localhost alias applied).
//  2. Fetch key-value config rows.
func DBLoader(db *sqlx.DB) Loader {
	return func(ctx context.Context, host string) (*Tenant, error) {
		// 1. site row
		rec, err := site.ByHost(ctx, db, resolveLookupHost(host))
		if err != nil {
			if errors.Is(err, site.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}

		// 2. key-value config
		cfg, err := site.ConfigBySite(ctx, db, rec.ID)
		if err != nil {
			return nil, err
		}
		return &Tenant{Site: *rec, Config: cfg}, nil
	}
}

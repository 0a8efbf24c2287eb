package acl

import (
	"context"
	"database/sql"
)

// Component and action checked before a redirect entry is changed.
const (
	ComponentRedirects = "redirects"
	ActionChange       = "change"
)

// SiteAuthorizer answers "may user U change redirects on site S" from the
// ACL tables.
type SiteAuthorizer struct {
	DB *sql.DB
}

// CanChange reports whether userID holds a role permitted to change
// redirects on siteID.
func (a SiteAuthorizer) CanChange(ctx context.Context, userID int64, siteID uint64) (bool, error) {
	roles, err := UserRoles(ctx, a.DB, userID, siteID)
	if err != nil {
		return false, err
	}
	return RoleAllowed(ctx, a.DB, roles, ComponentRedirects, ActionChange)
}

package site

import "time"

// Record mirrors one row in the persistent `site` table.  The operational
// state is captured by two nullable timestamps:
//
//   - SuspendedAt – site is temporarily disabled (e.g., billing).
//   - DeletedAt   – site is permanently removed.
//
// Either timestamp being non-NULL hides the site from host lookups and from
// the maintenance commands.
//
// RootPageID is the site's home page in the host page tree.  Nil when the
// site has no root page yet; catalog activation then falls back to "/".
type Record struct {
	ID          uint64     `db:"id"`
	Host        string     `db:"host"`
	Title       string     `db:"title"`
	RootPageID  *uint64    `db:"root_page_id"`
	SuspendedAt *time.Time `db:"suspended_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Name is what operator output shows for the site.
func (r Record) Name() string {
	switch {
	case r.Title != "":
		return r.Title
	case r.Host != "":
		return r.Host
	default:
		return "site " + uitoa(r.ID)
	}
}

// internal/redirect/entry.go
//
// Redirect entry model.
//
// Context
// -------
// One Entry is one operator-visible redirect rule scoped to a single site.
// The source is either a literal path or a regular expression (IsRegex), and
// the destination is either an internal page reference or a URL.  Entries
// are owned by the Repository; the resolution cache only ever holds copies.
//
// Notes
// -----
// • An inactive entry may have an empty destination (recorded misses and
//   freshly imported catalog patterns start that way).  Activation requires
//   a destination.
// • Oxford commas, two spaces after periods.

package redirect

import (
	"fmt"
	"time"
)

// StatusCode is the HTTP status written for a matched redirect.
type StatusCode int

const (
	StatusPermanent StatusCode = 301
	StatusTemporary StatusCode = 302
)

// Valid reports whether s is one of the two supported redirect codes.
func (s StatusCode) Valid() bool {
	return s == StatusPermanent || s == StatusTemporary
}

// DestinationKind selects how Destination is turned into a Location.
type DestinationKind int

const (
	DestinationNone DestinationKind = iota
	DestinationPage                 // internal page reference, resolved per request
	DestinationURL                  // absolute URL or site-relative path
)

// Destination is the redirect target.  Exactly one of PageID or URL is
// meaningful, selected by Kind.
type Destination struct {
	Kind   DestinationKind
	PageID uint64
	URL    string
}

// Page returns an InternalPage destination.
func Page(id uint64) Destination { return Destination{Kind: DestinationPage, PageID: id} }

// URL returns an ExternalUrl destination.
func URL(u string) Destination { return Destination{Kind: DestinationURL, URL: u} }

// Empty reports whether the destination cannot resolve to any target.
func (d Destination) Empty() bool {
	switch d.Kind {
	case DestinationPage:
		return d.PageID == 0
	case DestinationURL:
		return d.URL == ""
	default:
		return true
	}
}

func (d Destination) String() string {
	switch d.Kind {
	case DestinationPage:
		return fmt.Sprintf("page:%d", d.PageID)
	case DestinationURL:
		return d.URL
	default:
		return "-"
	}
}

// Entry mirrors one row in `redirect_entry`.
type Entry struct {
	ID          uint64
	SiteID      uint64
	Source      string
	IsRegex     bool
	Destination Destination
	Status      StatusCode
	Active      bool
	Priority    int
	Fallback    bool // regex entries only: evaluated after all non-fallback patterns
	Builtin     bool // created by a catalog import
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// before orders regex entries for evaluation: non-fallback first, then
// ascending priority, then ascending id.
func (e Entry) before(o Entry) bool {
	if e.Fallback != o.Fallback {
		return !e.Fallback
	}
	if e.Priority != o.Priority {
		return e.Priority < o.Priority
	}
	return e.ID < o.ID
}

// Filter narrows List results.  Zero fields do not filter.
type Filter struct {
	SiteID  uint64
	Active  *bool
	IsRegex *bool
	Builtin *bool
	Sources []string

	// UpdatedBefore keeps entries last touched strictly before this instant.
	UpdatedBefore time.Time
}

// Bool is a small helper for building Filter literals.
func Bool(b bool) *bool { return &b }

package redirect

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for toggle, update, get, and delete on an
	// unknown id.
	ErrNotFound = errors.New("redirect entry not found")

	// ErrForbidden is returned when the caller may not change entries of
	// the target site.
	ErrForbidden = errors.New("not permitted to change redirects for this site")
)

// ValidationError rejects a write before it reaches the repository.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RebuildError describes one stored entry that could not be compiled while
// building a snapshot.  The entry is left out of the snapshot; the rest of
// the site keeps resolving.
type RebuildError struct {
	SiteID  uint64
	EntryID uint64
	Pattern string
	Err     error
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("site %d: entry %d: pattern %q: %v", e.SiteID, e.EntryID, e.Pattern, e.Err)
}

func (e *RebuildError) Unwrap() error { return e.Err }

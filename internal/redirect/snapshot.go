// internal/redirect/snapshot.go
//
// Immutable per-site resolution snapshot.
//
// A Snapshot is built in one pass over a site's entries: active literal
// entries go into an exact-match map keyed by normalised path, and active
// regex entries are compiled once and kept in evaluation order.  Nothing
// mutates a Snapshot after Build returns, so readers share it without locks.

package redirect

import (
	"regexp"
	"sort"
	"time"
)

type compiled struct {
	re      *regexp.Regexp
	entry   Entry
	rawPath bool // slash-sensitive pattern, see validate.go
}

// Snapshot is the derived, disposable view the matcher reads.
type Snapshot struct {
	SiteID  uint64
	BuiltAt time.Time

	exact map[string]Entry
	regex []compiled
	gen   uint64
}

// Build assembles a Snapshot for siteID from entries.  Entries of other
// sites and inactive entries are ignored.  A regex that no longer compiles
// is skipped and reported as a *RebuildError; the snapshot is still usable.
func Build(siteID uint64, entries []Entry) (*Snapshot, []error) {
	s := &Snapshot{
		SiteID:  siteID,
		BuiltAt: time.Now(),
		exact:   make(map[string]Entry),
	}

	var errs []error
	for _, e := range entries {
		if e.SiteID != siteID || !e.Active {
			continue
		}
		if !e.IsRegex {
			key := NormalizePath(e.Source)
			// Two active rows for one path can only come from outside
			// the store; the older id wins deterministically.
			if prev, dup := s.exact[key]; dup && prev.ID < e.ID {
				continue
			}
			s.exact[key] = e
			continue
		}
		re, err := Compile(e.Source)
		if err != nil {
			errs = append(errs, &RebuildError{SiteID: siteID, EntryID: e.ID, Pattern: e.Source, Err: err})
			continue
		}
		s.regex = append(s.regex, compiled{re: re, entry: e, rawPath: slashSensitive(e.Source)})
	}

	sort.SliceStable(s.regex, func(i, j int) bool {
		return s.regex[i].entry.before(s.regex[j].entry)
	})
	return s, errs
}

// Len reports how many entries the snapshot can match.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.exact) + len(s.regex)
}

// internal/redirect/matcher.go
//
// Pattern matcher: (site, path, snapshot) → Match.
//
// Algorithm
// ---------
//  1. Exact lookup on the normalised path.  A literal entry always beats any
//     pattern, whatever its priority.
//  2. Regex entries in snapshot order (non-fallback, priority, id); the
//     first full-path match wins.
//  3. Otherwise no match and the caller keeps its own 404.
//
// The matcher performs no I/O.  Internal page destinations are left for the
// Resolver to turn into URLs.

package redirect

// Match is a successful resolution.
type Match struct {
	Entry Entry

	// Location is the URL destination with capture groups expanded.  It is
	// empty for page destinations.
	Location string
}

// Resolve matches path against snap.  A nil snapshot or one built for a
// different site never matches.
func Resolve(siteID uint64, path string, snap *Snapshot) (Match, bool) {
	return ResolveQuery(siteID, path, "", snap)
}

// ResolveQuery is Resolve for a request that carried a query string.  Exact
// entries match the path alone; patterns are tried against "path?query"
// first and then against the path.
func ResolveQuery(siteID uint64, path, rawQuery string, snap *Snapshot) (Match, bool) {
	if snap == nil || snap.SiteID != siteID {
		return Match{}, false
	}

	norm := NormalizePath(path)
	if e, ok := snap.exact[norm]; ok && e.Active {
		m := Match{Entry: e}
		if e.Destination.Kind == DestinationURL {
			m.Location = e.Destination.URL
		}
		return m, true
	}

	for _, c := range snap.regex {
		candidate := norm
		if c.rawPath {
			candidate = path
		}
		var idx []int
		if rawQuery != "" {
			// The query-bearing form wins; the bare path still matches
			// patterns written without a query tail.
			full := candidate + "?" + rawQuery
			if idx = c.re.FindStringSubmatchIndex(full); idx != nil {
				candidate = full
			}
		}
		if idx == nil {
			idx = c.re.FindStringSubmatchIndex(candidate)
		}
		if idx == nil {
			continue
		}
		m := Match{Entry: c.entry}
		if c.entry.Destination.Kind == DestinationURL {
			m.Location = string(c.re.ExpandString(nil, c.entry.Destination.URL, candidate, idx))
		}
		return m, true
	}
	return Match{}, false
}

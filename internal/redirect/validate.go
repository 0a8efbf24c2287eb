// internal/redirect/validate.go
//
// Write-time validation and source normalisation.
//
// Context
// -------
// Every rule that can be checked without the repository is checked here,
// before a write is attempted: empty sources, literal sources without a
// leading slash, regex sources that do not compile, unsupported status
// codes, and active entries without a destination.  The matcher therefore
// never sees an invalid pattern unless the row was altered behind the
// store's back (see RebuildError).
//
// Trailing-slash rule
// -------------------
// Literal sources and incoming paths are compared without trailing slashes,
// so "/foo" and "/foo/" are one candidate.  Regex sources are matched against
// the normalised path too, unless the pattern itself ends in a slash (before
// an optional "$"), which marks it as slash-sensitive; those see the path
// exactly as requested.

package redirect

import (
	"net/url"
	"regexp"
	"strings"
)

// NormalizePath trims whitespace and trailing slashes.  The root path stays
// "/".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	trimmed := strings.TrimRight(p, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

// Compile anchors source so it must match the whole path, not a substring.
// Matching ignores case.
func Compile(source string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)^(?:` + source + `)$`)
}

// slashSensitive reports whether a regex source asks for the raw path.
func slashSensitive(source string) bool {
	return strings.HasSuffix(strings.TrimSuffix(source, "$"), "/")
}

// Validate checks e in isolation.  Uniqueness is checked by Store because it
// needs the repository.
func Validate(e Entry) error {
	if e.SiteID == 0 {
		return &ValidationError{Field: "site_id", Reason: "is required"}
	}

	src := strings.TrimSpace(e.Source)
	if src == "" {
		return &ValidationError{Field: "source", Reason: "must not be empty"}
	}
	if e.IsRegex {
		if _, err := Compile(src); err != nil {
			return &ValidationError{Field: "source", Reason: "does not compile: " + err.Error()}
		}
	} else if !strings.HasPrefix(src, "/") {
		return &ValidationError{Field: "source", Reason: "literal path must start with /"}
	}

	if !e.Status.Valid() {
		return &ValidationError{Field: "status_code", Reason: "must be 301 or 302"}
	}

	switch e.Destination.Kind {
	case DestinationURL:
		if _, err := url.Parse(e.Destination.URL); err != nil {
			return &ValidationError{Field: "destination", Reason: "malformed URL"}
		}
	case DestinationPage, DestinationNone:
	default:
		return &ValidationError{Field: "destination", Reason: "unknown kind"}
	}

	if e.Active && e.Destination.Empty() {
		return &ValidationError{Field: "destination", Reason: "required before activation"}
	}
	return nil
}

// sourceKey is the identity used for the (site, source, is_regex) rule.
func sourceKey(e Entry) string {
	if e.IsRegex {
		return "re:" + strings.TrimSpace(e.Source)
	}
	return "lit:" + NormalizePath(e.Source)
}

// SourceVariants lists the stored spellings that collide with a literal
// source: with and without the trailing slash.  Regex sources only collide
// with themselves.
func SourceVariants(source string, isRegex bool) []string {
	src := strings.TrimSpace(source)
	if isRegex {
		return []string{src}
	}
	n := NormalizePath(src)
	if n == "/" {
		return []string{"/"}
	}
	return []string{n, n + "/"}
}

// internal/ua/ua.go
//
// User-Agent helpers.
//
// This wrapper isolates the third-party `github.com/avct/uasurfer` API so
// the rest of the codebase never sees its enums or structs.
//
// Notes
// -----
// • Crawlers and uptime probes hit dead URLs constantly; callers use IsBot
//   to keep them out of the recorded-miss list.
// • An empty header counts as a bot.
package ua

import (
	"net/http"

	surfer "github.com/avct/uasurfer"
)

// IsBot reports whether raw looks like an automated client.
func IsBot(raw string) bool {
	if raw == "" {
		return true
	}
	return surfer.Parse(raw).IsBot()
}

// FromRequest is IsBot applied to r's User-Agent header.
func FromRequest(r *http.Request) bool {
	return IsBot(r.UserAgent())
}

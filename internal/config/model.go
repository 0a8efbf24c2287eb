// internal/config/model.go
//
// Typed configuration model for the redirect service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `ADEPT_`-prefixed environment overrides – highest precedence.
//
// Secret-bearing strings may hold a `vault:<mount/path>#<key>` reference
// instead of the value.  ResolveSecrets (secrets.go) swaps those for the
// Vault value after Load; nothing else in the code base sees the URI.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • Durations accept Go syntax ("30m", "4320h").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"fmt"
	"strings"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.  Upstream is the host application the
// web binary proxies to; its 404s are what the redirect middleware acts on.
// Empty means every path the admin router does not serve is a 404.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	Upstream   string `koanf:"upstream"    validate:"omitempty,url"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The *template* (`GlobalDSN`) is kept in YAML so operators can tweak
// host, port, or flags without touching Vault.  It carries exactly one `%s`
// verb where the password goes.  The *secret* portion (`GlobalPassword`)
// is normally a vault: reference.
type Database struct {
	GlobalDSN      string `koanf:"global_dsn"      validate:"required,dsn_template"`
	GlobalPassword string `koanf:"global_password" validate:"required"`
	LocalhostAlias string `koanf:"localhost_alias"`
}

// DSN returns the template with the password filled in.
func (d Database) DSN() string {
	return fmt.Sprintf(d.GlobalDSN, d.GlobalPassword)
}

//
// Redis section
//

// Redis configures the cross-process invalidation channel.  An empty Addr
// disables it.
type Redis struct {
	Addr     string `koanf:"addr"     validate:"omitempty,hostname_port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"       validate:"gte=0"`
	Channel  string `koanf:"channel"`
}

// Enabled reports whether a Redis address is configured.
func (r Redis) Enabled() bool { return strings.TrimSpace(r.Addr) != "" }

//
// Redirects section
//

// Redirects tunes resolution, caching, and housekeeping.
type Redirects struct {
	CacheIdleTTL  time.Duration `koanf:"cache_idle_ttl"  validate:"gte=0"`
	CacheMaxSites int           `koanf:"cache_max_sites" validate:"gte=0"`
	Retention     time.Duration `koanf:"retention"       validate:"gte=0"`
	RecordMisses  bool          `koanf:"record_misses"`
	IgnoredPaths  []string      `koanf:"ignored_paths"   validate:"dive,regexp"`
	CatalogFile   string        `koanf:"catalog_file"`
}

// Default values applied when the YAML leaves a field unset.
var (
	DefaultIgnoredPaths = []string{`^/static/`, `^/favicon\.ico`}
	DefaultRetention    = 180 * 24 * time.Hour
)

//
// Security section
//

// Security holds the keys of the admin surface.  Both are usually vault:
// references.
type Security struct {
	CSRFKey    string `koanf:"csrf_key"    validate:"required"`
	SessionKey string `koanf:"session_key" validate:"required"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or ADEPT_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // ADEPT_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Redis     Redis     `koanf:"redis"`
	Redirects Redirects `koanf:"redirects"`
	Security  Security  `koanf:"security"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}

// applyDefaults fills zero values.  Booleans have no default other than
// false.
func (c *Config) applyDefaults() {
	if c.Redirects.IgnoredPaths == nil {
		c.Redirects.IgnoredPaths = append([]string(nil), DefaultIgnoredPaths...)
	}
	if c.Redirects.Retention == 0 {
		c.Redirects.Retention = DefaultRetention
	}
}

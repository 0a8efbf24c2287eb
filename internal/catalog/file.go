package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/adept-redirects/internal/redirect"
)

// Load reads an operator catalog from a YAML file:
//
//	version: "acme-3"
//	patterns:
//	  - source: '(?i)^/old-shop/.*'
//	    rule: /shop
//	    status: 301
//	  - source: '(?i)^/forum(?:/.*)?$'
//
// Missing rules default to site_root and missing status codes to 302.  The
// table is validated before it is returned.
func Load(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, err
	}
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Table{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	for i := range t.Patterns {
		if t.Patterns[i].Rule == "" {
			t.Patterns[i].Rule = RuleSiteRoot
		}
		if t.Patterns[i].Status == 0 {
			t.Patterns[i].Status = redirect.StatusTemporary
		}
	}
	if err := t.Validate(); err != nil {
		return Table{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	return t, nil
}

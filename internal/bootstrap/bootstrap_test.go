package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/yanizio/adept-redirects/internal/catalog"
	"github.com/yanizio/adept-redirects/internal/config"
)

func TestCatalogDefaultsToBuiltin(t *testing.T) {
	env := &Env{Config: &config.Config{}, Log: zap.NewNop().Sugar()}
	tb, err := env.Catalog()
	if err != nil || tb.Version != catalog.Builtin.Version {
		t.Fatalf("Catalog = %q, %v", tb.Version, err)
	}
}

func TestCatalogMergesRelativeFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	doc := "version: site-extra\npatterns:\n  - source: '(?i)^/old-forum/.*'\n    rule: /community\n"
	if err := os.WriteFile(filepath.Join(root, "conf", "catalog.yaml"), []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := &config.Config{Paths: config.Paths{Root: root}}
	cfg.Redirects.CatalogFile = "conf/catalog.yaml"
	env := &Env{Config: cfg, Log: zap.NewNop().Sugar()}

	tb, err := env.Catalog()
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(tb.Patterns) != len(catalog.Builtin.Patterns)+1 {
		t.Fatalf("want %d patterns, got %d", len(catalog.Builtin.Patterns)+1, len(tb.Patterns))
	}

	cfg.Redirects.CatalogFile = "conf/missing.yaml"
	if _, err := env.Catalog(); err == nil {
		t.Fatalf("expected error for a missing catalog file")
	}
}

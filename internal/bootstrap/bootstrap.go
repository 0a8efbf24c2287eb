// internal/bootstrap/bootstrap.go
//
// Shared start-up sequence for the web and redirects binaries.
//
// Context
// -------
// Both binaries need the same four things before doing any work:
//
//  1. configuration (YAML + env), with vault: references resolved,
//  2. the daily JSON log under <root>/logs,
//  3. the global database pool,
//  4. a Redis client for cache invalidation, when one is configured.
//
// Open performs those steps in order and hands back an Env.  A failure at
// any step closes whatever was already opened.
//
// Notes
// -----
// • Redis being unreachable at start-up is logged, not fatal.  go-redis
//   reconnects on its own and the subscriber retries with backoff.
// • Oxford commas, two spaces after periods.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yanizio/adept-redirects/internal/catalog"
	"github.com/yanizio/adept-redirects/internal/config"
	"github.com/yanizio/adept-redirects/internal/database"
	"github.com/yanizio/adept-redirects/internal/logger"
	"github.com/yanizio/adept-redirects/internal/vault"
)

// Env is everything Open set up.
type Env struct {
	Config *config.Config
	Log    *zap.SugaredLogger
	DB     *sqlx.DB
	Redis  *redis.Client // nil when redis.addr is empty
}

// Open runs the start-up sequence for the binary called name.
func Open(ctx context.Context, name string) (*Env, error) {
	logger.Bootstrap()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Paths.Root, name, logger.IsTTY())
	if err != nil {
		return nil, fmt.Errorf("start logger: %w", err)
	}

	if cfg.NeedsVault() {
		vc, err := vault.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
		if err := config.ResolveSecrets(ctx, cfg, vc); err != nil {
			return nil, fmt.Errorf("resolve secrets: %w", err)
		}
		log.Infow("secrets resolved from vault")
	} else if err := config.ResolveSecrets(ctx, cfg, nil); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect global DB: %w", err)
	}
	env := &Env{Config: cfg, Log: log, DB: db}

	if cfg.Redis.Enabled() {
		env.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := env.Redis.Ping(pctx).Err(); err != nil {
			log.Warnw("redis unreachable at start-up", "addr", cfg.Redis.Addr, "err", err)
		}
		cancel()
	} else {
		log.Infow("redis not configured; cache invalidation stays in-process")
	}
	return env, nil
}

// Catalog returns the built-in table, extended with the operator catalog
// file when redirects.catalog_file is set.  Relative paths are taken from
// the config root.
func (e *Env) Catalog() (catalog.Table, error) {
	path := e.Config.Redirects.CatalogFile
	if path == "" {
		return catalog.Builtin, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.Config.Paths.Root, path)
	}
	extra, err := catalog.Load(path)
	if err != nil {
		return catalog.Table{}, fmt.Errorf("catalog file: %w", err)
	}
	t := catalog.Builtin.With(extra)
	e.Log.Infow("catalog file loaded", "file", path, "version", t.Version, "patterns", len(t.Patterns))
	return t, nil
}

// Close releases the database and Redis clients and flushes the log.
func (e *Env) Close() {
	if e.Redis != nil {
		_ = e.Redis.Close()
	}
	if e.DB != nil {
		_ = e.DB.Close()
	}
	_ = e.Log.Sync()
}

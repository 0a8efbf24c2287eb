// cmd/web/main.go
//
// Redirect service – HTTP entry point.
//
// Request life-cycle
// ------------------
//
//  1. Load config (YAML + env, vault: secrets), start the daily rotating
//     logger, and open the global control-plane DB.
//
//  2. Build the redirect store on MySQL, the per-site resolution cache, and
//     the page URL lookup.  Writes invalidate locally and, when Redis is
//     configured, on every other instance through the broadcast channel.
//
//  3. Build tenant-cache (lazy-loads each site on first hit).
//
//  4. Router:
//
//     • /metrics                                   – Prometheus
//     • POST /admin/redirects/{id}/toggle-active   – session → CSRF → toggle
//     • everything else                            – host application,
//       wrapped by the not-found redirect middleware
//
//  5. Wrap with security headers and, when http.force_https is on, the
//     HTTPS-enforcement middleware (skip localhost).
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/adept-redirects/internal/acl"
	"github.com/yanizio/adept-redirects/internal/bootstrap"
	"github.com/yanizio/adept-redirects/internal/broadcast"
	"github.com/yanizio/adept-redirects/internal/csrf"
	"github.com/yanizio/adept-redirects/internal/middleware"
	"github.com/yanizio/adept-redirects/internal/pages"
	"github.com/yanizio/adept-redirects/internal/redirect"
	"github.com/yanizio/adept-redirects/internal/redirect/sqlstore"
	"github.com/yanizio/adept-redirects/internal/routing"
	"github.com/yanizio/adept-redirects/internal/server"
	"github.com/yanizio/adept-redirects/internal/session"
	"github.com/yanizio/adept-redirects/internal/site"
	"github.com/yanizio/adept-redirects/internal/tenant"
	"github.com/yanizio/adept-redirects/internal/toggle"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap.Open(ctx, "web")
	if err != nil {
		zap.S().Fatalw("startup failed", "err", err)
	}
	defer env.Close()
	cfg, log := env.Config, env.Log

	// Log active-site count as an early sanity check.
	if sites, err := site.AllActive(ctx, env.DB); err == nil {
		log.Infow("global DB online", "active_sites", len(sites))
	} else {
		log.Warnw("active-site count failed", "err", err)
	}

	//
	// ── 1.  Redirect store, cache, and invalidation fan-out ─────────────
	//
	repo := sqlstore.New(env.DB)
	snapshots := redirect.NewCache(repo, cfg.Redirects.CacheIdleTTL, cfg.Redirects.CacheMaxSites)
	defer snapshots.Close()
	pageURLs := pages.New(env.DB)

	local := redirect.Fanout{snapshots, pageURLs}
	var inv redirect.Invalidator = local
	if env.Redis != nil {
		inv = redirect.Fanout{local, broadcast.NewPublisher(env.Redis, cfg.Redis.Channel)}
		go broadcast.Subscribe(ctx, env.Redis, cfg.Redis.Channel, local)
	}
	store := redirect.NewStore(repo, inv)

	notFound, err := routing.NewNotFound(
		redirect.NewResolver(snapshots, pageURLs),
		store,
		cfg.Redirects.RecordMisses,
		cfg.Redirects.IgnoredPaths,
	)
	if err != nil {
		log.Fatalw("not-found middleware", "err", err)
	}

	//
	// ── 2.  Tenant cache (lazy site loader) ─────────────────────────────
	//
	tenants := tenant.New(tenant.DBLoader(env.DB), tenant.IdleTTL, tenant.MaxEntries)
	defer tenants.Close()

	//
	// ── 3.  Admin surface ───────────────────────────────────────────────
	//
	guard, err := csrf.New([]byte(cfg.Security.CSRFKey))
	if err != nil {
		log.Fatalw("csrf", "err", err)
	}
	sessions, err := session.New([]byte(cfg.Security.SessionKey))
	if err != nil {
		log.Fatalw("session", "err", err)
	}
	toggler := toggle.New(store, acl.SiteAuthorizer{DB: env.DB.DB})

	//
	// ── 4.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(admin chi.Router) {
		admin.Use(sessions.Load, guard.Protect)
		toggler.Routes(admin)
	})

	host := hostHandler(cfg.HTTP.Upstream)
	fallthroughRoute := tenant.Middleware(tenants)(notFound.Middleware(host))
	r.NotFound(fallthroughRoute.ServeHTTP)
	r.MethodNotAllowed(fallthroughRoute.ServeHTTP)

	//
	// ── 5.  Outer wrappers ──────────────────────────────────────────────
	//
	var root http.Handler = middleware.Security(r)
	if cfg.HTTP.ForceHTTPS {
		root = middleware.ForceHTTPS(tenants, root)
	}

	if err := server.Run(ctx, server.New(cfg.HTTP.ListenAddr, root)); err != nil {
		log.Fatalw("http server", "err", err)
	}
	log.Infow("shut down")
}

// hostHandler proxies to the host application, or answers 404 when none is
// configured.
func hostHandler(upstream string) http.Handler {
	if upstream == "" {
		return http.NotFoundHandler()
	}
	u, err := url.Parse(upstream)
	if err != nil {
		zap.S().Fatalw("http.upstream", "err", err)
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		zap.L().Error("upstream request failed", zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusBadGateway)
	}
	return p
}

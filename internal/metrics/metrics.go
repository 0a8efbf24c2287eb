// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Resolve outcomes used as the "outcome" label of ResolveTotal.
const (
	OutcomeExact   = "exact"
	OutcomeRegex   = "regex"
	OutcomeMiss    = "miss"
	OutcomeIgnored = "ignored"
	OutcomeError   = "error"
)

var (
	ActiveTenants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_tenants",
			Help: "Number of host to site mappings currently loaded in memory.",
		})

	TenantLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_load_total",
			Help: "Cumulative number of sites successfully loaded by host.",
		})

	TenantLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_load_errors_total",
			Help: "Cumulative number of site load errors.",
		})

	TenantEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_evict_total",
			Help: "Cumulative number of sites evicted from the host cache.",
		})

	RedirectSnapshots = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "redirect_cache_snapshots",
			Help: "Number of per-site redirect snapshots currently published.",
		})

	RedirectBuildTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redirect_cache_build_total",
			Help: "Cumulative number of redirect snapshot builds.",
		})

	RedirectBuildErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redirect_cache_build_errors_total",
			Help: "Snapshot builds that failed to read the store.",
		})

	RedirectBuildSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "redirect_cache_build_seconds",
			Help:    "Time spent reading and compiling one site's redirects.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		})

	RedirectPatternErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redirect_pattern_errors_total",
			Help: "Stored regex entries skipped because they no longer compile.",
		})

	RedirectInvalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redirect_cache_invalidations_total",
			Help: "Cumulative number of per-site snapshot invalidations.",
		})

	RedirectResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirect_resolve_total",
			Help: "Not-found resolutions by outcome.",
		}, []string{"outcome"})
	RedirectMissesRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "redirect_misses_recorded_total",
			Help: "Unmatched paths stored as inactive entries.",
		})
)

func init() {
	prometheus.MustRegister(
		ActiveTenants,
		TenantLoadTotal,
		TenantLoadErrorsTotal,
		TenantEvictTotal,
		RedirectSnapshots,
		RedirectBuildTotal,
		RedirectBuildErrorsTotal,
		RedirectBuildSeconds,
		RedirectPatternErrorsTotal,
		RedirectInvalidationsTotal,
		RedirectResolveTotal,
		RedirectMissesRecordedTotal,
	)
}

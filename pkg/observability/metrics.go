package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Check metrics
	ChecksTotal           *prometheus.CounterVec
	CheckDuration         *prometheus.HistogramVec
	ValidationErrorsTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Index metrics
	ManifestsTotal prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgindex_checks_total",
				Help: "Total number of dependency checks",
			},
			[]string{"check", "result"},
		),
		CheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pkgindex_check_duration_seconds",
				Help:    "Dependency check duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"check"},
		),
		ValidationErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgindex_validation_errors_total",
				Help: "Total number of validation errors by kind",
			},
			[]string{"kind"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgindex_index_cache_hits_total",
				Help: "Total number of index cache hits",
			},
			[]string{"layer"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgindex_index_cache_misses_total",
				Help: "Total number of index cache misses",
			},
			[]string{"layer"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pkgindex_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pkgindex_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		ManifestsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pkgindex_manifests_total",
				Help: "Number of manifests in the index",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.ChecksTotal,
			m.CheckDuration,
			m.ValidationErrorsTotal,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.DBConnectionsActive,
			m.DBConnectionsIdle,
			m.ManifestsTotal,
		)
	}

	return m
}

// WriteTextfile writes every metric in gatherer to path in the text exposition format
func WriteTextfile(gatherer prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, gatherer)
}

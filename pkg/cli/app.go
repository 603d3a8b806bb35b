package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/pkgindex/pkg/config"
	"github.com/platinummonkey/pkgindex/pkg/dependencies"
	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/index/cache"
	"github.com/platinummonkey/pkgindex/pkg/index/sqlindex"
	"github.com/platinummonkey/pkgindex/pkg/observability"
)

// app holds everything one command invocation needs.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	store    *sqlindex.Store
	redis    *redis.Client
	cache    *cache.Index
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	a := &app{
		cfg: cfg,
		log: observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, logOut),
	}

	if cfg.Observability.MetricsEnabled {
		a.registry = prometheus.NewRegistry()
		a.metrics = observability.NewMetrics(a.registry)
	}

	sqlCfg, err := cfg.Index.SQLConfig()
	if err != nil {
		return nil, err
	}
	a.store, err = sqlindex.Open(ctx, sqlCfg, a.log)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled {
		opts, err := cfg.Cache.RedisOptions()
		if err != nil {
			a.store.Close()
			return nil, err
		}
		if opts != nil {
			a.redis = redis.NewClient(opts)
		}
		a.cache = cache.New(a.store, cfg.Cache.CacheOptions(), a.redis, a.metrics, a.log)
	}

	a.log.WithFields(logrus.Fields{
		"driver": sqlCfg.Dialect,
		"cache":  cfg.Cache.Enabled,
		"redis":  a.redis != nil,
	}).Debug("index opened")

	return a, nil
}

// index returns the index reads should go through.
func (a *app) index() index.Index {
	if a.cache != nil {
		return a.cache
	}
	return a.store
}

// writer returns the index writes should go through, so the cache sees them.
func (a *app) writer() index.Writer {
	if a.cache != nil {
		return a.cache
	}
	return a.store
}

// view runs fn against a consistent view of the index. With the cache on,
// reads go through the cache and are only as consistent as its TTL allows.
func (a *app) view(ctx context.Context, fn func(idx index.Index) error) error {
	if a.cache != nil {
		return fn(a.cache)
	}
	return a.store.View(ctx, fn)
}

// check runs fn with a Checker bound to a consistent view of the index.
func (a *app) check(ctx context.Context, fn func(c *dependencies.Checker) error) error {
	return a.view(ctx, func(idx index.Index) error {
		return fn(dependencies.NewChecker(idx, a.log, a.metrics))
	})
}

// recordIndexSize updates the manifest gauge after a write.
func (a *app) recordIndexSize(ctx context.Context) {
	if a.metrics == nil {
		return
	}
	n, err := a.store.CountManifests(ctx)
	if err != nil {
		a.log.WithError(err).Warn("failed to count manifests")
		return
	}
	a.metrics.ManifestsTotal.Set(float64(n))
}

// close releases connections and writes the metrics textfile if configured.
func (a *app) close() error {
	var errs []error

	if a.metrics != nil {
		observability.RecordDBStats(a.metrics, a.store.DB())
		if path := a.cfg.Observability.MetricsFile; path != "" {
			if err := observability.WriteTextfile(a.registry, path); err != nil {
				errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
			}
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close index: %w", err))
	}

	return errors.Join(errs...)
}

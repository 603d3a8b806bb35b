package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/observability"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

const (
	layerMemory = "memory"
	layerRedis  = "redis"
)

// ErrReadOnly is returned by write methods when the wrapped index is not an index.Writer.
var ErrReadOnly = errors.New("wrapped index is read-only")

// Config holds cache configuration
type Config struct {
	// MaxEntries bounds the in-process layer
	MaxEntries int
	// TTL applies to both layers
	TTL time.Duration
	// KeyPrefix namespaces Redis keys so several indexes can share one Redis
	KeyPrefix string
}

// DefaultConfig returns default cache configuration
func DefaultConfig() *Config {
	return &Config{
		MaxEntries: 10000,
		TTL:        5 * time.Minute,
		KeyPrefix:  "pkgindex:",
	}
}

// Index caches the answers of another index.Index in an in-process LRU and,
// optionally, in Redis. Writes made through it invalidate both layers.
type Index struct {
	next    index.Index
	config  *Config
	l1      *lru.LRU[string, []byte]
	redis   *redis.Client
	metrics *observability.Metrics
	log     *logrus.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

var (
	_ index.Index  = (*Index)(nil)
	_ index.Writer = (*Index)(nil)
)

// New wraps next. redisClient and metrics may be nil.
func New(next index.Index, config *Config, redisClient *redis.Client, metrics *observability.Metrics, log *logrus.Logger) *Index {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logrus.New()
	}
	maxEntries := config.MaxEntries
	if maxEntries < 10 {
		maxEntries = 10
	}

	return &Index{
		next:    next,
		config:  config,
		l1:      lru.NewLRU[string, []byte](maxEntries, nil, config.TTL),
		redis:   redisClient,
		metrics: metrics,
		log:     log,
	}
}

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	ItemCount int
	HitRate   float64
}

// Stats returns cache statistics
func (c *Index) Stats() Stats {
	stats := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		ItemCount: c.l1.Len(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

type handleResult struct {
	Handle int64 `json:"handle"`
	Found  bool  `json:"found"`
}

type propertyResult struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

func (c *Index) FindPackage(ctx context.Context, id manifest.PackageID) (index.PackageHandle, bool, error) {
	res, err := load(ctx, c, "pkg:"+id.Normalize(), func() (handleResult, error) {
		h, ok, err := c.next.FindPackage(ctx, id)
		return handleResult{Handle: int64(h), Found: ok}, err
	})
	return index.PackageHandle(res.Handle), res.Found, err
}

func (c *Index) ListVersions(ctx context.Context, pkg index.PackageHandle) ([]index.VersionAndChannel, error) {
	return load(ctx, c, fmt.Sprintf("versions:%d", pkg), func() ([]index.VersionAndChannel, error) {
		return c.next.ListVersions(ctx, pkg)
	})
}

func (c *Index) ResolveManifest(ctx context.Context, pkg index.PackageHandle, v version.Version, channel string) (index.ManifestHandle, bool, error) {
	// Channel comparison is case-insensitive in every index, so the key folds it too.
	key := fmt.Sprintf("resolve:%d:%s:%s", pkg, v, manifest.PackageID(channel).Normalize())
	res, err := load(ctx, c, key, func() (handleResult, error) {
		h, ok, err := c.next.ResolveManifest(ctx, pkg, v, channel)
		return handleResult{Handle: int64(h), Found: ok}, err
	})
	return index.ManifestHandle(res.Handle), res.Found, err
}

func (c *Index) GetDeclaredDependencies(ctx context.Context, m index.ManifestHandle) ([]index.StoredDependency, error) {
	return load(ctx, c, fmt.Sprintf("deps:%d", m), func() ([]index.StoredDependency, error) {
		return c.next.GetDeclaredDependencies(ctx, m)
	})
}

func (c *Index) GetDependents(ctx context.Context, id manifest.PackageID) ([]index.DependentEdge, error) {
	return load(ctx, c, "dependents:"+id.Normalize(), func() ([]index.DependentEdge, error) {
		return c.next.GetDependents(ctx, id)
	})
}

func (c *Index) GetProperty(ctx context.Context, m index.ManifestHandle, p index.Property) (string, bool, error) {
	res, err := load(ctx, c, fmt.Sprintf("prop:%d:%s", m, p), func() (propertyResult, error) {
		v, ok, err := c.next.GetProperty(ctx, m, p)
		return propertyResult{Value: v, Found: ok}, err
	})
	return res.Value, res.Found, err
}

// AddManifest writes through to the wrapped index and invalidates the cache.
func (c *Index) AddManifest(ctx context.Context, m *manifest.Manifest) (index.ManifestHandle, error) {
	w, ok := c.next.(index.Writer)
	if !ok {
		return 0, ErrReadOnly
	}
	h, err := w.AddManifest(ctx, m)
	if err != nil {
		return 0, err
	}
	return h, c.Invalidate(ctx)
}

// RemoveManifest writes through to the wrapped index and invalidates the cache.
func (c *Index) RemoveManifest(ctx context.Context, id manifest.PackageID, v version.Version) error {
	w, ok := c.next.(index.Writer)
	if !ok {
		return ErrReadOnly
	}
	if err := w.RemoveManifest(ctx, id, v); err != nil {
		return err
	}
	return c.Invalidate(ctx)
}

// Invalidate drops every cached answer from both layers. Any write to the
// index can change the latest version of a package, so nothing is kept.
func (c *Index) Invalidate(ctx context.Context) error {
	c.l1.Purge()
	if c.redis == nil {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"*", 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// load returns the cached value for key, or calls fetch and caches its result.
// Redis failures are logged and treated as misses.
func load[T any](ctx context.Context, c *Index, key string, fetch func() (T, error)) (T, error) {
	var out T

	if data, ok := c.l1.Get(key); ok {
		if err := json.Unmarshal(data, &out); err == nil {
			c.recordHit(layerMemory)
			return out, nil
		}
		c.l1.Remove(key)
	}
	c.recordMiss(layerMemory)

	redisKey := c.config.KeyPrefix + key
	if c.redis != nil {
		data, err := c.redis.Get(ctx, redisKey).Bytes()
		switch {
		case err == redis.Nil:
			c.recordMiss(layerRedis)
		case err != nil:
			c.recordMiss(layerRedis)
			c.log.WithError(err).WithField("key", redisKey).Warn("redis get failed")
		default:
			if err := json.Unmarshal(data, &out); err == nil {
				c.recordHit(layerRedis)
				c.l1.Add(key, data)
				return out, nil
			}
			// Corrupt entry
			if err := c.redis.Del(ctx, redisKey).Err(); err != nil {
				c.log.WithError(err).WithField("key", redisKey).Warn("redis delete failed")
			}
			c.recordMiss(layerRedis)
		}
	}

	out, err := fetch()
	if err != nil {
		return out, err
	}

	data, err := json.Marshal(out)
	if err != nil {
		return out, fmt.Errorf("failed to encode cache entry: %w", err)
	}
	c.l1.Add(key, data)
	if c.redis != nil {
		if err := c.redis.Set(ctx, redisKey, data, c.config.TTL).Err(); err != nil {
			c.log.WithError(err).WithField("key", redisKey).Warn("redis set failed")
		}
	}
	return out, nil
}

func (c *Index) recordHit(layer string) {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(layer).Inc()
	}
}

func (c *Index) recordMiss(layer string) {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(layer).Inc()
	}
}

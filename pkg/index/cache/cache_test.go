package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/pkgindex/pkg/dependencies"
	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/index/memory"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/observability"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func newManifest(id, ver string, deps ...manifest.PackageDependency) *manifest.Manifest {
	return &manifest.Manifest{
		ID:           manifest.PackageID(id),
		Version:      ver,
		Dependencies: manifest.Dependencies{PackageDependencies: deps},
	}
}

// countingIndex counts calls that reach the wrapped index.
type countingIndex struct {
	*memory.Index
	findCalls int
}

func (c *countingIndex) FindPackage(ctx context.Context, id manifest.PackageID) (index.PackageHandle, bool, error) {
	c.findCalls++
	return c.Index.FindPackage(ctx, id)
}

func TestIndex_MemoryLayer(t *testing.T) {
	ctx := context.Background()
	backing := &countingIndex{Index: memory.New()}
	_, err := backing.AddManifest(ctx, newManifest("Lib", "1.0"))
	require.NoError(t, err)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	c := New(backing, nil, nil, metrics, nil)

	for i := 0; i < 3; i++ {
		_, ok, err := c.FindPackage(ctx, "LIB")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, backing.findCalls)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("memory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("memory")))

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, 1, stats.ItemCount)
}

func TestIndex_CachesNegativeAnswers(t *testing.T) {
	ctx := context.Background()
	backing := &countingIndex{Index: memory.New()}
	c := New(backing, nil, nil, nil, nil)

	for i := 0; i < 2; i++ {
		_, ok, err := c.FindPackage(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, backing.findCalls)
}

func TestIndex_RedisLayer(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)

	backing := memory.New()
	_, err := backing.AddManifest(ctx, newManifest("Lib", "1.0"))
	require.NoError(t, err)
	_, err = backing.AddManifest(ctx, newManifest("Lib", "2.0"))
	require.NoError(t, err)

	first := New(backing, nil, client, nil, nil)
	pkg, ok, err := first.FindPackage(ctx, "Lib")
	require.NoError(t, err)
	require.True(t, ok)
	versions, err := first.ListVersions(ctx, pkg)
	require.NoError(t, err)
	require.Len(t, versions, 2)

	assert.True(t, mr.Exists("pkgindex:pkg:lib"))
	assert.True(t, mr.Exists("pkgindex:versions:1"))
	assert.Greater(t, mr.TTL("pkgindex:pkg:lib"), time.Duration(0))

	// A second process sharing Redis is served without touching its own index.
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	second := New(memory.New(), nil, client, metrics, nil)
	cached, err := second.ListVersions(ctx, pkg)
	require.NoError(t, err)
	require.Len(t, cached, 2)
	assert.True(t, cached[1].Version.Equal(version.MustParse("2.0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("redis")))
}

func TestIndex_CorruptRedisEntry(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)

	backing := memory.New()
	_, err := backing.AddManifest(ctx, newManifest("Lib", "1.0"))
	require.NoError(t, err)

	require.NoError(t, mr.Set("pkgindex:pkg:lib", "{not json"))

	c := New(backing, nil, client, nil, nil)
	_, ok, err := c.FindPackage(ctx, "lib")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := mr.Get("pkgindex:pkg:lib")
	require.NoError(t, err)
	assert.Contains(t, got, `"found":true`)
}

// failDel rejects DEL commands before they reach the server.
type failDel struct{}

func (failDel) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	if cmd.Name() == "del" {
		return ctx, errors.New("READONLY replica")
	}
	return ctx, nil
}

func (failDel) AfterProcess(ctx context.Context, cmd redis.Cmder) error { return nil }

func (failDel) BeforeProcessPipeline(ctx context.Context, cmds []redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (failDel) AfterProcessPipeline(ctx context.Context, cmds []redis.Cmder) error { return nil }

func TestIndex_CorruptRedisEntryDeleteFails(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	client.AddHook(failDel{})

	backing := memory.New()
	_, err := backing.AddManifest(ctx, newManifest("Lib", "1.0"))
	require.NoError(t, err)
	require.NoError(t, mr.Set("pkgindex:pkg:lib", "{not json"))

	log, hook := logtest.NewNullLogger()
	c := New(backing, nil, client, nil, log)
	_, ok, err := c.FindPackage(ctx, "lib")
	require.NoError(t, err)
	assert.True(t, ok)

	var found bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "redis delete failed" {
			found = true
			assert.Equal(t, logrus.WarnLevel, entry.Level)
			assert.Equal(t, "pkgindex:pkg:lib", entry.Data["key"])
		}
	}
	assert.True(t, found, "delete failure was not logged")
}

func TestIndex_RedisUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	mr.Close()

	backing := memory.New()
	_, err := backing.AddManifest(ctx, newManifest("Lib", "1.0"))
	require.NoError(t, err)

	c := New(backing, nil, client, nil, nil)
	_, ok, err := c.FindPackage(ctx, "lib")
	require.NoError(t, err, "redis failures fall back to the wrapped index")
	assert.True(t, ok)
}

func TestIndex_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	require.NoError(t, mr.Set("other:key", "kept"))

	c := New(memory.New(), nil, client, nil, nil)
	_, err := c.AddManifest(ctx, newManifest("P", "1.0"))
	require.NoError(t, err)
	_, err = c.AddManifest(ctx, newManifest("D1", "1.0",
		manifest.PackageDependency{PackageIdentifier: "P", MinimumVersion: "1.0"}))
	require.NoError(t, err)

	// Warm the cache, then delete through it.
	require.Error(t, dependencies.CanDeleteManifest(ctx, c, newManifest("P", "1.0")))
	assert.NotEmpty(t, mr.Keys())

	require.NoError(t, c.RemoveManifest(ctx, "D1", version.MustParse("1.0")))
	assert.Equal(t, []string{"other:key"}, mr.Keys())
	assert.Equal(t, 0, c.Stats().ItemCount)

	assert.NoError(t, dependencies.CanDeleteManifest(ctx, c, newManifest("P", "1.0")))
}

type readOnly struct {
	index.Index
}

func TestIndex_ReadOnly(t *testing.T) {
	c := New(readOnly{memory.New()}, nil, nil, nil, nil)
	_, err := c.AddManifest(context.Background(), newManifest("P", "1.0"))
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, c.RemoveManifest(context.Background(), "P", version.MustParse("1.0")), ErrReadOnly)
}

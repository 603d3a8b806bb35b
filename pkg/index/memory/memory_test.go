package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

func newManifest(id, ver string, deps ...manifest.PackageDependency) *manifest.Manifest {
	return &manifest.Manifest{
		ID:      manifest.PackageID(id),
		Version: ver,
		Installers: []manifest.Installer{{
			Dependencies: manifest.Dependencies{PackageDependencies: deps},
		}},
	}
}

func TestIndex_AddAndQuery(t *testing.T) {
	ctx := context.Background()
	idx := New()

	_, err := idx.AddManifest(ctx, newManifest("Lib", "1.0.0"))
	require.NoError(t, err)
	_, err = idx.AddManifest(ctx, newManifest("Lib", "2.0.0"))
	require.NoError(t, err)
	app, err := idx.AddManifest(ctx, newManifest("App", "1.0.0",
		manifest.PackageDependency{PackageIdentifier: "lib", MinimumVersion: "1.5"}))
	require.NoError(t, err)

	pkg, ok, err := idx.FindPackage(ctx, "LIB")
	require.NoError(t, err)
	require.True(t, ok)

	versions, err := idx.ListVersions(ctx, pkg)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "1.0.0", versions[0].Version.String())
	assert.Equal(t, "2.0.0", versions[1].Version.String())

	m, ok, err := idx.ResolveManifest(ctx, pkg, version.MustParse("2.0"), "")
	require.NoError(t, err)
	assert.True(t, ok)
	id, ok, err := idx.GetProperty(ctx, m, index.PropertyVersion)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2.0.0", id)

	deps, err := idx.GetDeclaredDependencies(ctx, app)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, manifest.PackageID("lib"), deps[0].Target)

	dependents, err := idx.GetDependents(ctx, "Lib")
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, app, dependents[0].Manifest)
	assert.Equal(t, "1.5", dependents[0].MinVersion.String())
}

func TestIndex_DuplicateManifest(t *testing.T) {
	ctx := context.Background()
	idx := New()

	_, err := idx.AddManifest(ctx, newManifest("Lib", "1.0.0"))
	require.NoError(t, err)
	_, err = idx.AddManifest(ctx, newManifest("lib", "1.0"))
	assert.ErrorIs(t, err, index.ErrManifestExists)
}

func TestIndex_RemoveManifest(t *testing.T) {
	ctx := context.Background()
	idx := New()

	_, err := idx.AddManifest(ctx, newManifest("Lib", "1.0.0"))
	require.NoError(t, err)
	_, err = idx.AddManifest(ctx, newManifest("Lib", "2.0.0"))
	require.NoError(t, err)

	require.NoError(t, idx.RemoveManifest(ctx, "lib", version.MustParse("2.0.0")))
	_, ok, err := idx.FindPackage(ctx, "Lib")
	require.NoError(t, err)
	assert.True(t, ok)

	err = idx.RemoveManifest(ctx, "lib", version.MustParse("2.0.0"))
	assert.ErrorIs(t, err, index.ErrManifestNotFound)

	require.NoError(t, idx.RemoveManifest(ctx, "Lib", version.MustParse("1.0.0")))
	_, ok, err = idx.FindPackage(ctx, "Lib")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndex_RemoveManifestAcrossChannels(t *testing.T) {
	ctx := context.Background()
	idx := New()

	stable := newManifest("Lib", "1.0.0")
	stable.Channel = "stable"
	beta := newManifest("Lib", "1.0.0")
	beta.Channel = "beta"

	first, err := idx.AddManifest(ctx, stable)
	require.NoError(t, err)
	second, err := idx.AddManifest(ctx, beta)
	require.NoError(t, err)

	pkg, ok, err := idx.FindPackage(ctx, "Lib")
	require.NoError(t, err)
	require.True(t, ok)

	// The row added first goes first, as in the SQL store.
	require.NoError(t, idx.RemoveManifest(ctx, "lib", version.MustParse("1.0.0")))
	_, ok, err = idx.ResolveManifest(ctx, pkg, version.MustParse("1.0.0"), "stable")
	require.NoError(t, err)
	assert.False(t, ok, "row %d should be removed", first)
	got, ok, err := idx.ResolveManifest(ctx, pkg, version.MustParse("1.0.0"), "beta")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, got)

	require.NoError(t, idx.RemoveManifest(ctx, "lib", version.MustParse("1.0.0")))
	_, ok, err = idx.FindPackage(ctx, "Lib")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndex_MissingRows(t *testing.T) {
	ctx := context.Background()
	idx := New()

	_, ok, err := idx.FindPackage(ctx, "nothing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = idx.GetProperty(ctx, 42, index.PropertyID)
	require.NoError(t, err)
	assert.False(t, ok)

	deps, err := idx.GetDeclaredDependencies(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

package sqlindex

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/pkgindex/pkg/dependencies"
	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, Config{Dialect: SQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func newManifest(id, ver string, deps ...manifest.PackageDependency) *manifest.Manifest {
	return &manifest.Manifest{
		ID:           manifest.PackageID(id),
		Version:      ver,
		Dependencies: manifest.Dependencies{PackageDependencies: deps},
	}
}

func dep(id, min string) manifest.PackageDependency {
	return manifest.PackageDependency{PackageIdentifier: manifest.PackageID(id), MinimumVersion: min}
}

func TestStore_AddAndQuery(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.AddManifest(ctx, newManifest("Lib", "1.0.0"))
	require.NoError(t, err)
	_, err = store.AddManifest(ctx, newManifest("lib", "2.0.0"))
	require.NoError(t, err)
	app, err := store.AddManifest(ctx, newManifest("App", "1.0", dep("LIB", "1.5"), dep("Tool", "")))
	require.NoError(t, err)

	pkg, ok, err := store.FindPackage(ctx, "lib")
	require.NoError(t, err)
	require.True(t, ok)

	versions, err := store.ListVersions(ctx, pkg)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "2.0.0", versions[1].Version.String())

	m, ok, err := store.ResolveManifest(ctx, pkg, version.MustParse("2.0"), "")
	require.NoError(t, err)
	require.True(t, ok)

	id, ok, err := store.GetProperty(ctx, m, index.PropertyID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Lib", id, "the first spelling of an identifier is kept")

	deps, err := store.GetDeclaredDependencies(ctx, app)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, manifest.PackageID("LIB"), deps[0].Target)
	assert.Equal(t, "1.5", deps[0].MinVersion.String())
	assert.True(t, deps[1].MinVersion.IsUnknown())

	dependents, err := store.GetDependents(ctx, "Lib")
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, app, dependents[0].Manifest)

	n, err := store.CountManifests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStore_DuplicateManifest(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.AddManifest(ctx, newManifest("Lib", "1.0.0"))
	require.NoError(t, err)

	_, err = store.AddManifest(ctx, newManifest("LIB", "1.0"))
	assert.ErrorIs(t, err, index.ErrManifestExists)

	beta := newManifest("Lib", "1.0")
	beta.Channel = "beta"
	_, err = store.AddManifest(ctx, beta)
	assert.NoError(t, err)
}

func TestStore_RemoveManifest(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.AddManifest(ctx, newManifest("Lib", "1.0"))
	require.NoError(t, err)
	_, err = store.AddManifest(ctx, newManifest("Lib", "2.0"))
	require.NoError(t, err)
	_, err = store.AddManifest(ctx, newManifest("App", "1.0", dep("Lib", "1.0")))
	require.NoError(t, err)

	require.NoError(t, store.RemoveManifest(ctx, "lib", version.MustParse("2.0.0")))
	assert.ErrorIs(t, store.RemoveManifest(ctx, "lib", version.MustParse("2.0")), index.ErrManifestNotFound)
	assert.ErrorIs(t, store.RemoveManifest(ctx, "nothing", version.MustParse("1.0")), index.ErrManifestNotFound)

	require.NoError(t, store.RemoveManifest(ctx, "App", version.MustParse("1.0")))
	dependents, err := store.GetDependents(ctx, "Lib")
	require.NoError(t, err)
	assert.Empty(t, dependents)

	require.NoError(t, store.RemoveManifest(ctx, "Lib", version.MustParse("1.0")))
	_, ok, err := store.FindPackage(ctx, "Lib")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_View(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.AddManifest(ctx, newManifest("P", "1.0"))
	require.NoError(t, err)
	_, err = store.AddManifest(ctx, newManifest("P", "2.0"))
	require.NoError(t, err)
	_, err = store.AddManifest(ctx, newManifest("D1", "1.0", dep("P", "1.0")))
	require.NoError(t, err)
	_, err = store.AddManifest(ctx, newManifest("D2", "1.0", dep("P", "2.0")))
	require.NoError(t, err)

	err = store.View(ctx, func(idx index.Index) error {
		if err := dependencies.ValidateManifestDependencies(ctx, idx, newManifest("App", "1.0", dep("D2", ""))); err != nil {
			return err
		}
		return dependencies.CanDeleteManifest(ctx, idx, newManifest("P", "2.0"))
	})
	assert.ErrorIs(t, err, dependencies.ErrBreakingDependents)

	ve, ok := dependencies.AsValidationErrors(err)
	require.True(t, ok)
	require.Len(t, ve[0].Dependents, 1)
	assert.Equal(t, manifest.PackageID("D2"), ve[0].Dependents[0].ID)
}

func TestStore_QueryErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db, Postgres, nil)
	ctx := context.Background()
	boom := errors.New("connection refused")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM packages WHERE normalized_id = $1`)).
		WithArgs("lib").
		WillReturnError(boom)
	_, _, err = store.FindPackage(ctx, "Lib")
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM packages WHERE normalized_id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, ok, err := store.FindPackage(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, version, channel FROM manifests WHERE package_rowid = $1 ORDER BY id`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "channel"}).AddRow(1, "", ""))
	_, err = store.ListVersions(ctx, 7)
	assert.Error(t, err, "an empty stored version is corrupt")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AddManifestRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := New(db, Postgres, nil)
	boom := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM packages WHERE normalized_id = $1`)).
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, version, channel FROM manifests WHERE package_rowid = $1 ORDER BY id`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "channel"}))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO manifests (package_rowid, version, channel) VALUES ($1, $2, $3) RETURNING id`)).
		WithArgs(int64(3), "1.0", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO dependencies (manifest_rowid, target_id, target_normalized, min_version) VALUES ($1, $2, $3, $4)`)).
		WithArgs(int64(9), "Lib", "lib", "2.0").
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err = store.AddManifest(context.Background(), newManifest("App", "1.0", dep("Lib", "2.0")))
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = ParseDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = ParseDialect("oracle")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = $2", Postgres.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ? AND b = ?", SQLite.rebind("a = ? AND b = ?"))
}

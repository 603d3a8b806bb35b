package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/pkgindex/pkg/dependencies"
)

const (
	libV1 = `PackageIdentifier: Contoso.Lib
PackageVersion: "1.0"
`
	libV2 = `PackageIdentifier: Contoso.Lib
PackageVersion: "2.0"
`
	appV1 = `PackageIdentifier: Contoso.App
PackageVersion: "1.0"
Dependencies:
  PackageDependencies:
    - PackageIdentifier: contoso.lib
      MinimumVersion: "2.0"
`
	broken = `PackageIdentifier: Contoso.Tool
PackageVersion: "1.0"
Dependencies:
  PackageDependencies:
    - PackageIdentifier: Contoso.Ghost
`
)

type testEnv struct {
	dir  string
	args []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:  dir,
		args: []string{"--driver", "sqlite3", "--dsn", filepath.Join(dir, "index.db"), "--log-level", "error"},
	}
	_, err := env.run("init")
	require.NoError(t, err)
	return env
}

func (e *testEnv) run(args ...string) (string, error) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	// Subcommand first, then the defaults, so flags given by a test win.
	full := append([]string{args[0]}, e.args...)
	root.SetArgs(append(full, args[1:]...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "pkgindex", root.Use)

	for _, name := range []string{"init", "validate", "add", "check-delete", "remove", "graph", "health", "watch"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"driver", "dsn", "log-level", "log-format", "metrics-file", "cache"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestAddValidateAndRemove(t *testing.T) {
	env := newTestEnv(t)
	lib1 := env.write(t, "lib1.yaml", libV1)
	lib2 := env.write(t, "lib2.yaml", libV2)
	app := env.write(t, "app.yaml", appV1)

	out, err := env.run("add", lib1, lib2, app)
	require.NoError(t, err)
	assert.Contains(t, out, "added Contoso.App 1.0")

	out, err = env.run("validate", app)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS")

	// The newest Lib is still required at 2.0 and 1.0 cannot satisfy it.
	out, err = env.run("check-delete", "Contoso.Lib", "2.0")
	assert.ErrorIs(t, err, dependencies.ErrBreakingDependents)
	assert.Contains(t, out, "unsafe_breaking")
	assert.Contains(t, out, "breaks Contoso.App.1.0")

	out, err = env.run("check-delete", "Contoso.Lib", "1.0")
	require.NoError(t, err)
	assert.Contains(t, out, "safe_not_latest")

	_, err = env.run("remove", "Contoso.Lib", "2.0")
	assert.ErrorIs(t, err, dependencies.ErrBreakingDependents)

	out, err = env.run("remove", "Contoso.Lib", "1.0")
	require.NoError(t, err)
	assert.Contains(t, out, "removed Contoso.Lib 1.0")

	out, err = env.run("check-delete", "Contoso.Lib", "2.0")
	assert.ErrorIs(t, err, dependencies.ErrSingleVersionHasDependents)
	assert.Contains(t, out, "required by Contoso.App.1.0")

	_, err = env.run("remove", "--force", "Contoso.Lib", "2.0")
	require.NoError(t, err)

	out, err = env.run("validate", app)
	assert.Error(t, err)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "contoso.lib")
}

func TestAddRejectsUnsatisfiable(t *testing.T) {
	env := newTestEnv(t)
	tool := env.write(t, "tool.yaml", broken)

	_, err := env.run("add", tool)
	assert.ErrorIs(t, err, dependencies.ErrMissingDependency)

	_, err = env.run("add", "--no-verify", tool)
	assert.NoError(t, err)
}

func TestValidateBatch(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("add", env.write(t, "lib2.yaml", libV2))
	require.NoError(t, err)

	good := env.write(t, "app.yaml", appV1)
	bad := env.write(t, "tool.yaml", broken)
	malformed := env.write(t, "bad.yaml", "PackageIdentifier: \"\"\nPackageVersion: \"1.0\"\n")

	out, err := env.run("validate", "--concurrency", "2", good, bad, malformed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 manifests failed validation")
	assert.Contains(t, out, "PASS "+good)
	assert.Contains(t, out, "FAIL "+bad)
	assert.Contains(t, out, "Contoso.Ghost")
	assert.Contains(t, out, "FAIL "+malformed)
	assert.Contains(t, out, "package identifier is required")
}

func TestGraph(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run("add", env.write(t, "lib2.yaml", libV2))
	require.NoError(t, err)
	app := env.write(t, "app.yaml", appV1)

	out, err := env.run("graph", app)
	require.NoError(t, err)
	assert.Contains(t, out, `"Contoso.App" -> "contoso.lib" [label=">=2.0"];`)

	out, err = env.run("graph", "--format", "json", app)
	require.NoError(t, err)
	var g dependencies.CytoscapeGraph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)

	_, err = env.run("graph", "--format", "svg", app)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run("health")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "healthy"`)
}

func TestMetricsFile(t *testing.T) {
	env := newTestEnv(t)
	metrics := filepath.Join(env.dir, "pkgindex.prom")

	_, err := env.run("add", "--metrics-file", metrics, env.write(t, "lib1.yaml", libV1))
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `pkgindex_checks_total{check="validate",result="ok"} 1`)
	assert.Contains(t, string(data), "pkgindex_manifests_total 1")
}

func TestCacheFlag(t *testing.T) {
	env := newTestEnv(t)
	lib2 := env.write(t, "lib2.yaml", libV2)
	app := env.write(t, "app.yaml", appV1)

	_, err := env.run("add", "--cache", lib2, app)
	require.NoError(t, err)

	out, err := env.run("check-delete", "--cache", "Contoso.Lib", "2.0")
	assert.ErrorIs(t, err, dependencies.ErrSingleVersionHasDependents)
	assert.Contains(t, out, "unsafe_single_version")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("PKGINDEX_INDEX_DRIVER", "mysql")
	t.Setenv("PKGINDEX_LOG_FORMAT", "xml")

	// --driver comes from the test env defaults on every run.
	_, err := env.run("health", "--log-format", "text")
	require.NoError(t, err)

	_, err = env.run("health")
	assert.ErrorContains(t, err, "log format")
}

func TestInvalidFlags(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("health", "--driver", "oracle")
	assert.Error(t, err)

	_, err = env.run("health", "--log-level", "loud")
	assert.Error(t, err)
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

// Index is an in-memory package index. It is safe for concurrent use.
type Index struct {
	mu           sync.RWMutex
	packages     map[string]*packageRow
	manifests    map[index.ManifestHandle]*manifestRow
	nextPackage  index.PackageHandle
	nextManifest index.ManifestHandle
}

type packageRow struct {
	handle index.PackageHandle
	id     manifest.PackageID
}

type manifestRow struct {
	handle  index.ManifestHandle
	pkg     index.PackageHandle
	id      manifest.PackageID
	version version.Version
	channel string
	deps    []index.StoredDependency
}

var (
	_ index.Index  = (*Index)(nil)
	_ index.Writer = (*Index)(nil)
)

// New creates an empty index
func New() *Index {
	return &Index{
		packages:  make(map[string]*packageRow),
		manifests: make(map[index.ManifestHandle]*manifestRow),
	}
}

// AddManifest implements index.Writer.AddManifest
func (x *Index) AddManifest(ctx context.Context, m *manifest.Manifest) (index.ManifestHandle, error) {
	v, err := m.ParsedVersion()
	if err != nil {
		return 0, err
	}
	deps, err := m.PackageDependencies()
	if err != nil {
		return 0, err
	}

	stored := make([]index.StoredDependency, 0, deps.Len())
	for _, d := range deps.Items() {
		stored = append(stored, index.StoredDependency{Target: d.ID, MinVersion: d.MinVersion})
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	key := m.ID.Normalize()
	pkg, ok := x.packages[key]
	if !ok {
		x.nextPackage++
		pkg = &packageRow{handle: x.nextPackage, id: m.ID}
		x.packages[key] = pkg
	}

	for _, row := range x.manifests {
		if row.pkg == pkg.handle && row.version.Equal(v) && strings.EqualFold(row.channel, m.Channel) {
			return 0, fmt.Errorf("%w: %s %s", index.ErrManifestExists, m.ID, m.Version)
		}
	}

	x.nextManifest++
	x.manifests[x.nextManifest] = &manifestRow{
		handle:  x.nextManifest,
		pkg:     pkg.handle,
		id:      pkg.id,
		version: v,
		channel: m.Channel,
		deps:    stored,
	}
	return x.nextManifest, nil
}

// RemoveManifest implements index.Writer.RemoveManifest. Removing the last
// version of a package removes the package as well.
func (x *Index) RemoveManifest(ctx context.Context, id manifest.PackageID, v version.Version) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	pkg, ok := x.packages[id.Normalize()]
	if !ok {
		return fmt.Errorf("%w: %s %s", index.ErrManifestNotFound, id, v)
	}

	// Oldest row first when the version exists on several channels.
	removed := false
	remaining := 0
	for _, row := range x.sortedManifests() {
		if row.pkg != pkg.handle {
			continue
		}
		if !removed && row.version.Equal(v) {
			delete(x.manifests, row.handle)
			removed = true
			continue
		}
		remaining++
	}
	if !removed {
		return fmt.Errorf("%w: %s %s", index.ErrManifestNotFound, id, v)
	}
	if remaining == 0 {
		delete(x.packages, id.Normalize())
	}
	return nil
}

// FindPackage implements index.Index.FindPackage
func (x *Index) FindPackage(ctx context.Context, id manifest.PackageID) (index.PackageHandle, bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	pkg, ok := x.packages[id.Normalize()]
	if !ok {
		return 0, false, nil
	}
	return pkg.handle, true, nil
}

// ListVersions implements index.Index.ListVersions
func (x *Index) ListVersions(ctx context.Context, pkg index.PackageHandle) ([]index.VersionAndChannel, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []index.VersionAndChannel
	for _, row := range x.sortedManifests() {
		if row.pkg == pkg {
			out = append(out, index.VersionAndChannel{Version: row.version, Channel: row.channel})
		}
	}
	return out, nil
}

// ResolveManifest implements index.Index.ResolveManifest
func (x *Index) ResolveManifest(ctx context.Context, pkg index.PackageHandle, v version.Version, channel string) (index.ManifestHandle, bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	for _, row := range x.sortedManifests() {
		if row.pkg == pkg && row.version.Equal(v) && strings.EqualFold(row.channel, channel) {
			return row.handle, true, nil
		}
	}
	return 0, false, nil
}

// GetDeclaredDependencies implements index.Index.GetDeclaredDependencies
func (x *Index) GetDeclaredDependencies(ctx context.Context, m index.ManifestHandle) ([]index.StoredDependency, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	row, ok := x.manifests[m]
	if !ok {
		return nil, nil
	}
	out := make([]index.StoredDependency, len(row.deps))
	copy(out, row.deps)
	return out, nil
}

// GetDependents implements index.Index.GetDependents
func (x *Index) GetDependents(ctx context.Context, id manifest.PackageID) ([]index.DependentEdge, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	key := id.Normalize()
	var out []index.DependentEdge
	for _, row := range x.sortedManifests() {
		for _, d := range row.deps {
			if d.Target.Normalize() == key {
				out = append(out, index.DependentEdge{Manifest: row.handle, MinVersion: d.MinVersion})
			}
		}
	}
	return out, nil
}

// GetProperty implements index.Index.GetProperty
func (x *Index) GetProperty(ctx context.Context, m index.ManifestHandle, p index.Property) (string, bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	row, ok := x.manifests[m]
	if !ok {
		return "", false, nil
	}
	switch p {
	case index.PropertyID:
		return string(row.id), true, nil
	case index.PropertyVersion:
		return row.version.String(), true, nil
	case index.PropertyChannel:
		return row.channel, true, nil
	default:
		return "", false, fmt.Errorf("unsupported property: %s", p)
	}
}

// sortedManifests returns rows in insertion order. Callers must hold the lock.
func (x *Index) sortedManifests() []*manifestRow {
	rows := make([]*manifestRow, 0, len(x.manifests))
	for _, row := range x.manifests {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].handle < rows[j].handle })
	return rows
}

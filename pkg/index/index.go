package index

import (
	"context"
	"errors"

	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

// PackageHandle is an opaque reference to a package row in an index.
type PackageHandle int64

// ManifestHandle is an opaque reference to a manifest row in an index.
type ManifestHandle int64

// Property names a per-manifest value readable through GetProperty.
type Property int

const (
	PropertyID Property = iota
	PropertyVersion
	PropertyChannel
)

func (p Property) String() string {
	switch p {
	case PropertyID:
		return "id"
	case PropertyVersion:
		return "version"
	case PropertyChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// VersionAndChannel is one stored version of a package.
type VersionAndChannel struct {
	Version version.Version
	Channel string
}

// StoredDependency is a dependency edge recorded for an indexed manifest.
type StoredDependency struct {
	Target     manifest.PackageID
	MinVersion version.Version
}

// DependentEdge is a manifest that declares a package dependency on some
// identifier, with the minimum version it requires.
type DependentEdge struct {
	Manifest   ManifestHandle
	MinVersion version.Version
}

// Index is the read-only view of a package index consumed by the dependency checks.
//
// Implementations must present a consistent snapshot for the duration of one check.
type Index interface {
	// FindPackage looks a package up by case-insensitive identifier.
	FindPackage(ctx context.Context, id manifest.PackageID) (PackageHandle, bool, error)
	// ListVersions returns every stored (version, channel) pair of a package.
	ListVersions(ctx context.Context, pkg PackageHandle) ([]VersionAndChannel, error)
	// ResolveManifest maps a (package, version, channel) key to a manifest.
	ResolveManifest(ctx context.Context, pkg PackageHandle, v version.Version, channel string) (ManifestHandle, bool, error)
	// GetDeclaredDependencies returns the package dependencies stored for a manifest.
	GetDeclaredDependencies(ctx context.Context, m ManifestHandle) ([]StoredDependency, error)
	// GetDependents returns manifests declaring a package dependency on id.
	GetDependents(ctx context.Context, id manifest.PackageID) ([]DependentEdge, error)
	// GetProperty reads a property of a manifest.
	GetProperty(ctx context.Context, m ManifestHandle, p Property) (string, bool, error)
}

// Writer mutates an index. The dependency checks never use it; ingestion and
// deletion workflows call the checks first and then commit through a Writer.
type Writer interface {
	AddManifest(ctx context.Context, m *manifest.Manifest) (ManifestHandle, error)
	RemoveManifest(ctx context.Context, id manifest.PackageID, v version.Version) error
}

var (
	// ErrManifestExists is returned when adding a (package, version, channel) that is already indexed.
	ErrManifestExists = errors.New("manifest already exists")
	// ErrManifestNotFound is returned when removing a manifest that is not indexed.
	ErrManifestNotFound = errors.New("manifest not found")
)

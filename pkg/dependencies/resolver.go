package dependencies

import (
	"context"
	"fmt"

	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

// Latest is the newest indexed manifest of a package.
type Latest struct {
	Manifest index.ManifestHandle
	Version  version.Version
	Channel  string
}

// LatestVersion finds the highest version of id still in the index, ignoring
// any version in exclusions. The bool is false when the package is absent or
// every version was excluded.
func LatestVersion(ctx context.Context, idx index.Index, id manifest.PackageID, exclusions version.Set) (Latest, bool, error) {
	pkg, ok, err := idx.FindPackage(ctx, id)
	if err != nil {
		return Latest{}, false, fmt.Errorf("failed to find package %s: %w", id, err)
	}
	if !ok {
		return Latest{}, false, nil
	}

	versions, err := idx.ListVersions(ctx, pkg)
	if err != nil {
		return Latest{}, false, fmt.Errorf("failed to list versions of %s: %w", id, err)
	}

	best := index.VersionAndChannel{Version: version.Unknown}
	for _, vc := range versions {
		if exclusions.Contains(vc.Version) {
			continue
		}
		if vc.Version.Greater(best.Version) {
			best = vc
		}
	}
	if best.Version.IsUnknown() {
		return Latest{}, false, nil
	}

	m, ok, err := idx.ResolveManifest(ctx, pkg, best.Version, best.Channel)
	if err != nil {
		return Latest{}, false, fmt.Errorf("failed to resolve %s %s: %w", id, best.Version, err)
	}
	if !ok {
		return Latest{}, false, fmt.Errorf("%w: %s %s is listed but has no manifest", ErrIndexInconsistency, id, best.Version)
	}

	return Latest{Manifest: m, Version: best.Version, Channel: best.Channel}, true, nil
}

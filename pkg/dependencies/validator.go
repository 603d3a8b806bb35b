package dependencies

import (
	"context"
	"fmt"

	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

// ValidateManifestDependencies checks that every package dependency of m,
// followed transitively through the latest indexed versions, exists, meets
// its minimum version and does not lead back into a loop.
//
// It returns nil when the manifest can be added, ValidationErrors describing
// every structural problem, or a plain error when the index itself fails.
// A loop is only reported when there are no structural problems.
func ValidateManifestDependencies(ctx context.Context, idx index.Index, m *manifest.Manifest) error {
	g, err := ManifestGraph(ctx, idx, m)
	if err != nil {
		return err
	}

	if errs := collectErrors(g); len(errs) > 0 {
		return errs
	}

	if loop := g.FindLoop(); loop != nil {
		return ValidationErrors{{Kind: ErrDependencyCycle, PackageID: loop[0], Loop: loop}}
	}
	return nil
}

// ManifestGraph builds the dependency graph of m the same way
// ValidateManifestDependencies does, without judging it.
func ManifestGraph(ctx context.Context, idx index.Index, m *manifest.Manifest) (*Graph, error) {
	rootVersion, err := m.ParsedVersion()
	if err != nil {
		return nil, err
	}
	declared, err := m.PackageDependencies()
	if err != nil {
		return nil, err
	}

	v := &validation{
		idx:      idx,
		root:     m.ID,
		declared: declared,
	}

	root := manifest.Dependency{Kind: manifest.KindPackage, ID: m.ID, MinVersion: rootVersion}
	return BuildGraph(ctx, root, v.expand)
}

type validation struct {
	idx      index.Index
	root     manifest.PackageID
	declared manifest.DependencyList
}

func (v *validation) expand(ctx context.Context, node manifest.Dependency) (Expansion, error) {
	if node.ID.Equal(v.root) {
		return Expansion{Children: v.declared}, nil
	}

	latest, ok, err := LatestVersion(ctx, v.idx, node.ID, version.Set{})
	if err != nil {
		return Expansion{}, err
	}
	if !ok {
		return Expansion{Problems: []error{&ValidationError{Kind: ErrMissingDependency, PackageID: node.ID}}}, nil
	}

	// Expanded even when this edge's minimum is unmet. Minimum checks happen in
	// collectErrors once every edge to the node is known.
	stored, err := v.idx.GetDeclaredDependencies(ctx, latest.Manifest)
	if err != nil {
		return Expansion{}, fmt.Errorf("failed to read dependencies of %s %s: %w", node.ID, latest.Version, err)
	}

	var children manifest.DependencyList
	for _, s := range stored {
		children.Add(manifest.Dependency{Kind: manifest.KindPackage, ID: s.Target, MinVersion: s.MinVersion})
	}
	return Expansion{Children: children, Resolved: latest.Version}, nil
}

// collectErrors turns graph problems into validation errors and checks every
// resolved node against the strictest minimum any edge asks of it.
func collectErrors(g *Graph) ValidationErrors {
	var errs ValidationErrors
	for _, p := range g.Problems() {
		if ve, ok := p.(*ValidationError); ok {
			errs = append(errs, ve)
		}
	}

	for _, node := range g.Nodes() {
		if g.IsRoot(node.ID) {
			continue
		}
		latest := g.Resolved(node.ID)
		if latest.IsUnknown() {
			continue
		}

		required := version.Unknown
		for _, edge := range g.Requirements(node.ID) {
			required = version.Max(required, edge.MinVersion)
		}
		if required.Greater(latest) {
			errs = append(errs, &ValidationError{
				Kind:      ErrUnsatisfiedMinimumVersion,
				PackageID: node.ID,
				Required:  required,
				Available: latest,
			})
		}
	}

	sortErrors(errs)
	return errs
}

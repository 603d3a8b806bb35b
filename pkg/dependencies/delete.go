package dependencies

import (
	"context"
	"fmt"

	"github.com/platinummonkey/pkgindex/pkg/index"
	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

// DeleteOutcome is the verdict of a delete-impact analysis.
type DeleteOutcome int

const (
	// DeleteSafeNoDependents means nothing depends on the package.
	DeleteSafeNoDependents DeleteOutcome = iota
	// DeleteSafeNotLatest means a newer version stays in the index.
	DeleteSafeNotLatest
	// DeleteSafeSuccessorSatisfies means the next-newest version meets every minimum.
	DeleteSafeSuccessorSatisfies
	// DeleteUnsafeSingleVersion means the package would vanish while still depended on.
	DeleteUnsafeSingleVersion
	// DeleteUnsafeBreaking means some dependents require more than the successor offers.
	DeleteUnsafeBreaking
)

func (o DeleteOutcome) String() string {
	switch o {
	case DeleteSafeNoDependents:
		return "safe_no_dependents"
	case DeleteSafeNotLatest:
		return "safe_not_latest"
	case DeleteSafeSuccessorSatisfies:
		return "safe_successor_satisfies"
	case DeleteUnsafeSingleVersion:
		return "unsafe_single_version"
	case DeleteUnsafeBreaking:
		return "unsafe_breaking"
	default:
		return "unknown"
	}
}

// Safe reports whether the deletion may proceed.
func (o DeleteOutcome) Safe() bool {
	return o <= DeleteSafeSuccessorSatisfies
}

// DeleteImpact describes what removing one manifest would do to its dependents.
type DeleteImpact struct {
	Outcome    DeleteOutcome
	Latest     version.Version
	Successor  version.Version
	Dependents []Dependent
	Breaking   []Dependent
}

// Err converts an unsafe impact into ValidationErrors. Safe impacts return nil.
func (d DeleteImpact) Err(id manifest.PackageID) error {
	switch d.Outcome {
	case DeleteUnsafeSingleVersion:
		return ValidationErrors{{Kind: ErrSingleVersionHasDependents, PackageID: id, Dependents: d.Dependents}}
	case DeleteUnsafeBreaking:
		return ValidationErrors{{Kind: ErrBreakingDependents, PackageID: id, Available: d.Successor, Dependents: d.Breaking}}
	default:
		return nil
	}
}

// CanDeleteManifest reports whether m can be removed from the index without
// breaking the resolution of any manifest that depends on its package.
// Errors wrapping ErrIndexInconsistency mean no verdict could be reached.
func CanDeleteManifest(ctx context.Context, idx index.Index, m *manifest.Manifest) error {
	impact, err := AnalyzeDelete(ctx, idx, m)
	if err != nil {
		return err
	}
	return impact.Err(m.ID)
}

// AnalyzeDelete computes the impact of removing m. Versions are compared
// without regard to channel.
func AnalyzeDelete(ctx context.Context, idx index.Index, m *manifest.Manifest) (DeleteImpact, error) {
	deleting, err := m.ParsedVersion()
	if err != nil {
		return DeleteImpact{}, err
	}

	edges, err := idx.GetDependents(ctx, m.ID)
	if err != nil {
		return DeleteImpact{}, fmt.Errorf("failed to get dependents of %s: %w", m.ID, err)
	}
	if len(edges) == 0 {
		return DeleteImpact{Outcome: DeleteSafeNoDependents}, nil
	}

	dependents, err := loadDependents(ctx, idx, edges)
	if err != nil {
		return DeleteImpact{}, err
	}

	latest, ok, err := LatestVersion(ctx, idx, m.ID, version.Set{})
	if err != nil {
		return DeleteImpact{}, err
	}
	if !ok {
		return DeleteImpact{}, fmt.Errorf("%w: %s has dependents but no indexed versions", ErrIndexInconsistency, m.ID)
	}

	impact := DeleteImpact{Latest: latest.Version, Dependents: dependents}
	if deleting.Less(latest.Version) {
		impact.Outcome = DeleteSafeNotLatest
		return impact, nil
	}

	successor, ok, err := LatestVersion(ctx, idx, m.ID, version.NewSet(deleting))
	if err != nil {
		return DeleteImpact{}, err
	}
	if !ok {
		impact.Outcome = DeleteUnsafeSingleVersion
		return impact, nil
	}
	impact.Successor = successor.Version

	for _, d := range dependents {
		if d.MinVersion.Greater(successor.Version) {
			impact.Breaking = append(impact.Breaking, d)
		}
	}
	if len(impact.Breaking) > 0 {
		impact.Outcome = DeleteUnsafeBreaking
	} else {
		impact.Outcome = DeleteSafeSuccessorSatisfies
	}
	return impact, nil
}

func loadDependents(ctx context.Context, idx index.Index, edges []index.DependentEdge) ([]Dependent, error) {
	out := make([]Dependent, 0, len(edges))
	for _, edge := range edges {
		id, ok, err := idx.GetProperty(ctx, edge.Manifest, index.PropertyID)
		if err != nil {
			return nil, fmt.Errorf("failed to read dependent manifest %d: %w", edge.Manifest, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: dependent manifest %d has no %s", ErrIndexInconsistency, edge.Manifest, index.PropertyID)
		}

		ver, ok, err := idx.GetProperty(ctx, edge.Manifest, index.PropertyVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to read dependent manifest %d: %w", edge.Manifest, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: dependent manifest %d has no %s", ErrIndexInconsistency, edge.Manifest, index.PropertyVersion)
		}

		out = append(out, Dependent{ID: manifest.PackageID(id), Version: ver, MinVersion: edge.MinVersion})
	}
	return out, nil
}

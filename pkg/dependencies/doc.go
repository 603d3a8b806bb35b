// Package dependencies keeps a package index free of broken dependency chains.
//
// # Overview
//
// Two checks guard index mutations. ValidateManifestDependencies runs before a
// manifest is added and walks its package dependencies transitively, always
// through the latest indexed version of each target. CanDeleteManifest runs
// before a manifest is removed and reports the dependents that would stop
// resolving.
//
// # Usage Example
//
// Validate a new manifest:
//
//	err := dependencies.ValidateManifestDependencies(ctx, idx, m)
//	if ve, ok := dependencies.AsValidationErrors(err); ok {
//		for _, e := range ve {
//			fmt.Println(e)
//		}
//	}
//
// Check a deletion:
//
//	impact, err := dependencies.AnalyzeDelete(ctx, idx, m)
//	if err != nil {
//		return err // index failure or ErrIndexInconsistency
//	}
//	if !impact.Outcome.Safe() {
//		return impact.Err(m.ID)
//	}
//
// Render the graph:
//
//	g, err := dependencies.ManifestGraph(ctx, idx, m)
//	fmt.Print(dependencies.ToDOT(g))
//
// # Errors
//
// Structural problems (ErrMissingDependency, ErrUnsatisfiedMinimumVersion) are
// gathered over the whole graph and returned together as ValidationErrors,
// sorted by kind and identifier. ErrDependencyCycle is only reported for an
// otherwise clean graph. ErrIndexInconsistency is never part of a
// ValidationErrors value; it aborts the check.
//
// # Related Packages
//
//   - pkg/index: Read-only index contract the checks run against
//   - pkg/version: Version ordering used to pick the latest version
package dependencies

package dependencies

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/platinummonkey/pkgindex/pkg/manifest"
	"github.com/platinummonkey/pkgindex/pkg/version"
)

var (
	// ErrMissingDependency means a dependency target is not in the index.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrUnsatisfiedMinimumVersion means the latest indexed version is below a required minimum.
	ErrUnsatisfiedMinimumVersion = errors.New("no suitable minimum version")
	// ErrDependencyCycle means the dependency graph contains a loop.
	ErrDependencyCycle = errors.New("dependency loop found")
	// ErrSingleVersionHasDependents means the only version of a package has dependents.
	ErrSingleVersionHasDependents = errors.New("single-version package has dependents")
	// ErrBreakingDependents means deleting the latest version would break dependents.
	ErrBreakingDependents = errors.New("package has breaking dependents")
	// ErrIndexInconsistency is fatal: the index contradicts itself and no verdict is possible.
	ErrIndexInconsistency = errors.New("index inconsistency")
)

var kindOrder = map[error]int{
	ErrMissingDependency:          0,
	ErrUnsatisfiedMinimumVersion:  1,
	ErrDependencyCycle:            2,
	ErrSingleVersionHasDependents: 3,
	ErrBreakingDependents:         4,
}

// KindName returns a short label for an error kind, used in metrics.
func KindName(kind error) string {
	switch kind {
	case ErrMissingDependency:
		return "missing_dependency"
	case ErrUnsatisfiedMinimumVersion:
		return "unsatisfied_minimum_version"
	case ErrDependencyCycle:
		return "dependency_cycle"
	case ErrSingleVersionHasDependents:
		return "single_version_has_dependents"
	case ErrBreakingDependents:
		return "breaking_dependents"
	case ErrIndexInconsistency:
		return "index_inconsistency"
	default:
		return "unknown"
	}
}

// Dependent is a manifest elsewhere in the index that depends on the package being analyzed.
type Dependent struct {
	ID         manifest.PackageID
	Version    string
	MinVersion version.Version
}

func (d Dependent) String() string {
	return fmt.Sprintf("%s.%s", d.ID, d.Version)
}

// ValidationError is one user-facing dependency problem.
type ValidationError struct {
	Kind      error
	PackageID manifest.PackageID
	// Required is the minimum version asked for (UnsatisfiedMinimumVersion).
	Required version.Version
	// Available is the latest version the index offers, after any deletion.
	Available version.Version
	// Dependents lists every affected dependent (delete checks).
	Dependents []Dependent
	// Loop is the cycle path (DependencyCycle).
	Loop []manifest.PackageID
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrMissingDependency:
		return fmt.Sprintf("%s: %s", e.Kind, e.PackageID)
	case ErrUnsatisfiedMinimumVersion:
		return fmt.Sprintf("%s: %s requires %s, latest is %s", e.Kind, e.PackageID, e.Required, e.Available)
	case ErrDependencyCycle:
		if len(e.Loop) == 0 {
			return e.Kind.Error()
		}
		parts := make([]string, len(e.Loop))
		for i, id := range e.Loop {
			parts[i] = id.String()
		}
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(parts, " -> "))
	case ErrSingleVersionHasDependents, ErrBreakingDependents:
		parts := make([]string, len(e.Dependents))
		for i, d := range e.Dependents {
			parts[i] = d.String()
		}
		return fmt.Sprintf("%s: %s\n%s", e.Kind, e.PackageID, strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("%v: %s", e.Kind, e.PackageID)
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// ValidationErrors is the combined failure of one check.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "dependencies validation failed:\n" + strings.Join(msgs, "\n")
}

func (e ValidationErrors) Unwrap() []error {
	out := make([]error, len(e))
	for i, ve := range e {
		out[i] = ve
	}
	return out
}

// Kinds returns the kind of every contained error, in order.
func (e ValidationErrors) Kinds() []error {
	out := make([]error, len(e))
	for i, ve := range e {
		out[i] = ve.Kind
	}
	return out
}

// sortErrors orders errors by kind and then identifier for stable output.
func sortErrors(errs ValidationErrors) {
	sort.SliceStable(errs, func(i, j int) bool {
		ki, kj := kindOrder[errs[i].Kind], kindOrder[errs[j].Kind]
		if ki != kj {
			return ki < kj
		}
		return errs[i].PackageID.Normalize() < errs[j].PackageID.Normalize()
	})
}

// AsValidationErrors extracts the validation errors from err, if it carries any.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

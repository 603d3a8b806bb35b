package manifest

import (
	"strings"

	"golang.org/x/text/cases"
)

// PackageID identifies a package within the index. Lookups are case-insensitive,
// so comparisons go through Normalize.
type PackageID string

// Normalize returns the case-folded, trimmed form used as the lookup key.
func (id PackageID) Normalize() string {
	// Casers carry state and must not be shared between goroutines.
	return cases.Fold().String(strings.TrimSpace(string(id)))
}

// Equal reports whether two identifiers refer to the same package.
func (id PackageID) Equal(other PackageID) bool {
	return id.Normalize() == other.Normalize()
}

func (id PackageID) String() string {
	return string(id)
}

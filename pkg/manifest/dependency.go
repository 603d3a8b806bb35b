package manifest

import (
	"fmt"

	"github.com/platinummonkey/pkgindex/pkg/version"
)

// DependencyKind distinguishes package dependencies from the other kinds a
// manifest can declare.
type DependencyKind int

const (
	KindPackage DependencyKind = iota
	KindFeature
	KindLibrary
	KindExternal
)

func (k DependencyKind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindFeature:
		return "feature"
	case KindLibrary:
		return "library"
	case KindExternal:
		return "external"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Dependency is a single declared requirement. MinVersion is version.Unknown
// when no minimum is declared.
type Dependency struct {
	Kind       DependencyKind
	ID         PackageID
	MinVersion version.Version
}

// Key is the identity of the dependency within a DependencyList.
func (d Dependency) Key() string {
	return d.Kind.String() + ":" + d.ID.Normalize()
}

func (d Dependency) String() string {
	if d.MinVersion.IsUnknown() {
		return d.ID.String()
	}
	return fmt.Sprintf("%s>=%s", d.ID, d.MinVersion)
}

// DependencyList is an ordered collection of dependencies with at most one
// entry per (kind, identifier).
type DependencyList struct {
	items []Dependency
	index map[string]int
}

// Add inserts dep. A duplicate target keeps its first position and the higher
// of the two minimum versions.
func (l *DependencyList) Add(dep Dependency) {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	key := dep.Key()
	if i, ok := l.index[key]; ok {
		if dep.MinVersion.Greater(l.items[i].MinVersion) {
			l.items[i].MinVersion = dep.MinVersion
		}
		return
	}
	l.index[key] = len(l.items)
	l.items = append(l.items, dep)
}

// Get returns the entry for (kind, id) if present.
func (l DependencyList) Get(kind DependencyKind, id PackageID) (Dependency, bool) {
	i, ok := l.index[Dependency{Kind: kind, ID: id}.Key()]
	if !ok {
		return Dependency{}, false
	}
	return l.items[i], true
}

func (l DependencyList) Len() int { return len(l.items) }

// Items returns a copy of the entries in insertion order.
func (l DependencyList) Items() []Dependency {
	out := make([]Dependency, len(l.items))
	copy(out, l.items)
	return out
}

// OfKind returns the entries of a single kind.
func (l DependencyList) OfKind(kind DependencyKind) DependencyList {
	var out DependencyList
	for _, d := range l.items {
		if d.Kind == kind {
			out.Add(d)
		}
	}
	return out
}

func NewDependencyList(deps ...Dependency) DependencyList {
	var l DependencyList
	for _, d := range deps {
		l.Add(d)
	}
	return l
}

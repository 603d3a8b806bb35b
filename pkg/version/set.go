package version

// Set is a collection of versions compared by ordering equality, so "1.0"
// and "1.0.0" are the same member.
type Set struct {
	members []Version
}

// NewSet returns a set holding versions.
func NewSet(versions ...Version) Set {
	var s Set
	for _, v := range versions {
		s.Add(v)
	}
	return s
}

// Add inserts v unless an equal version is already present.
func (s *Set) Add(v Version) {
	if s.Contains(v) {
		return
	}
	s.members = append(s.members, v)
}

// Contains reports whether the set holds a version equal to v.
func (s Set) Contains(v Version) bool {
	for _, m := range s.members {
		if m.Equal(v) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct versions.
func (s Set) Len() int { return len(s.members) }

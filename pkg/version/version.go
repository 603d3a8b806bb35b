package version

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a package version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3. The zero
// value is the Unknown sentinel: it sorts below every parsed version and is
// never equal to one.
type Version struct {
	v *mm.Version
}

// Unknown is the sentinel version used as the starting point when looking for a maximum.
var Unknown = Version{}

// Parse parses a version string. Leading "v" and short forms ("1", "1.2") are accepted.
func Parse(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Version{}, fmt.Errorf("version: empty version string")
	}
	v, err := mm.NewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("version: parse %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

// ParseOptional parses raw, returning Unknown for an empty string.
func ParseOptional(raw string) (Version, error) {
	if strings.TrimSpace(raw) == "" {
		return Unknown, nil
	}
	return Parse(raw)
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// IsUnknown reports whether v is the sentinel.
func (v Version) IsUnknown() bool {
	return v.v == nil
}

// Compare returns -1, 0 or 1 as a is lower than, equal to or higher than b.
// Unknown is lower than any parsed version.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// Compare is the method form of Compare.
func (v Version) Compare(o Version) int { return Compare(v, o) }

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return Compare(v, o) < 0 }

// Greater reports whether v sorts after o.
func (v Version) Greater(o Version) bool { return Compare(v, o) > 0 }

// Equal reports ordering equality. Unknown is never equal to a parsed version.
func (v Version) Equal(o Version) bool { return Compare(v, o) == 0 }

// String returns the text the version was parsed from.
func (v Version) String() string {
	if v.v == nil {
		return "Unknown"
	}
	return v.v.Original()
}

// MarshalText implements encoding.TextMarshaler. Unknown encodes as an empty string.
func (v Version) MarshalText() ([]byte, error) {
	if v.v == nil {
		return []byte{}, nil
	}
	return []byte(v.v.Original()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string decodes to Unknown.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseOptional(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Max returns the highest of the given versions, or Unknown if none are given.
func Max(versions ...Version) Version {
	best := Unknown
	for _, candidate := range versions {
		if candidate.Greater(best) {
			best = candidate
		}
	}
	return best
}

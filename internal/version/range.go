package version

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"
)

// Range is a set of version constraints such as ">= 3.0, < 4.0".
// Constraints are checked against the numeric core only, so pre-release
// suffixes never move a version in or out of a range.
type Range struct {
	text        string
	constraints goversion.Constraints
}

// NewRange parses a comma separated constraint list.
func NewRange(text string) (Range, error) {
	c, err := goversion.NewConstraint(text)
	if err != nil {
		return Range{}, fmt.Errorf("invalid version range %q: %w", text, err)
	}
	return Range{text: text, constraints: c}, nil
}

// MustRange is like NewRange but panics on error.
func MustRange(text string) Range {
	r, err := NewRange(text)
	if err != nil {
		panic(err)
	}
	return r
}

// Any returns a range matching every version.
func Any() Range {
	return Range{}
}

// Contains reports whether v satisfies every constraint of the range.
func (r Range) Contains(v Version) bool {
	if len(r.constraints) == 0 {
		return true
	}
	core, err := goversion.NewVersion(fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch))
	if err != nil {
		return false
	}
	return r.constraints.Check(core)
}

func (r Range) String() string {
	if r.text == "" {
		return "*"
	}
	return r.text
}

package version

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/nosan/embedded-cassandra-sub005/internal/errdefs"
)

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?(?:-([0-9A-Za-z][0-9A-Za-z.\-]*))?$`)

// Version is an immutable server version: major.minor[.patch][-preRelease].
// The zero value is not a valid version; build one with Parse or New.
type Version struct {
	major      uint
	minor      uint
	patch      uint
	hasPatch   bool
	preRelease string
	valid      bool
}

// New builds a version without patch or pre-release.
func New(major, minor uint) Version {
	return Version{major: major, minor: minor, valid: true}
}

// NewPatch builds a version with an explicit patch component.
func NewPatch(major, minor, patch uint) Version {
	return Version{major: major, minor: minor, patch: patch, hasPatch: true, valid: true}
}

/**
 * Parse version string into Version
 * @param {string} text - Version string in "major.minor[.patch][-preRelease]" format
 * @returns {Version} Parsed version
 * @returns {error} FormatError when text doesn't match the expected shape
 * @description
 * - Major and minor are mandatory, patch and pre-release are optional
 * - Trailing dots, empty parts and non-numeric components are rejected
 * @example
 * v, err := Parse("3.11.6")   // 3.11.6
 * v, err := Parse("4.0-beta4") // 4.0-beta4
 * _, err := Parse("3.")       // FormatError
 */
func Parse(text string) (Version, error) {
	m := versionPattern.FindStringSubmatch(text)
	if m == nil {
		return Version{}, errdefs.NewFormatError(text, "expected major.minor[.patch][-preRelease]")
	}
	var v Version
	var err error
	if v.major, err = parseUint(m[1]); err != nil {
		return Version{}, errdefs.NewFormatError(text, fmt.Sprintf("invalid major: %v", err))
	}
	if v.minor, err = parseUint(m[2]); err != nil {
		return Version{}, errdefs.NewFormatError(text, fmt.Sprintf("invalid minor: %v", err))
	}
	if m[3] != "" {
		if v.patch, err = parseUint(m[3]); err != nil {
			return Version{}, errdefs.NewFormatError(text, fmt.Sprintf("invalid patch: %v", err))
		}
		v.hasPatch = true
	}
	v.preRelease = m[4]
	v.valid = true
	return v, nil
}

// MustParse is like Parse but panics on malformed input. Intended for constants and tests.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

func parseUint(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}

func (v Version) Major() uint { return v.major }

func (v Version) Minor() uint { return v.minor }

// Patch returns the patch number and whether it was present.
func (v Version) Patch() (uint, bool) { return v.patch, v.hasPatch }

func (v Version) PreRelease() string { return v.preRelease }

// IsZero reports whether v was never parsed or built.
func (v Version) IsZero() bool {
	return !v.valid
}

// String renders the canonical form, omitting absent components.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d", v.major, v.minor)
	if v.hasPatch {
		s += fmt.Sprintf(".%d", v.patch)
	}
	if v.preRelease != "" {
		s += "-" + v.preRelease
	}
	return s
}

// Compare orders by major, minor then patch (absent patch counts as 0).
// Pre-release does not take part. Returns -1, 0 or 1.
func (v Version) Compare(other Version) int {
	if c := cmpUint(v.major, other.major); c != 0 {
		return c
	}
	if c := cmpUint(v.minor, other.minor); c != 0 {
		return c
	}
	return cmpUint(v.patch, other.patch)
}

// Equal requires identical components, including patch presence and pre-release.
// Parse("3.11") and Parse("3.11.0") compare as 0 but are not Equal.
func (v Version) Equal(other Version) bool {
	return v == other
}

// AtLeast reports v >= other in ordering terms.
func (v Version) AtLeast(other Version) bool {
	return v.Compare(other) >= 0
}

// Less reports v < other in ordering terms.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func cmpUint(a, b uint) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

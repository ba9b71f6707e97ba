// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

package hook

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
)

// maxVersionSegments is the number of dot-separated segments that carry
// meaning: major, minor and bugfix. Anything beyond is ignored.
const maxVersionSegments = 3

// Version is a structured major.minor.bugfix version parsed leniently from
// the free-form version string a module reports.
type Version struct {
	sv *semver.Version
}

// NewVersion builds a Version from its components.
func NewVersion(major, minor, bugfix uint64) Version {
	return Version{sv: semver.New(major, minor, bugfix, "", "")}
}

// ParseVersion parses a module version string such as "3.2.6 Build 20".
//
// Only the first whitespace-separated token is considered. It is split on
// '.', trailing empty segments are ignored, every non-digit character is
// dropped from each of the first three segments and missing segments
// default to zero. A segment with no digits
// left is an error rather than an implicit zero.
func ParseVersion(raw string) (Version, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Version{}, oops.
			Code("VERSION_EMPTY").
			With("raw", raw).
			Errorf("version string is empty")
	}

	segments := strings.Split(fields[0], ".")
	// "1.20." is 1.20.0: trailing empty segments carry no information.
	for len(segments) > 1 && segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	if len(segments) > maxVersionSegments {
		segments = segments[:maxVersionSegments]
	}

	var parts [maxVersionSegments]uint64
	for i, segment := range segments {
		n, err := parseSegment(segment)
		if err != nil {
			return Version{}, oops.
				With("raw", raw).
				With("segment", segment).
				With("index", i).
				Wrap(err)
		}
		parts[i] = n
	}

	return NewVersion(parts[0], parts[1], parts[2]), nil
}

// MustParseVersion is like ParseVersion but panics on error. Intended for
// constants in declarations and tests.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func parseSegment(segment string) (uint64, error) {
	var digits strings.Builder
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, oops.
			Code("VERSION_SEGMENT_EMPTY").
			Errorf("version segment %q has no digits", segment)
	}

	n, err := strconv.ParseUint(digits.String(), 10, 64)
	if err != nil {
		return 0, oops.
			Code("VERSION_SEGMENT_RANGE").
			Wrapf(err, "version segment %q out of range", segment)
	}
	return n, nil
}

// Major returns the major component.
func (v Version) Major() uint64 { return v.semver().Major() }

// Minor returns the minor component.
func (v Version) Minor() uint64 { return v.semver().Minor() }

// Bugfix returns the bugfix (patch) component.
func (v Version) Bugfix() uint64 { return v.semver().Patch() }

// Compare returns -1, 0 or 1 when v is lower than, equal to or greater than o.
func (v Version) Compare(o Version) int {
	return v.semver().Compare(o.semver())
}

// LessThan reports whether v orders before o.
func (v Version) LessThan(o Version) bool { return v.Compare(o) < 0 }

// String renders the version as major.minor.bugfix.
func (v Version) String() string { return v.semver().String() }

// semver returns the backing version; the zero Version behaves as 0.0.0.
func (v Version) semver() *semver.Version {
	if v.sv == nil {
		return semver.New(0, 0, 0, "", "")
	}
	return v.sv
}

// CompareVersions orders a and b by major, then minor, then bugfix.
func CompareVersions(a, b Version) int {
	return a.Compare(b)
}

// VersionPredicate decides whether a discovered module version is supported.
type VersionPredicate func(Version) bool

// AtLeast accepts versions greater than or equal to min.
func AtLeast(minVersion Version) VersionPredicate {
	return func(v Version) bool { return v.Compare(minVersion) >= 0 }
}

// Below accepts versions strictly lower than limit.
func Below(limit Version) VersionPredicate {
	return func(v Version) bool { return v.LessThan(limit) }
}

// Constraint compiles a semver constraint expression such as ">= 2.0, < 3"
// into a predicate.
func Constraint(expr string) (VersionPredicate, error) {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, oops.
			Code("CONSTRAINT_INVALID").
			With("constraint", expr).
			Wrap(err)
	}
	return func(v Version) bool { return c.Check(v.semver()) }, nil
}

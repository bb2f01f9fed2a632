// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// latestToken is the literal that selects the latest pointer.
const latestToken = "latest"

// ErrInvalidSpecifier is returned by ParseSpecifier for input that is
// neither "latest", a version, nor a version range.
var ErrInvalidSpecifier = errors.New("invalid version specifier")

type (
	// Specifier is a parsed version request. It is one of Latest, Exact or
	// Range; the set is closed.
	Specifier interface {
		fmt.Stringer
		isSpecifier()
	}

	// Latest asks for whatever the latest pointer reports.
	Latest struct{}

	// Exact asks for one specific version.
	Exact struct {
		raw     string
		version *semver.Version
	}

	// Range asks for the highest version satisfying a constraint expression
	// such as "^3.0.0", "~3.1" or ">=3.0.0 <4.0.0".
	Range struct {
		raw        string
		constraint *semver.Constraints
	}

	// matcher is implemented by the specifiers that are resolved against
	// the catalog.
	matcher interface {
		Specifier
		matches(v *semver.Version) bool
	}
)

func (Latest) isSpecifier() {}
func (Exact) isSpecifier()  {}
func (Range) isSpecifier()  {}

// String returns "latest".
func (Latest) String() string { return latestToken }

// String returns the version as the user wrote it.
func (e Exact) String() string { return e.raw }

// String returns the constraint as the user wrote it.
func (r Range) String() string { return r.raw }

func (e Exact) matches(v *semver.Version) bool { return v.Equal(e.version) }

func (r Range) matches(v *semver.Version) bool { return r.constraint.Check(v) }

// ParseSpecifier classifies s, after trimming whitespace:
//   - "latest" in any case is Latest
//   - a full MAJOR.MINOR.PATCH version, optionally prefixed with "v", is Exact
//   - any other valid semver constraint is Range
//
// Everything else, including the empty string, is ErrInvalidSpecifier.
func ParseSpecifier(s string) (Specifier, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSpecifier)
	}

	if strings.EqualFold(t, latestToken) {
		return Latest{}, nil
	}

	if v, err := parseVersion(t); err == nil {
		return Exact{raw: t, version: v}, nil
	}

	c, err := semver.NewConstraint(t)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSpecifier, s, err)
	}
	return Range{raw: t, constraint: c}, nil
}

// MustParseSpecifier is like ParseSpecifier but panics on error. It is meant
// for constants and tests.
func MustParseSpecifier(s string) Specifier {
	spec, err := ParseSpecifier(s)
	if err != nil {
		panic(err)
	}
	return spec
}

// parseVersion accepts a strict semantic version with an optional leading "v".
func parseVersion(s string) (*semver.Version, error) {
	return semver.StrictNewVersion(strings.TrimPrefix(s, "v"))
}

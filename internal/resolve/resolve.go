// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/semver/v3"
)

// ErrVersionNotFound is returned when no published version satisfies an
// Exact or Range specifier.
var ErrVersionNotFound = errors.New("version not found")

type (
	// VersionLister returns the published version strings.
	VersionLister interface {
		Versions(ctx context.Context) ([]string, error)
	}

	// LatestFetcher returns the version the publisher marks as latest.
	LatestFetcher interface {
		Latest(ctx context.Context) (string, error)
	}

	// NotFoundError reports the specifier that matched nothing and how many
	// catalog entries were considered. It wraps ErrVersionNotFound.
	NotFoundError struct {
		Specifier string
		Checked   int
	}

	// Resolver turns a Specifier into one concrete version.
	Resolver struct {
		versions VersionLister
		latest   LatestFetcher
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no published version satisfies %q (%d versions checked)", e.Specifier, e.Checked)
}

// Unwrap returns ErrVersionNotFound.
func (e *NotFoundError) Unwrap() error { return ErrVersionNotFound }

// NewResolver creates a Resolver. catalog.Source satisfies both interfaces.
func NewResolver(versions VersionLister, latest LatestFetcher) *Resolver {
	return &Resolver{versions: versions, latest: latest}
}

// Resolve returns the version spec selects.
//
// Latest queries only the latest pointer and trusts its answer without
// checking it against the catalog. Exact and Range query only the catalog
// and pick the highest-precedence entry that satisfies spec.
func (r *Resolver) Resolve(ctx context.Context, spec Specifier) (string, error) {
	switch s := spec.(type) {
	case Latest:
		v, err := r.latest.Latest(ctx)
		if err != nil {
			return "", err
		}
		slog.Debug("resolved latest pointer", "version", v)
		return v, nil
	case matcher:
		catalog, err := r.versions.Versions(ctx)
		if err != nil {
			return "", err
		}
		v, ok := Select(s, catalog)
		if !ok {
			return "", &NotFoundError{Specifier: s.String(), Checked: len(catalog)}
		}
		slog.Debug("resolved from catalog", "specifier", s.String(), "version", v, "candidates", len(catalog))
		return v, nil
	default:
		return "", fmt.Errorf("%w: unsupported specifier type %T", ErrInvalidSpecifier, spec)
	}
}

// Select returns the catalog entry with the highest semantic-version
// precedence that satisfies spec, unchanged. Entries that are not valid
// versions are ignored. Latest never matches, since it is not resolved
// against a catalog.
//
// Entries of equal precedence ("3.1.2" and "v3.1.2", or differing build
// metadata) are ordered by exact equality with the specifier first, then by
// the smallest string, so the result never depends on catalog order.
func Select(spec Specifier, catalog []string) (string, bool) {
	m, ok := spec.(matcher)
	if !ok {
		return "", false
	}

	var (
		best    string
		bestVer *semver.Version
	)
	for _, entry := range catalog {
		v, err := parseVersion(entry)
		if err != nil {
			continue
		}
		if !m.matches(v) {
			continue
		}
		if bestVer == nil || better(entry, v, best, bestVer, m.String()) {
			best, bestVer = entry, v
		}
	}

	return best, bestVer != nil
}

// better reports whether candidate outranks the current best.
func better(entry string, v *semver.Version, best string, bestVer *semver.Version, raw string) bool {
	if c := v.Compare(bestVer); c != 0 {
		return c > 0
	}
	if (entry == raw) != (best == raw) {
		return entry == raw
	}
	return entry < best
}

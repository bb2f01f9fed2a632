// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/pulumi/setup-pulumi/internal/archive"
	"github.com/pulumi/setup-pulumi/pkg/platform"
)

// ErrLayout is the class of every install layout failure: a missing
// top-level directory, a missing bin directory, or a path collision.
var ErrLayout = errors.New("unexpected install layout")

type (
	// LayoutError reports the path at which the layout did not match what
	// the install procedure expects.
	LayoutError struct {
		Path   string
		Reason string
		Err    error
	}

	// Installer extracts a downloaded archive and normalizes it into
	// <root>/bin. It never rolls back: a failure after extraction leaves the
	// extracted tree in place.
	Installer struct {
		fs          afero.Fs
		clean       bool
		extractOpts []archive.Option
	}

	// Option configures an Installer.
	Option func(*Installer)
)

// Error implements the error interface.
func (e *LayoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("install layout: %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("install layout: %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrLayout and the underlying cause.
func (e *LayoutError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrLayout}
	}
	return []error{ErrLayout, e.Err}
}

// WithClean removes the previous installation's executables before
// extracting, turning a repeat run into a fresh install. Other contents of
// the install root are kept.
func WithClean(clean bool) Option {
	return func(i *Installer) {
		i.clean = clean
	}
}

// WithExtractorOptions passes options through to the archive extractor.
func WithExtractorOptions(opts ...archive.Option) Option {
	return func(i *Installer) {
		i.extractOpts = append(i.extractOpts, opts...)
	}
}

// NewInstaller creates an Installer working on fsys. The archive passed to
// Install is read from the same filesystem.
func NewInstaller(fsys afero.Fs, opts ...Option) *Installer {
	i := &Installer{fs: fsys}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install unpacks archivePath for platform p and normalizes it so that the
// executables live in <root>/bin, which is returned.
//
// Before touching anything it checks that none of the strategy's conflict
// paths exist and fails with a *LayoutError if one does, so a repeat run
// fails the same way every time instead of merging into a previous install.
func (i *Installer) Install(ctx context.Context, archivePath string, p platform.Platform, root string) (string, error) {
	strategy, err := StrategyFor(p)
	if err != nil {
		return "", err
	}

	conflicts := strategy.Conflicts(root)
	if i.clean {
		conflicts = strategy.CleanTargets(root)
		for _, path := range conflicts {
			if err := i.fs.RemoveAll(path); err != nil {
				return "", fmt.Errorf("removing previous install %s: %w", path, err)
			}
			slog.Debug("removed previous install", "path", path)
		}
	}
	for _, path := range conflicts {
		exists, err := afero.Exists(i.fs, path)
		if err != nil {
			return "", &LayoutError{Path: path, Reason: "checking for a previous install", Err: err}
		}
		if exists {
			return "", &LayoutError{Path: path, Reason: "already exists from a previous install"}
		}
	}

	if err := strategy.Prepare(i.fs, root); err != nil {
		return "", err
	}

	extractDir := strategy.ExtractDir(root)
	opts := append([]archive.Option{archive.WithRejectWindowsReservedNames(p.IsWindows())}, i.extractOpts...)
	if err := archive.NewExtractor(i.fs, opts...).Extract(ctx, archivePath, p.ArchiveExt(), extractDir); err != nil {
		return "", err
	}
	slog.Debug("extracted archive", "strategy", strategy.Name(), "dir", extractDir)

	bin, err := strategy.Normalize(i.fs, root)
	if err != nil {
		return "", err
	}

	slog.Info("installed", "bin", bin)
	return bin, nil
}

// SPDX-License-Identifier: MPL-2.0

package install

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pulumi/setup-pulumi/pkg/platform"
)

const dirPerm = 0o755

type (
	// LayoutStrategy turns an extracted release archive into the normalized
	// <root>/bin layout. Each platform family has one strategy, selected once
	// by StrategyFor.
	LayoutStrategy interface {
		// Name identifies the strategy in logs.
		Name() string
		// ExtractDir is the directory the archive is unpacked into.
		ExtractDir(root string) string
		// ExtractedRoot is where the archive's top-level directory lands.
		ExtractedRoot(root string) string
		// Conflicts lists the paths that must not exist before installing.
		Conflicts(root string) []string
		// CleanTargets lists the paths a clean install removes. Anything
		// else under root is left alone.
		CleanTargets(root string) []string
		// Prepare creates whatever ExtractDir needs.
		Prepare(fsys afero.Fs, root string) error
		// Normalize moves the extracted tree into place and returns the bin
		// directory.
		Normalize(fsys afero.Fs, root string) (string, error)
	}

	// UnixLayoutStrategy handles the linux and darwin tarballs, whose single
	// top-level "pulumi" directory holds the executables directly. The
	// archive is unpacked inside root and that directory becomes root/bin.
	UnixLayoutStrategy struct {
		ArchiveRoot string
	}

	// WindowsLayoutStrategy handles the windows zip, whose top-level
	// "Pulumi" directory already contains "bin". The archive is unpacked
	// next to root and the whole directory is renamed to root, or merged
	// into it entry by entry when root already exists.
	WindowsLayoutStrategy struct {
		ArchiveRoot string
	}
)

// StrategyFor returns the layout strategy for p.
func StrategyFor(p platform.Platform) (LayoutStrategy, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.IsWindows() {
		return WindowsLayoutStrategy{ArchiveRoot: p.ArchiveRoot()}, nil
	}
	return UnixLayoutStrategy{ArchiveRoot: p.ArchiveRoot()}, nil
}

// Name returns "unix".
func (UnixLayoutStrategy) Name() string { return "unix" }

// ExtractDir returns root.
func (UnixLayoutStrategy) ExtractDir(root string) string { return root }

// ExtractedRoot returns root/<ArchiveRoot>.
func (s UnixLayoutStrategy) ExtractedRoot(root string) string {
	return filepath.Join(root, s.ArchiveRoot)
}

// Conflicts returns the bin directory and the extracted root.
func (s UnixLayoutStrategy) Conflicts(root string) []string {
	return []string{binDir(root), s.ExtractedRoot(root)}
}

// CleanTargets returns the same paths as Conflicts.
func (s UnixLayoutStrategy) CleanTargets(root string) []string {
	return s.Conflicts(root)
}

// Prepare creates root. It succeeds if root already exists.
func (UnixLayoutStrategy) Prepare(fsys afero.Fs, root string) error {
	if err := fsys.MkdirAll(root, dirPerm); err != nil {
		return fmt.Errorf("creating install root %s: %w", root, err)
	}
	return nil
}

// Normalize renames root/<ArchiveRoot> to root/bin.
func (s UnixLayoutStrategy) Normalize(fsys afero.Fs, root string) (string, error) {
	extracted := s.ExtractedRoot(root)
	if err := requireDir(fsys, extracted, "archive did not contain the expected top-level directory"); err != nil {
		return "", err
	}

	bin := binDir(root)
	if err := rename(fsys, extracted, bin); err != nil {
		return "", err
	}
	return bin, nil
}

// Name returns "windows".
func (WindowsLayoutStrategy) Name() string { return "windows" }

// ExtractDir returns the parent of root, the home directory for the default
// root.
func (WindowsLayoutStrategy) ExtractDir(root string) string { return filepath.Dir(root) }

// ExtractedRoot returns <parent of root>/<ArchiveRoot>.
func (s WindowsLayoutStrategy) ExtractedRoot(root string) string {
	return filepath.Join(filepath.Dir(root), s.ArchiveRoot)
}

// Conflicts returns root itself, since it is the rename target, and the
// extracted root.
func (s WindowsLayoutStrategy) Conflicts(root string) []string {
	return []string{root, s.ExtractedRoot(root)}
}

// CleanTargets returns the bin directory and the extracted root. Root
// itself is kept since it also holds credentials and plugins.
func (s WindowsLayoutStrategy) CleanTargets(root string) []string {
	return []string{binDir(root), s.ExtractedRoot(root)}
}

// Prepare creates the parent of root.
func (s WindowsLayoutStrategy) Prepare(fsys afero.Fs, root string) error {
	dir := s.ExtractDir(root)
	if err := fsys.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating extraction directory %s: %w", dir, err)
	}
	return nil
}

// Normalize moves the extracted root to root and checks root/bin exists.
// An existing root is merged into and must not already hold any of the
// archive's top-level entries.
func (s WindowsLayoutStrategy) Normalize(fsys afero.Fs, root string) (string, error) {
	extracted := s.ExtractedRoot(root)
	if err := requireDir(fsys, extracted, "archive did not contain the expected top-level directory"); err != nil {
		return "", err
	}

	exists, err := afero.Exists(fsys, root)
	if err != nil {
		return "", &LayoutError{Path: root, Reason: "checking install root", Err: err}
	}
	if exists {
		err = merge(fsys, extracted, root)
	} else {
		err = rename(fsys, extracted, root)
	}
	if err != nil {
		return "", err
	}

	bin := binDir(root)
	if err := requireDir(fsys, bin, "archive did not contain a bin directory"); err != nil {
		return "", err
	}
	return bin, nil
}

func binDir(root string) string {
	return filepath.Join(root, platform.BinDirName)
}

func requireDir(fsys afero.Fs, path, reason string) error {
	ok, err := afero.DirExists(fsys, path)
	if err != nil {
		return &LayoutError{Path: path, Reason: reason, Err: err}
	}
	if !ok {
		return &LayoutError{Path: path, Reason: reason}
	}
	return nil
}

func rename(fsys afero.Fs, from, to string) error {
	if exists, _ := afero.Exists(fsys, to); exists {
		return &LayoutError{Path: to, Reason: "rename target already exists"}
	}
	if err := fsys.Rename(from, to); err != nil {
		return &LayoutError{Path: to, Reason: "renaming " + from, Err: err}
	}
	return nil
}

// merge moves every entry of from into to, then removes from. Nothing is
// moved if any entry is already present in to.
func merge(fsys afero.Fs, from, to string) error {
	entries, err := afero.ReadDir(fsys, from)
	if err != nil {
		return &LayoutError{Path: from, Reason: "reading extracted archive", Err: err}
	}
	for _, entry := range entries {
		target := filepath.Join(to, entry.Name())
		if exists, _ := afero.Exists(fsys, target); exists {
			return &LayoutError{Path: target, Reason: "already exists in the install root"}
		}
	}
	for _, entry := range entries {
		if err := rename(fsys, filepath.Join(from, entry.Name()), filepath.Join(to, entry.Name())); err != nil {
			return err
		}
	}
	if err := fsys.Remove(from); err != nil {
		return &LayoutError{Path: from, Reason: "removing extracted archive", Err: err}
	}
	return nil
}

// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/pulumi/setup-pulumi/pkg/platform"
)

const (
	// DefaultMaxEntryBytes bounds a single extracted file (2 GB). Prevents
	// decompression bombs.
	DefaultMaxEntryBytes = 2 << 30

	dirPerm = 0o755
)

// ErrExtraction is the class of every extraction failure: a corrupt or
// unreadable archive, an unsafe entry, or a failed write.
var ErrExtraction = errors.New("archive extraction failed")

type (
	// ExtractionError records which archive, and optionally which entry,
	// could not be extracted.
	ExtractionError struct {
		Archive string
		Entry   string
		Err     error
	}

	// Extractor unpacks release archives onto an afero.Fs. The archive file
	// itself is read from the same filesystem.
	Extractor struct {
		fs             afero.Fs
		maxEntryBytes  int64
		rejectReserved bool
	}

	// Option configures an Extractor.
	Option func(*Extractor)
)

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("extracting %s: entry %q: %v", e.Archive, e.Entry, e.Err)
	}
	return fmt.Sprintf("extracting %s: %v", e.Archive, e.Err)
}

// Unwrap returns ErrExtraction and the underlying cause.
func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExtraction}
	}
	return []error{ErrExtraction, e.Err}
}

// WithMaxEntryBytes overrides DefaultMaxEntryBytes.
func WithMaxEntryBytes(n int64) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.maxEntryBytes = n
		}
	}
}

// WithRejectWindowsReservedNames makes entries whose path contains a Windows
// device name ("nul", "CON.txt") an error instead of a silent write to the
// device.
func WithRejectWindowsReservedNames(reject bool) Option {
	return func(x *Extractor) {
		x.rejectReserved = reject
	}
}

// NewExtractor creates an Extractor writing to fsys.
func NewExtractor(fsys afero.Fs, opts ...Option) *Extractor {
	x := &Extractor{
		fs:            fsys,
		maxEntryBytes: DefaultMaxEntryBytes,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract unpacks the archive at archivePath into destDir according to ext
// (platform.ExtTarGz or platform.ExtZip). destDir is created if missing.
func (x *Extractor) Extract(ctx context.Context, archivePath, ext, destDir string) error {
	switch ext {
	case platform.ExtTarGz:
		return x.ExtractTarGz(ctx, archivePath, destDir)
	case platform.ExtZip:
		return x.ExtractZip(ctx, archivePath, destDir)
	default:
		return &ExtractionError{Archive: archivePath, Err: fmt.Errorf("unsupported archive format %q", ext)}
	}
}

// ExtractTarGz unpacks a gzip-compressed tarball.
func (x *Extractor) ExtractTarGz(ctx context.Context, archivePath, destDir string) error {
	f, err := x.fs.Open(archivePath)
	if err != nil {
		return &ExtractionError{Archive: archivePath, Err: err}
	}
	defer func() { _ = f.Close() }() // read-only file handle

	gz, err := gzip.NewReader(f)
	if err != nil {
		return &ExtractionError{Archive: archivePath, Err: fmt.Errorf("reading gzip header: %w", err)}
	}
	defer func() { _ = gz.Close() }()

	if err := x.fs.MkdirAll(destDir, dirPerm); err != nil {
		return &ExtractionError{Archive: archivePath, Err: fmt.Errorf("creating %s: %w", destDir, err)}
	}

	tr := tar.NewReader(gz)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return &ExtractionError{Archive: archivePath, Err: fmt.Errorf("reading tar entry: %w", nextErr)}
		}

		target, err := x.entryTarget(destDir, hdr.Name)
		if err != nil {
			return &ExtractionError{Archive: archivePath, Entry: hdr.Name, Err: err}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = x.fs.MkdirAll(target, dirPerm)
		case tar.TypeReg:
			err = x.writeFile(target, tr, hdr.FileInfo().Mode())
		case tar.TypeSymlink:
			err = x.symlink(destDir, target, hdr.Linkname)
		default:
			slog.Debug("skipping tar entry", "entry", hdr.Name, "type", string(hdr.Typeflag))
			continue
		}
		if err != nil {
			return &ExtractionError{Archive: archivePath, Entry: hdr.Name, Err: err}
		}
		count++
	}

	slog.Debug("extracted tarball", "archive", archivePath, "dest", destDir, "entries", count)
	return nil
}

// ExtractZip unpacks a zip archive.
func (x *Extractor) ExtractZip(ctx context.Context, archivePath, destDir string) error {
	f, err := x.fs.Open(archivePath)
	if err != nil {
		return &ExtractionError{Archive: archivePath, Err: err}
	}
	defer func() { _ = f.Close() }() // read-only file handle

	info, err := f.Stat()
	if err != nil {
		return &ExtractionError{Archive: archivePath, Err: err}
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return &ExtractionError{Archive: archivePath, Err: fmt.Errorf("reading zip directory: %w", err)}
	}

	if err := x.fs.MkdirAll(destDir, dirPerm); err != nil {
		return &ExtractionError{Archive: archivePath, Err: fmt.Errorf("creating %s: %w", destDir, err)}
	}

	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := x.entryTarget(destDir, zf.Name)
		if err != nil {
			return &ExtractionError{Archive: archivePath, Entry: zf.Name, Err: err}
		}

		if zf.FileInfo().IsDir() {
			err = x.fs.MkdirAll(target, dirPerm)
		} else {
			err = x.writeZipEntry(target, zf)
		}
		if err != nil {
			return &ExtractionError{Archive: archivePath, Entry: zf.Name, Err: err}
		}
	}

	slog.Debug("extracted zip", "archive", archivePath, "dest", destDir, "entries", len(zr.File))
	return nil
}

func (x *Extractor) writeZipEntry(target string, zf *zip.File) error {
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("opening entry: %w", err)
	}
	defer func() { _ = rc.Close() }()

	return x.writeFile(target, rc, zf.Mode())
}

// writeFile copies at most maxEntryBytes from r into target.
func (x *Extractor) writeFile(target string, r io.Reader, mode fs.FileMode) (err error) {
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}

	if err := x.fs.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	out, err := x.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing file: %w", closeErr)
		}
	}()

	n, err := io.Copy(out, io.LimitReader(r, x.maxEntryBytes+1))
	if err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	if n > x.maxEntryBytes {
		return fmt.Errorf("entry exceeds %d bytes", x.maxEntryBytes)
	}

	// OpenFile is subject to the umask; restore the archived permissions
	// so executables stay executable.
	if err := x.fs.Chmod(target, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	return nil
}

// symlink creates target pointing at linkname when the filesystem supports
// links. The link must resolve inside destDir.
func (x *Extractor) symlink(destDir, target, linkname string) error {
	linker, ok := x.fs.(afero.Linker)
	if !ok {
		slog.Debug("filesystem does not support symlinks, skipping", "link", target)
		return nil
	}

	if filepath.IsAbs(linkname) || path.IsAbs(linkname) {
		return fmt.Errorf("absolute symlink target %q", linkname)
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	if !within(destDir, resolved) {
		return fmt.Errorf("symlink target %q escapes the destination", linkname)
	}

	if err := x.fs.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	return linker.SymlinkIfPossible(linkname, target)
}

// entryTarget maps an archive entry name to a path under destDir, rejecting
// absolute names, traversal, and (optionally) Windows device names.
func (x *Extractor) entryTarget(destDir, name string) (string, error) {
	if name == "" {
		return "", errors.New("empty entry name")
	}
	if path.IsAbs(name) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", errors.New("absolute path in archive")
	}
	if x.rejectReserved && platform.HasWindowsReservedSegment(name) {
		return "", errors.New("entry uses a reserved Windows device name")
	}

	target := filepath.Join(destDir, filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if !within(destDir, target) {
		return "", errors.New("path escapes the destination")
	}
	return target, nil
}

// within reports whether target is destDir or below it.
func within(destDir, target string) bool {
	dest := filepath.Clean(destDir)
	target = filepath.Clean(target)
	return target == dest || strings.HasPrefix(target, dest+string(filepath.Separator))
}

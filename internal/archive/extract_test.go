// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"

	"github.com/pulumi/setup-pulumi/internal/testutil"
	"github.com/pulumi/setup-pulumi/pkg/platform"
)

func writeMemArchive(t *testing.T, fsys afero.Fs, name string, data []byte) string {
	t.Helper()

	p := filepath.Join("/downloads", name)
	if err := afero.WriteFile(fsys, p, data, 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return p
}

func readMem(t *testing.T, fsys afero.Fs, p string) string {
	t.Helper()

	data, err := afero.ReadFile(fsys, p)
	if err != nil {
		t.Fatalf("reading %s: %v", p, err)
	}
	return string(data)
}

func TestExtractTarGz(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	src := writeMemArchive(t, fsys, "pulumi.tar.gz", testutil.TarGz(t, testutil.UnixRelease("3.1.2")))

	dest := filepath.Join("/home", "user", ".pulumi")
	if err := NewExtractor(fsys).Extract(context.Background(), src, platform.ExtTarGz, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := readMem(t, fsys, filepath.Join(dest, "pulumi", "pulumi")); got != "#!/bin/sh\necho v3.1.2\n" {
		t.Errorf("pulumi body = %q", got)
	}

	info, err := fsys.Stat(filepath.Join(dest, "pulumi", "pulumi-language-nodejs"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestExtractZip(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	src := writeMemArchive(t, fsys, "pulumi.zip", testutil.Zip(t, testutil.WindowsRelease("3.1.2")))

	dest := filepath.Join("/home", "user")
	if err := NewExtractor(fsys).Extract(context.Background(), src, platform.ExtZip, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := readMem(t, fsys, filepath.Join(dest, "Pulumi", "bin", "pulumi.exe")); got != "pulumi.exe v3.1.2" {
		t.Errorf("pulumi.exe body = %q", got)
	}
}

func TestExtract_CorruptArchives(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ext  string
		data []byte
	}{
		{"tar.gz not gzip", platform.ExtTarGz, []byte("definitely not gzip")},
		{"zip not zip", platform.ExtZip, []byte("definitely not a zip")},
		{"zip given to tar", platform.ExtTarGz, testutil.Zip(t, testutil.WindowsRelease("3.1.2"))},
		{"truncated tar.gz", platform.ExtTarGz, testutil.TarGz(t, testutil.UnixRelease("3.1.2"))[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fsys := afero.NewMemMapFs()
			src := writeMemArchive(t, fsys, "archive", tt.data)

			err := NewExtractor(fsys).Extract(context.Background(), src, tt.ext, "/dest")
			if !errors.Is(err, ErrExtraction) {
				t.Fatalf("expected ErrExtraction, got %v", err)
			}
			var ee *ExtractionError
			if !errors.As(err, &ee) || ee.Archive != src {
				t.Errorf("expected *ExtractionError for %s, got %#v", src, err)
			}
		})
	}
}

func TestExtract_MissingArchive(t *testing.T) {
	t.Parallel()

	err := NewExtractor(afero.NewMemMapFs()).Extract(context.Background(), "/nope.tar.gz", platform.ExtTarGz, "/dest")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func TestExtract_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := NewExtractor(afero.NewMemMapFs()).Extract(context.Background(), "/a.7z", "7z", "/dest")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func TestExtract_RejectsTraversal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []testutil.ArchiveEntry
	}{
		{"parent dir", []testutil.ArchiveEntry{{Name: "../evil", Body: "x"}}},
		{"nested parent dir", []testutil.ArchiveEntry{{Name: "pulumi/../../evil", Body: "x"}}},
		{"absolute", []testutil.ArchiveEntry{{Name: "/etc/evil", Body: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			for _, format := range []string{platform.ExtTarGz, platform.ExtZip} {
				fsys := afero.NewMemMapFs()
				var data []byte
				if format == platform.ExtZip {
					data = testutil.Zip(t, tt.entries)
				} else {
					data = testutil.TarGz(t, tt.entries)
				}
				src := writeMemArchive(t, fsys, "evil", data)

				err := NewExtractor(fsys).Extract(context.Background(), src, format, "/dest/root")
				if !errors.Is(err, ErrExtraction) {
					t.Fatalf("%s: expected ErrExtraction, got %v", format, err)
				}
				if exists, _ := afero.Exists(fsys, "/dest/evil"); exists {
					t.Errorf("%s: traversal entry was written", format)
				}
			}
		})
	}
}

func TestExtract_RejectsWindowsReservedNames(t *testing.T) {
	t.Parallel()

	entries := []testutil.ArchiveEntry{{Name: "Pulumi/bin/nul", Body: "x"}}
	data := testutil.Zip(t, entries)

	fsys := afero.NewMemMapFs()
	src := writeMemArchive(t, fsys, "pulumi.zip", data)

	err := NewExtractor(fsys, WithRejectWindowsReservedNames(true)).Extract(context.Background(), src, platform.ExtZip, "/dest")
	var ee *ExtractionError
	if !errors.As(err, &ee) || ee.Entry != "Pulumi/bin/nul" {
		t.Fatalf("expected *ExtractionError for the reserved entry, got %v", err)
	}

	// Without the option the name is an ordinary file on a non-Windows fs.
	if err := NewExtractor(fsys).Extract(context.Background(), src, platform.ExtZip, "/dest"); err != nil {
		t.Errorf("unexpected error without the option: %v", err)
	}
}

func TestExtract_EntrySizeLimit(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	src := writeMemArchive(t, fsys, "big.tar.gz", testutil.TarGz(t, []testutil.ArchiveEntry{
		{Name: "pulumi/pulumi", Body: "0123456789abcdef"},
	}))

	err := NewExtractor(fsys, WithMaxEntryBytes(8)).Extract(context.Background(), src, platform.ExtTarGz, "/dest")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction for oversized entry, got %v", err)
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	src := writeMemArchive(t, fsys, "pulumi.tar.gz", testutil.TarGz(t, testutil.UnixRelease("3.1.2")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewExtractor(fsys).Extract(ctx, src, platform.ExtTarGz, "/dest")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExtractTarGz_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on Windows")
	}
	t.Parallel()

	root := t.TempDir()
	fsys := afero.NewOsFs()

	src := filepath.Join(root, "links.tar.gz")
	testutil.MustWriteFile(t, src, testutil.TarGz(t, []testutil.ArchiveEntry{
		{Name: "pulumi/pulumi", Body: "bin", Mode: 0o755},
		{Name: "pulumi/pulumi-alias", Linkname: "pulumi"},
	}))

	dest := filepath.Join(root, "out")
	if err := NewExtractor(fsys).Extract(context.Background(), src, platform.ExtTarGz, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target, err := os.Readlink(filepath.Join(dest, "pulumi", "pulumi-alias"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != "pulumi" {
		t.Errorf("link target = %q, want %q", target, "pulumi")
	}

	escaping := filepath.Join(root, "escape.tar.gz")
	testutil.MustWriteFile(t, escaping, testutil.TarGz(t, []testutil.ArchiveEntry{
		{Name: "pulumi/link", Linkname: "../../outside"},
	}))
	err = NewExtractor(fsys).Extract(context.Background(), escaping, platform.ExtTarGz, filepath.Join(root, "out2"))
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction for escaping symlink, got %v", err)
	}
}

func TestWithin(t *testing.T) {
	t.Parallel()

	dest := filepath.Join("/a", "b")
	tests := []struct {
		target string
		want   bool
	}{
		{filepath.Join("/a", "b"), true},
		{filepath.Join("/a", "b", "c"), true},
		{filepath.Join("/a", "bc"), false},
		{filepath.Join("/a"), false},
	}

	for _, tt := range tests {
		if got := within(dest, tt.target); got != tt.want {
			t.Errorf("within(%q, %q) = %v, want %v", dest, tt.target, got, tt.want)
		}
	}
}

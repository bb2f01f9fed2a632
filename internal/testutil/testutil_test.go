// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

func TestSetHomeDir(t *testing.T) {
	key := "HOME"
	if runtime.GOOS == "windows" {
		key = "USERPROFILE"
	}

	tmpDir := t.TempDir()
	original := os.Getenv(key)

	cleanup := SetHomeDir(t, tmpDir)
	if got := os.Getenv(key); got != tmpDir {
		t.Errorf("%s = %q, want %q", key, got, tmpDir)
	}

	cleanup()
	if got := os.Getenv(key); got != original {
		t.Errorf("after cleanup %s = %q, want %q", key, got, original)
	}
}

func TestMustSetenv_UnsetsNewVariable(t *testing.T) {
	const key = "SETUP_PULUMI_TESTUTIL_PROBE"

	cleanup := MustSetenv(t, key, "1")
	if os.Getenv(key) != "1" {
		t.Fatal("variable not set")
	}
	cleanup()
	if _, ok := os.LookupEnv(key); ok {
		t.Error("variable still set after cleanup")
	}
}

func TestMustWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "c.txt")
	MustWriteFile(t, path, []byte("hello"))
	if got := MustReadFile(t, path); got != "hello" {
		t.Errorf("MustReadFile() = %q", got)
	}
}

func TestTarGz_RoundTrip(t *testing.T) {
	t.Parallel()

	data := TarGz(t, UnixRelease("3.1.2"))

	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("reading tar: %v", err)
		}
		names = append(names, hdr.Name)
		if hdr.Name == "pulumi/pulumi" && hdr.FileInfo().Mode().Perm() != 0o755 {
			t.Errorf("pulumi binary mode = %v, want 0755", hdr.FileInfo().Mode().Perm())
		}
	}

	if len(names) != 4 || names[0] != "pulumi/" {
		t.Errorf("unexpected tar entries: %v", names)
	}
}

func TestZip_RoundTrip(t *testing.T) {
	t.Parallel()

	data := Zip(t, WindowsRelease("3.1.2"))

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip reader: %v", err)
	}

	if len(zr.File) != 4 {
		t.Fatalf("got %d zip entries, want 4", len(zr.File))
	}
	if !zr.File[0].FileInfo().IsDir() {
		t.Errorf("%s should be a directory", zr.File[0].Name)
	}

	rc, err := zr.File[2].Open()
	if err != nil {
		t.Fatalf("opening %s: %v", zr.File[2].Name, err)
	}
	defer func() { _ = rc.Close() }()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading %s: %v", zr.File[2].Name, err)
	}
	if string(body) != "pulumi.exe v3.1.2" {
		t.Errorf("body = %q", body)
	}
}

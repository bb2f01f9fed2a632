// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

type (
	// ArchiveEntry describes one member of a test archive. A trailing "/" on
	// Name marks a directory.
	ArchiveEntry struct {
		Name     string
		Body     string
		Mode     fs.FileMode
		Linkname string
	}
)

// archiveTime keeps builder output byte-for-byte reproducible.
var archiveTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// UnixRelease returns the entries of a linux/darwin release tarball: a
// "pulumi/" root holding the CLI and a language host.
func UnixRelease(version string) []ArchiveEntry {
	return []ArchiveEntry{
		{Name: "pulumi/"},
		{Name: "pulumi/pulumi", Body: "#!/bin/sh\necho v" + version + "\n", Mode: 0o755},
		{Name: "pulumi/pulumi-language-nodejs", Body: "nodejs host " + version, Mode: 0o755},
		{Name: "pulumi/pulumi-resource-pulumi-nodejs", Body: "resource " + version, Mode: 0o755},
	}
}

// WindowsRelease returns the entries of a windows release zip: a "Pulumi/"
// root with the executables under "bin/".
func WindowsRelease(version string) []ArchiveEntry {
	return []ArchiveEntry{
		{Name: "Pulumi/"},
		{Name: "Pulumi/bin/"},
		{Name: "Pulumi/bin/pulumi.exe", Body: "pulumi.exe v" + version, Mode: 0o755},
		{Name: "Pulumi/bin/pulumi-language-nodejs.exe", Body: "nodejs host " + version, Mode: 0o755},
	}
}

// TarGz builds a gzip-compressed tarball from entries.
func TarGz(t testing.TB, entries []ArchiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		hdr := &tar.Header{
			Name:    e.Name,
			Mode:    int64(modeOr(e.Mode, 0o644)),
			ModTime: archiveTime,
		}
		switch {
		case e.Linkname != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Linkname
		case strings.HasSuffix(e.Name, "/"):
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = int64(modeOr(e.Mode, 0o755))
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Body))
		}

		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header %s: %v", e.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("writing tar body %s: %v", e.Name, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	return buf.Bytes()
}

// Zip builds a zip archive from entries. Symlinks are not supported.
func Zip(t testing.TB, entries []ArchiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		hdr := &zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: archiveTime,
		}
		if strings.HasSuffix(e.Name, "/") {
			hdr.Method = zip.Store
			hdr.SetMode(fs.ModeDir | modeOr(e.Mode, 0o755))
		} else {
			hdr.SetMode(modeOr(e.Mode, 0o644))
		}

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", e.Name, err)
		}
		if !strings.HasSuffix(e.Name, "/") {
			if _, err := w.Write([]byte(e.Body)); err != nil {
				t.Fatalf("writing zip entry %s: %v", e.Name, err)
			}
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	return buf.Bytes()
}

func modeOr(m, fallback fs.FileMode) fs.FileMode {
	if m == 0 {
		return fallback
	}
	return m
}

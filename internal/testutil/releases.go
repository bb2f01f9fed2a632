// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pulumi/setup-pulumi/pkg/platform"
)

const (
	// LatestPath serves the latest-version pointer.
	LatestPath = "/latest-version"
	// VersionsPath serves the versions document.
	VersionsPath = "/versions.json"
)

// ReleaseServer is an httptest server shaped like get.pulumi.com: a latest
// pointer, a versions document, per-platform archives under any directory
// and checksum files. It records every path requested.
//
// Latest and Versions may be changed before the first request.
type ReleaseServer struct {
	*httptest.Server

	Latest    string
	Versions  string
	Archives  map[string][]byte
	Checksums map[string]string

	mu       sync.Mutex
	requests []string
}

// NewReleaseServer starts a server publishing 3.0.0 and 3.1.2 for every
// platform, with 3.1.2 as latest. The versions document also lists a
// prerelease and an unparseable entry.
func NewReleaseServer(t testing.TB) *ReleaseServer {
	t.Helper()

	rs := &ReleaseServer{
		Latest:    "3.1.2\n",
		Versions:  `["3.0.0", {"version": "3.1.2"}, "3.2.0-alpha.1", "not-a-version"]`,
		Archives:  map[string][]byte{},
		Checksums: map[string]string{},
	}
	for _, v := range []string{"3.0.0", "3.1.2"} {
		rs.AddRelease(t, v)
	}

	rs.Server = httptest.NewServer(http.HandlerFunc(rs.serve))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *ReleaseServer) serve(w http.ResponseWriter, r *http.Request) {
	rs.mu.Lock()
	rs.requests = append(rs.requests, r.URL.Path)
	rs.mu.Unlock()

	switch r.URL.Path {
	case LatestPath:
		_, _ = w.Write([]byte(rs.Latest))
		return
	case VersionsPath:
		_, _ = w.Write([]byte(rs.Versions))
		return
	}
	name := filepath.Base(r.URL.Path)
	if data, ok := rs.Archives[name]; ok {
		_, _ = w.Write(data)
		return
	}
	if body, ok := rs.Checksums[name]; ok {
		_, _ = w.Write([]byte(body))
		return
	}
	http.NotFound(w, r)
}

// AddRelease publishes archives and a checksums file for version.
func (rs *ReleaseServer) AddRelease(t testing.TB, version string) {
	t.Helper()

	var sums string
	for _, p := range platform.All() {
		var data []byte
		if p.IsWindows() {
			data = Zip(t, WindowsRelease(version))
		} else {
			data = TarGz(t, UnixRelease(version))
		}
		name := fmt.Sprintf("pulumi-v%s-%s-x64.%s", version, p.Token(), p.ArchiveExt())
		rs.Archives[name] = data
		sum := sha256.Sum256(data)
		sums += hex.EncodeToString(sum[:]) + "  " + name + "\n"
	}
	rs.Checksums[fmt.Sprintf("pulumi-%s-checksums.txt", version)] = sums
}

// ArchiveRequests counts requests for archives.
func (rs *ReleaseServer) ArchiveRequests() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	n := 0
	for _, p := range rs.requests {
		if _, ok := rs.Archives[filepath.Base(p)]; ok {
			n++
		}
	}
	return n
}

// RequestCount counts every request served.
func (rs *ReleaseServer) RequestCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.requests)
}

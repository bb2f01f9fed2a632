// SPDX-License-Identifier: MPL-2.0

// Package locator builds the download location of a release archive from a
// resolved version and a platform. It performs no I/O.
package locator

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/pulumi/setup-pulumi/pkg/platform"
)

const (
	// DefaultScheme is the scheme of the release download host.
	DefaultScheme = "https"
	// DefaultHost serves Pulumi CLI release archives.
	DefaultHost = "get.pulumi.com"
	// DefaultTool is the archive name prefix.
	DefaultTool = "pulumi"

	// arch is the only architecture the archives are published for.
	arch = "x64"
	// releasePath is the directory on the host holding the archives.
	releasePath = "/releases/sdk"
)

var (
	// ErrEmptyVersion is returned by Locate for an empty version string.
	ErrEmptyVersion = errors.New("version must not be empty")

	// ErrInvalidVersion is returned by Locate for a version that is not a
	// full semantic version such as 3.1.2.
	ErrInvalidVersion = errors.New("invalid version")
)

type (
	// Locator holds the parts of the download URL that do not depend on
	// the version or platform. The zero value uses the defaults.
	Locator struct {
		Scheme string
		Host   string
		Tool   string
	}

	// Artifact describes one downloadable release archive.
	Artifact struct {
		// Version is the resolved version without a leading "v".
		Version  string
		Platform platform.Platform
		URL      string
		// Ext is the archive extension without the leading dot.
		Ext string
		// FileName is the last path segment of URL.
		FileName string
		// ChecksumsURL is the sha256sum-format file published alongside.
		ChecksumsURL string
	}
)

// New returns a Locator with the default scheme, host and tool.
func New() Locator {
	return Locator{Scheme: DefaultScheme, Host: DefaultHost, Tool: DefaultTool}
}

// FromBaseURL parses a base such as "https://get.pulumi.com" or
// "http://127.0.0.1:8080" into a Locator using the default tool.
func FromBaseURL(base string) (Locator, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return Locator{}, fmt.Errorf("parsing download host %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Locator{}, fmt.Errorf("download host %q must include a scheme and host", base)
	}
	return Locator{Scheme: u.Scheme, Host: u.Host, Tool: DefaultTool}, nil
}

// Locate builds the Artifact for version on p. A leading "v" on version is
// dropped, so "v3.1.2" and "3.1.2" locate the same archive. Anything else
// must parse as a strict semantic version, since it becomes part of a URL
// path.
func (l Locator) Locate(version string, p platform.Platform) (Artifact, error) {
	if err := p.Validate(); err != nil {
		return Artifact{}, err
	}

	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if v == "" {
		return Artifact{}, ErrEmptyVersion
	}
	if _, err := semver.StrictNewVersion(v); err != nil {
		return Artifact{}, fmt.Errorf("%w %q: %v", ErrInvalidVersion, version, err)
	}

	tool := l.tool()
	ext := p.ArchiveExt()
	fileName := fmt.Sprintf("%s-v%s-%s-%s.%s", tool, v, p.Token(), arch, ext)

	return Artifact{
		Version:      v,
		Platform:     p,
		URL:          l.url(fileName),
		Ext:          ext,
		FileName:     fileName,
		ChecksumsURL: l.url(fmt.Sprintf("%s-%s-checksums.txt", tool, v)),
	}, nil
}

func (l Locator) url(fileName string) string {
	u := url.URL{
		Scheme: l.scheme(),
		Host:   l.host(),
		Path:   path.Join(releasePath, fileName),
	}
	return u.String()
}

func (l Locator) scheme() string {
	if l.Scheme == "" {
		return DefaultScheme
	}
	return l.Scheme
}

func (l Locator) host() string {
	if l.Host == "" {
		return DefaultHost
	}
	return l.Host
}

func (l Locator) tool() string {
	if l.Tool == "" {
		return DefaultTool
	}
	return l.Tool
}

// SPDX-License-Identifier: MPL-2.0

package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pulumi/setup-pulumi/internal/catalog"
	"github.com/pulumi/setup-pulumi/internal/checksum"
	"github.com/pulumi/setup-pulumi/internal/fetch"
	"github.com/pulumi/setup-pulumi/internal/install"
	"github.com/pulumi/setup-pulumi/internal/locator"
	"github.com/pulumi/setup-pulumi/internal/resolve"
	"github.com/pulumi/setup-pulumi/pkg/platform"
)

const (
	// OutputVersion is the step output holding the installed version.
	OutputVersion = "pulumi-version"
	// OutputBin is the step output holding the exported bin directory.
	OutputBin = "pulumi-bin"

	// DefaultRootDir is the install root under the home directory.
	DefaultRootDir = ".pulumi"
)

// ErrNoHomeDir is returned when no root was given and the home directory
// cannot be determined.
var ErrNoHomeDir = errors.New("cannot determine home directory")

type (
	// Request is one install invocation.
	Request struct {
		// Specifier is "latest", an exact version or a range.
		Specifier string
		// Root is the install root. Empty means ~/.pulumi.
		Root string
		// Clean removes a previous install before extracting.
		Clean bool
	}

	// Result describes a completed install.
	Result struct {
		Platform platform.Platform
		Host     *platform.Info
		Version  string
		Artifact locator.Artifact
		BinDir   string
	}

	// PathExporter publishes the bin directory and step outputs.
	// *pathexport.Exporter satisfies it.
	PathExporter interface {
		AddPath(dir string) error
		SetOutput(name, value string) error
	}

	// Runner composes the install collaborators.
	Runner struct {
		detector       platform.Detector
		source         catalog.Source
		client         *fetch.Client
		locator        locator.Locator
		fs             afero.Fs
		exporter       PathExporter
		verifyChecksum bool
		tempDir        string
		homeDir        func() (string, error)
	}

	// Option configures a Runner.
	Option func(*Runner)
)

// WithDetector replaces host platform detection.
func WithDetector(d platform.Detector) Option {
	return func(r *Runner) {
		r.detector = d
	}
}

// WithSource sets the version catalog.
func WithSource(s catalog.Source) Option {
	return func(r *Runner) {
		r.source = s
	}
}

// WithClient sets the download client.
func WithClient(c *fetch.Client) Option {
	return func(r *Runner) {
		r.client = c
	}
}

// WithLocator sets where release archives are downloaded from.
func WithLocator(l locator.Locator) Option {
	return func(r *Runner) {
		r.locator = l
	}
}

// WithFs sets the filesystem the archive is downloaded to, verified on and
// installed on.
func WithFs(fsys afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fsys
	}
}

// WithExporter sets the path exporter. A nil exporter skips exporting.
func WithExporter(e PathExporter) Option {
	return func(r *Runner) {
		r.exporter = e
	}
}

// WithChecksumVerification enables checking the archive against the
// published checksums file.
func WithChecksumVerification(enabled bool) Option {
	return func(r *Runner) {
		r.verifyChecksum = enabled
	}
}

// WithTempDir sets the parent of the per-run download directory. Empty
// means os.TempDir.
func WithTempDir(dir string) Option {
	return func(r *Runner) {
		r.tempDir = dir
	}
}

// WithHomeDir replaces os.UserHomeDir when computing the default root.
func WithHomeDir(fn func() (string, error)) Option {
	return func(r *Runner) {
		r.homeDir = fn
	}
}

// NewRunner creates a Runner. Collaborators not set by an option get their
// production defaults: host detection, the pulumi.com index catalog, the
// get.pulumi.com locator and the OS filesystem. No exporter is set by
// default.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		locator: locator.New(),
		fs:      afero.NewOsFs(),
		homeDir: os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.detector == nil {
		r.detector = platform.NewDetector()
	}
	if r.client == nil {
		r.client = fetch.New()
	}
	if r.source == nil {
		r.source = catalog.NewIndexSource(r.client)
	}
	return r
}

// Resolve parses specifier and returns the version it selects without
// downloading anything.
func (r *Runner) Resolve(ctx context.Context, specifier string) (string, error) {
	spec, err := resolve.ParseSpecifier(specifier)
	if err != nil {
		return "", err
	}
	slog.Info("Configured range", "specifier", spec.String())

	version, err := resolve.NewResolver(r.source, r.source).Resolve(ctx, spec)
	if err != nil {
		return "", err
	}
	slog.Info("Matched version", "version", version)
	return version, nil
}

// Run performs the whole install. The platform is checked before any
// network access and the specifier before any download.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	host, err := r.detector.Detect(ctx)
	if err != nil {
		return nil, err
	}

	root, err := r.root(req.Root)
	if err != nil {
		return nil, err
	}

	version, err := r.Resolve(ctx, req.Specifier)
	if err != nil {
		return nil, err
	}

	artifact, err := r.locator.Locate(version, host.Platform)
	if err != nil {
		return nil, err
	}
	slog.Info("Install destination", "root", root)

	bin, err := r.fetchAndInstall(ctx, artifact, root, req.Clean)
	if err != nil {
		return nil, err
	}

	if r.exporter != nil {
		if err := r.export(artifact.Version, bin); err != nil {
			return nil, err
		}
	}

	return &Result{
		Platform: host.Platform,
		Host:     host,
		Version:  artifact.Version,
		Artifact: artifact,
		BinDir:   bin,
	}, nil
}

func (r *Runner) fetchAndInstall(ctx context.Context, artifact locator.Artifact, root string, clean bool) (string, error) {
	dir, err := afero.TempDir(r.fs, r.tempDir, "setup-pulumi-")
	if err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	defer func() {
		if rmErr := r.fs.RemoveAll(dir); rmErr != nil {
			slog.Debug("removing download directory", "dir", dir, "error", rmErr)
		}
	}()

	archivePath, err := r.client.DownloadToFile(ctx, r.fs, artifact.URL, dir, "*-"+artifact.FileName)
	if err != nil {
		return "", err
	}
	slog.Info("Downloaded", "url", artifact.URL)

	if r.verifyChecksum {
		if err := checksum.VerifyDownload(ctx, r.fs, r.client, artifact.ChecksumsURL, artifact.FileName, archivePath); err != nil {
			return "", err
		}
	}

	return install.NewInstaller(r.fs, install.WithClean(clean)).Install(ctx, archivePath, artifact.Platform, root)
}

func (r *Runner) export(version, bin string) error {
	if err := r.exporter.AddPath(bin); err != nil {
		return err
	}
	if err := r.exporter.SetOutput(OutputVersion, version); err != nil {
		return err
	}
	return r.exporter.SetOutput(OutputBin, bin)
}

func (r *Runner) root(root string) (string, error) {
	if root != "" {
		return filepath.Abs(root)
	}
	return defaultRoot(r.homeDir)
}

// DefaultRoot returns ~/.pulumi for the current user.
func DefaultRoot() (string, error) {
	return defaultRoot(os.UserHomeDir)
}

func defaultRoot(homeDir func() (string, error)) (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoHomeDir, err)
	}
	if home == "" {
		return "", ErrNoHomeDir
	}
	return filepath.Join(home, DefaultRootDir), nil
}

// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pulumi/setup-pulumi/internal/catalog"
	"github.com/pulumi/setup-pulumi/internal/fetch"
)

const (
	// CatalogSourceIndex reads versions from pulumi.com.
	CatalogSourceIndex CatalogSource = catalog.SourceIndex
	// CatalogSourceGitHub reads versions from the GitHub Releases API.
	CatalogSourceGitHub CatalogSource = catalog.SourceGitHub

	// DefaultVersion is installed when no specifier is configured anywhere.
	DefaultVersion = "latest"
	// DefaultDownloadHost serves the release archives.
	DefaultDownloadHost = "https://get.pulumi.com"
	// DefaultGitHubRepo publishes Pulumi CLI releases.
	DefaultGitHubRepo = "pulumi/pulumi"

	maxRetries = 10
)

var (
	// ErrInvalidCatalogSource is returned for a catalog source other than
	// "index" or "github".
	ErrInvalidCatalogSource = errors.New("invalid catalog source")
	// ErrInvalidDownloadConfig is the sentinel wrapped by InvalidDownloadConfigError.
	ErrInvalidDownloadConfig = errors.New("invalid download config")
	// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// CatalogSource selects where published versions are read from.
	CatalogSource string

	// InvalidCatalogSourceError is returned when a CatalogSource value is not
	// recognized.
	InvalidCatalogSourceError struct {
		Value CatalogSource
	}

	// InvalidDownloadConfigError collects DownloadConfig field errors.
	InvalidDownloadConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError collects field errors from every section.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Version is the specifier used when none is given on the command line.
		Version string `json:"version" mapstructure:"version"`
		// Install configures where and how the archive is installed.
		Install InstallConfig `json:"install" mapstructure:"install"`
		// Download configures the release host and transport.
		Download DownloadConfig `json:"download" mapstructure:"download"`
		// Catalog configures where versions are resolved from.
		Catalog CatalogConfig `json:"catalog" mapstructure:"catalog"`
		// VerifyChecksum checks the archive against the published checksums.
		VerifyChecksum bool `json:"verify_checksum" mapstructure:"verify_checksum"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// InstallConfig configures the install step.
	InstallConfig struct {
		// Root is the install root. Empty means ~/.pulumi.
		Root string `json:"root" mapstructure:"root"`
		// Clean removes a previous install first.
		Clean bool `json:"clean" mapstructure:"clean"`
	}

	// DownloadConfig configures the transport.
	DownloadConfig struct {
		Host    string        `json:"host" mapstructure:"host"`
		Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
		Retries int           `json:"retries" mapstructure:"retries"`
	}

	// CatalogConfig configures the version catalog.
	CatalogConfig struct {
		Source      CatalogSource `json:"source" mapstructure:"source"`
		VersionsURL string        `json:"versions_url" mapstructure:"versions_url"`
		LatestURL   string        `json:"latest_url" mapstructure:"latest_url"`
		GitHubRepo  string        `json:"github_repo" mapstructure:"github_repo"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and issue guidance on errors.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Version: DefaultVersion,
		Download: DownloadConfig{
			Host:    DefaultDownloadHost,
			Timeout: fetch.DefaultTimeout,
			Retries: fetch.DefaultRetries,
		},
		Catalog: CatalogConfig{
			Source:      CatalogSourceIndex,
			VersionsURL: catalog.DefaultVersionsURL,
			LatestURL:   catalog.DefaultLatestURL,
			GitHubRepo:  DefaultGitHubRepo,
		},
	}
}

// CatalogSettings converts the catalog section into a catalog.Config.
// token is sent to GitHub only.
func (c *Config) CatalogSettings(token string) catalog.Config {
	return catalog.Config{
		Source:      string(c.Catalog.Source),
		VersionsURL: c.Catalog.VersionsURL,
		LatestURL:   c.Catalog.LatestURL,
		GitHubRepo:  c.Catalog.GitHubRepo,
		GitHubToken: token,
	}
}

// String returns the string representation of the CatalogSource.
func (s CatalogSource) String() string { return string(s) }

// IsValid returns whether the CatalogSource is one of the defined sources.
// The zero value is valid and means the index source.
func (s CatalogSource) IsValid() (bool, []error) {
	switch s {
	case "", CatalogSourceIndex, CatalogSourceGitHub:
		return true, nil
	default:
		return false, []error{&InvalidCatalogSourceError{Value: s}}
	}
}

// Error implements the error interface for InvalidCatalogSourceError.
func (e *InvalidCatalogSourceError) Error() string {
	return fmt.Sprintf("invalid catalog source %q (valid: %s, %s)", e.Value, CatalogSourceIndex, CatalogSourceGitHub)
}

// Unwrap returns ErrInvalidCatalogSource for errors.Is() compatibility.
func (e *InvalidCatalogSourceError) Unwrap() error { return ErrInvalidCatalogSource }

// IsValid checks the host URL, the timeout and the retry count.
func (c DownloadConfig) IsValid() (bool, []error) {
	var errs []error
	if u, err := url.Parse(c.Host); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("download.host %q must be an absolute URL", c.Host))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("download.timeout must be positive, got %s", c.Timeout))
	}
	if c.Retries < 0 || c.Retries > maxRetries {
		errs = append(errs, fmt.Errorf("download.retries must be between 0 and %d, got %d", maxRetries, c.Retries))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidDownloadConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDownloadConfigError.
func (e *InvalidDownloadConfigError) Error() string {
	return fmt.Sprintf("invalid download config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidDownloadConfig for errors.Is() compatibility.
func (e *InvalidDownloadConfigError) Unwrap() error { return ErrInvalidDownloadConfig }

// IsValid returns whether the Config has valid fields. Values that came from
// a config file were already checked by the CUE schema; this catches
// environment overrides, which bypass it.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.Version) == "" {
		errs = append(errs, errors.New("version must not be empty"))
	}
	if valid, fieldErrs := c.Download.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Catalog.Source.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", joinErrors(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

func joinErrors(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pulumi/setup-pulumi/internal/fetch"
)

const (
	// SourceIndex reads the pulumi.com versions document.
	SourceIndex = "index"
	// SourceGitHub reads the GitHub Releases API.
	SourceGitHub = "github"
)

var (
	// ErrEmptyLatest is returned when the latest pointer answered with an
	// empty body. It is always wrapped in a *fetch.DownloadError.
	ErrEmptyLatest = errors.New("latest version endpoint returned an empty body")

	// ErrUnknownSource is returned by New for a source name other than
	// SourceIndex or SourceGitHub.
	ErrUnknownSource = errors.New("unknown catalog source")
)

type (
	// Source provides the published versions and the latest pointer.
	Source interface {
		// Versions returns every published version string. Order carries no
		// meaning.
		Versions(ctx context.Context) ([]string, error)
		// Latest returns the single version the publisher marks as latest.
		Latest(ctx context.Context) (string, error)
	}

	// Config selects and parameterizes a Source.
	Config struct {
		// Source is SourceIndex or SourceGitHub. Empty means SourceIndex.
		Source      string
		VersionsURL string
		LatestURL   string
		// GitHubRepo is "owner/name".
		GitHubRepo    string
		GitHubBaseURL string
		GitHubToken   string
	}
)

// New builds the Source named by cfg.Source on top of client.
func New(cfg Config, client *fetch.Client) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case "", SourceIndex:
		var opts []IndexOption
		if cfg.VersionsURL != "" {
			opts = append(opts, WithVersionsURL(cfg.VersionsURL))
		}
		if cfg.LatestURL != "" {
			opts = append(opts, WithLatestURL(cfg.LatestURL))
		}
		return NewIndexSource(client, opts...), nil
	case SourceGitHub:
		var opts []GitHubOption
		if cfg.GitHubRepo != "" {
			owner, repo, ok := strings.Cut(cfg.GitHubRepo, "/")
			if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
				return nil, fmt.Errorf("invalid GitHub repository %q: expected owner/name", cfg.GitHubRepo)
			}
			opts = append(opts, WithRepo(owner, repo))
		}
		if cfg.GitHubBaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.GitHubBaseURL))
		}
		if cfg.GitHubToken != "" {
			opts = append(opts, WithToken(cfg.GitHubToken))
		}
		return NewGitHubSource(client, opts...), nil
	default:
		return nil, fmt.Errorf("%w %q (valid: %s, %s)", ErrUnknownSource, cfg.Source, SourceIndex, SourceGitHub)
	}
}

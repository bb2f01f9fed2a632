// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/pulumi/setup-pulumi/internal/fetch"
)

const (
	// DefaultGitHubBaseURL is the public GitHub REST API.
	DefaultGitHubBaseURL = "https://api.github.com"

	// defaultPerPage is the number of releases fetched per API page.
	defaultPerPage = 100

	// maxPages is the upper bound on pagination to avoid runaway requests.
	maxPages = 10

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	maxJSONResponseBytes = 10 << 20
)

type (
	// RateLimitError is returned when the GitHub API rate limit is exceeded.
	// It belongs to the download-failure class.
	RateLimitError struct {
		Limit     int
		Remaining int
		ResetAt   time.Time
	}

	// GitHubSource reads versions from the GitHub Releases API. Draft
	// releases are excluded; pre-releases are kept and left to the resolver.
	GitHubSource struct {
		client  *fetch.Client
		owner   string
		repo    string
		baseURL string
		token   string
	}

	// GitHubOption configures a GitHubSource during construction.
	GitHubOption func(*GitHubSource)

	// githubRelease is the subset of the GitHub Release wire format we read.
	githubRelease struct {
		TagName    string `json:"tag_name"`
		Draft      bool   `json:"draft"`
		Prerelease bool   `json:"prerelease"`
	}
)

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

// Unwrap returns fetch.ErrDownloadFailure.
func (e *RateLimitError) Unwrap() error { return fetch.ErrDownloadFailure }

// WithBaseURL overrides the GitHub API base URL, primarily for test servers.
func WithBaseURL(base string) GitHubOption {
	return func(g *GitHubSource) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets a GitHub token for authenticated requests.
// Authenticated requests have a higher rate limit (5000/hour vs 60/hour).
func WithToken(token string) GitHubOption {
	return func(g *GitHubSource) {
		g.token = token
	}
}

// WithRepo overrides the default repository owner and name.
func WithRepo(owner, repo string) GitHubOption {
	return func(g *GitHubSource) {
		g.owner = owner
		g.repo = repo
	}
}

// NewGitHubSource creates a GitHubSource for pulumi/pulumi on api.github.com.
func NewGitHubSource(client *fetch.Client, opts ...GitHubOption) *GitHubSource {
	g := &GitHubSource{
		client:  client,
		owner:   "pulumi",
		repo:    "pulumi",
		baseURL: DefaultGitHubBaseURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Versions lists every non-draft release whose tag is a valid semantic
// version, following pagination up to maxPages. Hitting the cap logs a
// warning and returns what was collected. The leading "v" of the tag is
// dropped so entries match the download URL template.
func (g *GitHubSource) Versions(ctx context.Context) ([]string, error) {
	pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d",
		g.baseURL, g.owner, g.repo, defaultPerPage)

	var tags []string

	for page := 0; page < maxPages && pageURL != ""; page++ {
		resp, err := g.get(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("listing releases: %w", err)
		}

		releases, parseErr := parseReleases(io.LimitReader(resp.Body, maxJSONResponseBytes))
		_ = resp.Body.Close()
		if parseErr != nil {
			return nil, fmt.Errorf("listing releases: %w", &fetch.DownloadError{URL: pageURL, Err: parseErr})
		}

		for _, r := range releases {
			if r.Draft {
				continue
			}
			tag := canonicalTag(r.TagName)
			if !semver.IsValid(tag) {
				slog.Debug("skipping release with non-semver tag", "tag", r.TagName)
				continue
			}
			tags = append(tags, tag)
		}

		pageURL = parseLinkHeader(resp.Header.Get("Link"))
	}

	if pageURL != "" {
		slog.Warn("release list truncated, older versions are not considered",
			"pages", maxPages, "next", pageURL)
	}

	// Newest first, for readable debug output. Callers must not rely on it.
	slices.SortStableFunc(tags, func(a, b string) int {
		return semver.Compare(b, a)
	})

	versions := make([]string, 0, len(tags))
	for _, tag := range tags {
		versions = append(versions, strings.TrimPrefix(tag, "v"))
	}

	slog.Debug("fetched version catalog", "source", SourceGitHub, "count", len(versions))

	return versions, nil
}

// Latest returns the tag of the release GitHub marks as latest, without its
// leading "v".
func (g *GitHubSource) Latest(ctx context.Context) (string, error) {
	latestURL := fmt.Sprintf("%s/repos/%s/%s/releases/latest", g.baseURL, g.owner, g.repo)

	resp, err := g.get(ctx, latestURL)
	if err != nil {
		return "", fmt.Errorf("fetching latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	var gr githubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&gr); err != nil {
		return "", fmt.Errorf("fetching latest release: %w",
			&fetch.DownloadError{URL: latestURL, Err: fmt.Errorf("decoding response: %w", err)})
	}

	v := strings.TrimPrefix(strings.TrimSpace(gr.TagName), "v")
	if v == "" {
		return "", &fetch.DownloadError{URL: latestURL, Err: ErrEmptyLatest}
	}
	return v, nil
}

// get performs an API request and returns a 200 response. Rate limiting and
// other statuses are turned into errors and the body is closed.
func (g *GitHubSource) get(ctx context.Context, reqURL string) (*http.Response, error) {
	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("X-GitHub-Api-Version", "2022-11-28")

	// Only attach the token when the request targets the configured API
	// host. Pagination links come from the server and are not trusted.
	if g.token != "" && isGitHubHost(reqURL, g.baseURL) {
		header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(ctx, reqURL, header)
	if err != nil {
		return nil, err
	}

	if rlErr := checkRateLimit(resp); rlErr != nil {
		_ = resp.Body.Close()
		return nil, rlErr
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &fetch.DownloadError{URL: reqURL, StatusCode: resp.StatusCode}
	}

	return resp, nil
}

// checkRateLimit inspects the X-RateLimit-* response headers and returns a
// RateLimitError when the remaining quota is zero.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil //nolint:nilerr // Non-numeric header is non-fatal.
	}

	// Malformed or missing companion headers default to zero.
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // Best-effort header parsing.
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // Best-effort header parsing.

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}

// parseReleases decodes a JSON array of GitHub releases.
func parseReleases(body io.Reader) ([]githubRelease, error) {
	var raw []githubRelease
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding releases: %w", err)
	}
	return raw, nil
}

// parseLinkHeader extracts the URL for the "next" page from a GitHub API Link header.
// Returns an empty string if no next page exists.
//
// Example header: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkHeader(header string) string {
	if header == "" {
		return ""
	}

	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}

		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}

	return ""
}

// canonicalTag adds the "v" prefix x/mod/semver requires.
func canonicalTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}

// isGitHubHost reports whether reqURL targets the configured API host.
func isGitHubHost(reqURL, baseURL string) bool {
	req, err := url.Parse(reqURL)
	if err != nil {
		return false
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(req.Host, base.Host)
}

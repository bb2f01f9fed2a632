// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pulumi/setup-pulumi/internal/fetch"
)

const (
	// DefaultVersionsURL lists every published CLI version.
	DefaultVersionsURL = "https://www.pulumi.com/data/versions.json"
	// DefaultLatestURL returns the latest CLI version as plain text.
	DefaultLatestURL = "https://www.pulumi.com/latest-version"
)

type (
	// IndexSource reads versions from the pulumi.com versions document and
	// the latest pointer from its plain-text endpoint.
	IndexSource struct {
		client      *fetch.Client
		versionsURL string
		latestURL   string
	}

	// IndexOption configures an IndexSource.
	IndexOption func(*IndexSource)

	// indexEntry accepts both shapes found in the versions document: a bare
	// string, or an object carrying a "version" field.
	indexEntry struct {
		Version string
	}
)

// UnmarshalJSON implements json.Unmarshaler.
func (e *indexEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Version)
	}

	var obj struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("versions entry is neither a string nor an object: %w", err)
	}
	e.Version = obj.Version
	return nil
}

// WithVersionsURL overrides DefaultVersionsURL.
func WithVersionsURL(u string) IndexOption {
	return func(s *IndexSource) {
		s.versionsURL = u
	}
}

// WithLatestURL overrides DefaultLatestURL.
func WithLatestURL(u string) IndexOption {
	return func(s *IndexSource) {
		s.latestURL = u
	}
}

// NewIndexSource creates an IndexSource using the pulumi.com endpoints by
// default.
func NewIndexSource(client *fetch.Client, opts ...IndexOption) *IndexSource {
	s := &IndexSource{
		client:      client,
		versionsURL: DefaultVersionsURL,
		latestURL:   DefaultLatestURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Versions returns the non-empty, whitespace-trimmed entries of the versions
// document.
func (s *IndexSource) Versions(ctx context.Context) ([]string, error) {
	var entries []indexEntry
	if err := s.client.GetJSON(ctx, s.versionsURL, &entries); err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}

	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		if v := strings.TrimSpace(e.Version); v != "" {
			versions = append(versions, v)
		}
	}

	slog.Debug("fetched version catalog", "source", SourceIndex, "count", len(versions))

	return versions, nil
}

// Latest returns the trimmed body of the latest-version endpoint.
func (s *IndexSource) Latest(ctx context.Context) (string, error) {
	body, err := s.client.GetText(ctx, s.latestURL)
	if err != nil {
		return "", fmt.Errorf("fetching latest version: %w", err)
	}

	v := strings.TrimSpace(body)
	if v == "" {
		return "", &fetch.DownloadError{URL: s.latestURL, Err: ErrEmptyLatest}
	}
	return v, nil
}

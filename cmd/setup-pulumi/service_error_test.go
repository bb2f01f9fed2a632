// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/fang"

	"github.com/pulumi/setup-pulumi/internal/archive"
	"github.com/pulumi/setup-pulumi/internal/catalog"
	"github.com/pulumi/setup-pulumi/internal/checksum"
	"github.com/pulumi/setup-pulumi/internal/fetch"
	"github.com/pulumi/setup-pulumi/internal/install"
	"github.com/pulumi/setup-pulumi/internal/issue"
	"github.com/pulumi/setup-pulumi/internal/locator"
	"github.com/pulumi/setup-pulumi/internal/resolve"
	"github.com/pulumi/setup-pulumi/pkg/platform"
)

func TestNewServiceError_Classification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantID   issue.Id
		wantCode int
	}{
		{"unsupported platform", &platform.UnsupportedError{OS: "plan9"}, issue.UnsupportedPlatformId, ExitUserError},
		{"invalid specifier", fmt.Errorf("%w: empty", resolve.ErrInvalidSpecifier), issue.InvalidSpecifierId, ExitUserError},
		{"invalid version", fmt.Errorf("%w %q", locator.ErrInvalidVersion, "3.1"), issue.InvalidSpecifierId, ExitUserError},
		{"not found", fmt.Errorf("resolving: %w", resolve.ErrVersionNotFound), issue.VersionNotFoundId, ExitUserError},
		{"layout", &install.LayoutError{Path: "/root/.pulumi/bin", Reason: "already exists"}, issue.LayoutErrorId, ExitUserError},
		{"rate limited", &catalog.RateLimitError{}, issue.RateLimitedId, ExitFailure},
		{"download", &fetch.DownloadError{URL: "https://example.test/a", StatusCode: 500}, issue.DownloadFailureId, ExitFailure},
		{"checksum", fmt.Errorf("verify: %w", checksum.ErrChecksumMismatch), issue.ChecksumMismatchId, ExitFailure},
		{"extraction", fmt.Errorf("%w: truncated", archive.ErrExtraction), issue.ExtractionErrorId, ExitFailure},
		{"unclassified", errors.New("disk on fire"), 0, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svcErr := newServiceError("install Pulumi CLI", tt.err)
			if svcErr.IssueID != tt.wantID {
				t.Errorf("IssueID = %v, want %v", svcErr.IssueID, tt.wantID)
			}
			if svcErr.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", svcErr.Code, tt.wantCode)
			}
			if !errors.Is(svcErr, tt.err) {
				t.Errorf("service error does not wrap %v", tt.err)
			}
			if !strings.HasPrefix(svcErr.Error(), "failed to install Pulumi CLI: ") {
				t.Errorf("Error() = %q", svcErr.Error())
			}
		})
	}
}

func TestNewServiceError_KeepsActionableError(t *testing.T) {
	t.Parallel()

	cause := issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource("/etc/config.cue").
		WithIssue(issue.ConfigLoadFailedId).
		WithSuggestion("Check the file").
		Wrap(errors.New("bad syntax")).
		BuildError()

	svcErr := newServiceError("install Pulumi CLI", cause)
	if svcErr.Err.Operation != "load configuration" {
		t.Errorf("Operation = %q, want the original", svcErr.Err.Operation)
	}
	if svcErr.IssueID != issue.ConfigLoadFailedId || svcErr.Code != ExitUserError {
		t.Errorf("got issue %v code %d", svcErr.IssueID, svcErr.Code)
	}
	if len(svcErr.Err.Suggestions) != 1 {
		t.Errorf("suggestions = %v, want the original one", svcErr.Err.Suggestions)
	}
}

func TestRenderServiceError(t *testing.T) {
	t.Parallel()

	svcErr := newServiceError("resolve version", fmt.Errorf("%w: ^9.0.0", resolve.ErrVersionNotFound))

	var quiet bytes.Buffer
	renderServiceError(&quiet, svcErr, false)
	if !strings.Contains(quiet.String(), "failed to resolve version") {
		t.Errorf("missing message: %q", quiet.String())
	}
	if strings.Contains(quiet.String(), "Error chain") {
		t.Errorf("non-verbose output has the error chain: %q", quiet.String())
	}

	var loud bytes.Buffer
	renderServiceError(&loud, svcErr, true)
	out := loud.String()
	if !strings.Contains(out, "Error chain") {
		t.Errorf("verbose output lacks the error chain: %q", out)
	}
	if !strings.Contains(out, "Could not find a version that satisfied the version range") {
		t.Errorf("verbose output lacks the catalog entry: %q", out)
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit error", &ExitError{Code: ExitFailure}, ExitFailure},
		{"wrapped exit error", fmt.Errorf("run: %w", &ExitError{Code: 7}), 7},
		{"cancelled", context.Canceled, ExitFailure},
		{"usage", errors.New(`unknown flag: --nope`), ExitUserError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandleError_SkipsRenderedErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	svcErr := newServiceError("resolve version", resolve.ErrVersionNotFound)
	handleError(&buf, fang.Styles{}, &ExitError{Code: ExitUserError, Err: svcErr})
	if buf.Len() != 0 {
		t.Errorf("rendered error printed again: %q", buf.String())
	}
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

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

type errorKind struct {
	target      error
	id          issue.Id
	code        int
	suggestions []string
}

// errorKinds is checked in order; the first sentinel found in the chain
// decides the issue and exit code. RateLimitError also unwraps to
// ErrDownloadFailure, so it comes first.
var errorKinds = []errorKind{
	{platform.ErrUnsupportedPlatform, issue.UnsupportedPlatformId, ExitUserError,
		[]string{"Run on a Linux, macOS or Windows host"}},
	{resolve.ErrInvalidSpecifier, issue.InvalidSpecifierId, ExitUserError,
		[]string{"Use 'latest', an exact version like 3.1.2, or a range like ^3.0.0"}},
	{locator.ErrEmptyVersion, issue.InvalidSpecifierId, ExitUserError, nil},
	{locator.ErrInvalidVersion, issue.InvalidSpecifierId, ExitUserError, nil},
	{resolve.ErrVersionNotFound, issue.VersionNotFoundId, ExitUserError,
		[]string{"Preview matches with 'setup-pulumi resolve <range>'"}},
	{install.ErrLayout, issue.LayoutErrorId, ExitUserError,
		[]string{"Re-run with --clean to replace the previous install"}},
	{errRateLimited, issue.RateLimitedId, ExitFailure,
		[]string{"Set GITHUB_TOKEN or use the index catalog"}},
	{checksum.ErrChecksumMismatch, issue.ChecksumMismatchId, ExitFailure, nil},
	{archive.ErrExtraction, issue.ExtractionErrorId, ExitFailure, nil},
	{fetch.ErrDownloadFailure, issue.DownloadFailureId, ExitFailure,
		[]string{"Check your network connection and retry"}},
}

// errRateLimited matches *catalog.RateLimitError through errors.Is.
var errRateLimited = errors.New("rate limited")

// ServiceError is a classified failure ready for display: the user-facing
// error, its catalog entry and the process exit code.
type ServiceError struct {
	Err     *issue.ActionableError
	IssueID issue.Id
	Code    int
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// newServiceError classifies err, which happened while performing operation.
// An ActionableError already in the chain keeps its own operation and issue.
func newServiceError(operation string, err error) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		ae = &issue.ActionableError{Operation: operation, Cause: err}
	}

	svc := &ServiceError{Err: ae, IssueID: ae.Issue, Code: ExitFailure}
	if ae.Issue == issue.ConfigLoadFailedId {
		svc.Code = ExitUserError
	}

	var rl *catalog.RateLimitError
	for _, kind := range errorKinds {
		matched := errors.Is(err, kind.target)
		if kind.target == errRateLimited {
			matched = errors.As(err, &rl)
		}
		if !matched {
			continue
		}
		if svc.IssueID == 0 {
			svc.IssueID = kind.id
		}
		svc.Code = kind.code
		if !ae.HasSuggestions() {
			ae.Suggestions = kind.suggestions
		}
		break
	}

	return svc
}

// renderServiceError prints the one-line error with its suggestions. In
// verbose mode it adds the error chain and the rendered catalog entry.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, verbose bool) {
	if svcErr == nil {
		return
	}

	fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+svcErr.Err.Format(verbose))

	if !verbose || svcErr.IssueID == 0 {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render("notty")
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}

// exitCode maps any error returned by a command to a process exit code.
func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return ExitFailure
	}
	// Flag and argument errors from cobra.
	return ExitUserError
}

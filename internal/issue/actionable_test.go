// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

type multiErr struct{ errs []error }

func (m *multiErr) Error() string   { return "multi" }
func (m *multiErr) Unwrap() []error { return m.errs }

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "install Pulumi CLI"},
			expected: "failed to install Pulumi CLI",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "resolve version", Resource: "^9.0.0"},
			expected: "failed to resolve version: ^9.0.0",
		},
		{
			name:     "operation with cause",
			err:      &ActionableError{Operation: "download archive", Cause: errors.New("unexpected status 404")},
			expected: "failed to download archive: unexpected status 404",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "resolve version",
				Resource:  "^9.0.0",
				Cause:     errors.New("version not found"),
			},
			expected: "failed to resolve version: ^9.0.0: version not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := &ActionableError{Operation: "test", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if (&ActionableError{Operation: "test"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("version not found")

	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name: "suggestions",
			err: &ActionableError{
				Operation:   "install Pulumi CLI",
				Resource:    "/home/runner/.pulumi/bin",
				Suggestions: []string{"Run with --clean", "Remove the directory"},
			},
			contains: []string{
				"failed to install Pulumi CLI: /home/runner/.pulumi/bin",
				"• Run with --clean",
				"• Remove the directory",
			},
		},
		{
			name:     "no chain when not verbose",
			err:      &ActionableError{Operation: "load config", Cause: errors.New("syntax error")},
			contains: []string{"failed to load config: syntax error"},
			excludes: []string{"Error chain:"},
		},
		{
			name: "nested chain when verbose",
			err: &ActionableError{
				Operation: "install Pulumi CLI",
				Cause:     fmt.Errorf("resolving: %w", sentinel),
			},
			verbose: true,
			contains: []string{
				"Error chain:",
				"1. resolving: version not found",
				"2. version not found",
			},
		},
		{
			name: "multi-unwrap chain when verbose",
			err: &ActionableError{
				Operation: "download",
				Cause:     &multiErr{errs: []error{errors.New("download failed"), errors.New("connection refused")}},
			},
			verbose: true,
			contains: []string{
				"1. multi",
				"2. download failed",
				"3. connection refused",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.err.Format(tt.verbose)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() missing %q\ngot:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() should not contain %q\ngot:\n%s", s, got)
				}
			}
		})
	}
}

func TestActionableError_HasSuggestions(t *testing.T) {
	t.Parallel()

	if !(&ActionableError{Operation: "x", Suggestions: []string{"y"}}).HasSuggestions() {
		t.Error("HasSuggestions() should be true when suggestions present")
	}
	if (&ActionableError{Operation: "x"}).HasSuggestions() {
		t.Error("HasSuggestions() should be false when no suggestions")
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	cause := errors.New("parse error")
	err := NewErrorContext().
		WithOperation("load configuration").
		WithResource("/etc/setup-pulumi/config.cue").
		WithSuggestion("Check syntax").
		WithSuggestions("Verify permissions", "Run config init").
		WithIssue(ConfigLoadFailedId).
		Wrap(cause).
		Build()

	if err == nil {
		t.Fatal("Build() returned nil")
	}
	if err.Operation != "load configuration" || err.Resource != "/etc/setup-pulumi/config.cue" {
		t.Errorf("unexpected operation/resource: %+v", err)
	}
	if len(err.Suggestions) != 3 {
		t.Errorf("Suggestions count = %d, want 3", len(err.Suggestions))
	}
	if err.Issue != ConfigLoadFailedId {
		t.Errorf("Issue = %d, want %d", err.Issue, ConfigLoadFailedId)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not wrapped")
	}

	if NewErrorContext().WithResource("some/path").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
}

func TestErrorContext_BuildError(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().WithOperation("test").BuildError()
	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("BuildError() = %T, want *ActionableError", err)
	}

	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want nil", err)
	}
}

func TestWrapHelpers(t *testing.T) {
	t.Parallel()

	cause := errors.New("original error")

	op := WrapWithOperation(cause, "extract archive")
	if op.Operation != "extract archive" || !errors.Is(op, cause) {
		t.Errorf("WrapWithOperation() = %+v", op)
	}

	ctx := WrapWithContext(cause, "extract archive", "/tmp/pulumi.tar.gz")
	if ctx.Resource != "/tmp/pulumi.tar.gz" || !errors.Is(ctx, cause) {
		t.Errorf("WrapWithContext() = %+v", ctx)
	}

	if WrapWithOperation(nil, "x") != nil || WrapWithContext(nil, "x", "y") != nil {
		t.Error("wrapping nil should return nil")
	}

	if got := NewActionableError("install"); got.Operation != "install" || got.Cause != nil {
		t.Errorf("NewActionableError() = %+v", got)
	}
}

func TestErrorContext_Reuse(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().WithOperation("download archive").WithResource("https://get.pulumi.com")

	err1 := ctx.Wrap(errors.New("error 1")).Build()
	err2 := ctx.Wrap(errors.New("error 2")).Build()

	if err1.Cause.Error() == err2.Cause.Error() {
		t.Error("reused context should allow different causes")
	}
	if err1.Operation != err2.Operation || err1.Resource != err2.Resource {
		t.Error("reused context should keep operation and resource")
	}
}

// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"testing"
)

func TestParseSpecifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		wantKind string
		wantStr  string
		wantErr  bool
	}{
		{"latest", "latest", "latest", false},
		{"  LATEST\n", "latest", "latest", false},
		{"3.1.2", "exact", "3.1.2", false},
		{"v3.1.2", "exact", "v3.1.2", false},
		{" 3.0.0-beta.1 ", "exact", "3.0.0-beta.1", false},
		{"3.1.2+build.5", "exact", "3.1.2+build.5", false},
		{"^3.0.0", "range", "^3.0.0", false},
		{"~3.1", "range", "~3.1", false},
		{">=3.0.0 <4.0.0", "range", ">=3.0.0 <4.0.0", false},
		{"3.x", "range", "3.x", false},
		{"3.1", "range", "3.1", false},
		{"1.2 - 1.4", "range", "1.2 - 1.4", false},
		{"^2 || ^3", "range", "^2 || ^3", false},
		{"", "", "", true},
		{"   ", "", "", true},
		{"newest", "", "", true},
		{"version three", "", "", true},
		{">>3", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSpecifier(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSpecifier) {
					t.Fatalf("ParseSpecifier(%q) error = %v, want ErrInvalidSpecifier", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSpecifier(%q) unexpected error: %v", tt.input, err)
			}

			var kind string
			switch got.(type) {
			case Latest:
				kind = "latest"
			case Exact:
				kind = "exact"
			case Range:
				kind = "range"
			}
			if kind != tt.wantKind {
				t.Errorf("ParseSpecifier(%q) kind = %s, want %s", tt.input, kind, tt.wantKind)
			}
			if got.String() != tt.wantStr {
				t.Errorf("ParseSpecifier(%q).String() = %q, want %q", tt.input, got.String(), tt.wantStr)
			}
		})
	}
}

func TestMustParseSpecifier_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid specifier")
		}
	}()
	MustParseSpecifier("not a version")
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pulumi/setup-pulumi/internal/config"
	"github.com/pulumi/setup-pulumi/internal/testutil"
)

type stubConfigProvider struct {
	cfg  *config.Config
	path string
	err  error
	opts config.LoadOptions
}

func (p *stubConfigProvider) Load(_ context.Context, opts config.LoadOptions) (*config.Config, string, error) {
	p.opts = opts
	return p.cfg, p.path, p.err
}

func newTestApp(provider config.Provider, env map[string]string) (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{
		Config: provider,
		Stdout: &stdout,
		Stderr: &stderr,
		Getenv: func(key string) string { return env[key] },
	})
	return app, &stdout, &stderr
}

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2025-06-15T10:00:00Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2025-06-15T10:00:00Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("fallback to dev when no build info", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		// Test binaries report Main.Version == "(devel)".
		Version = "dev"

		if got := getVersionString(); got != "dev (built from source)" {
			t.Errorf("getVersionString() = %q", got)
		}
	})
}

func TestAppSpecifier(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Version = "~3.0"

	tests := []struct {
		name string
		args []string
		flag string
		env  map[string]string
		want string
	}{
		{"argument wins", []string{"3.1.2"}, "^3.0.0", map[string]string{actionsVersionInput: "3.0.0"}, "3.1.2"},
		{"flag over input", nil, "^3.0.0", map[string]string{actionsVersionInput: "3.0.0"}, "^3.0.0"},
		{"input over config", nil, "", map[string]string{actionsVersionInput: "3.0.0"}, "3.0.0"},
		{"config last", nil, "", nil, "~3.0"},
		{"empty argument ignored", []string{""}, "", nil, "~3.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _, _ := newTestApp(&stubConfigProvider{cfg: cfg}, tt.env)
			app.cfg = cfg
			if got := app.specifier(tt.args, tt.flag); got != tt.want {
				t.Errorf("specifier() = %q, want %q", got, tt.want)
			}
		})
	}
}

// The remaining tests run the command tree in-process and share the slog
// default, so they are not parallel.

func TestRootCommand_URL(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Download.Host = "https://mirror.example.test/"
	provider := &stubConfigProvider{cfg: cfg}
	app, stdout, _ := newTestApp(provider, nil)

	root := newRootCommand(app)
	root.SetArgs([]string{"url", "3.1.2", "--os", "darwin", "--config", "custom.cue"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "https://mirror.example.test/releases/sdk/pulumi-v3.1.2-darwin-x64.tar.gz\n"
	if got := stdout.String(); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if provider.opts.ConfigFilePath != "custom.cue" {
		t.Errorf("ConfigFilePath = %q, want custom.cue", provider.opts.ConfigFilePath)
	}
}

func TestRootCommand_Resolve(t *testing.T) {
	rs := testutil.NewReleaseServer(t)

	cfg := config.DefaultConfig()
	cfg.Download.Retries = 0
	cfg.Download.Host = rs.URL
	cfg.Catalog.VersionsURL = rs.URL + testutil.VersionsPath
	cfg.Catalog.LatestURL = rs.URL + testutil.LatestPath
	app, stdout, _ := newTestApp(&stubConfigProvider{cfg: cfg}, nil)

	root := newRootCommand(app)
	root.SetArgs([]string{"resolve", "~3.0"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "3.0.0" {
		t.Errorf("resolved = %q, want 3.0.0", got)
	}
	if rs.ArchiveRequests() != 0 {
		t.Errorf("resolve downloaded %d archives", rs.ArchiveRequests())
	}
}

func TestRootCommand_ConfigLoadFailure(t *testing.T) {
	provider := &stubConfigProvider{err: errors.New("boom")}
	app, stdout, stderr := newTestApp(provider, nil)

	root := newRootCommand(app)
	root.SetArgs([]string{"url", "3.1.2"})
	err := root.ExecuteContext(context.Background())

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != ExitFailure {
		t.Fatalf("expected *ExitError with code %d, got %v", ExitFailure, err)
	}
	if !strings.Contains(stderr.String(), "failed to load configuration: boom") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing", stdout.String())
	}
}

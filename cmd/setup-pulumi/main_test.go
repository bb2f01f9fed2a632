// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/pulumi/setup-pulumi/internal/testutil"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"setup-pulumi": Execute,
	})
}

// TestScripts runs the CLI scripts in testdata against a local release
// server. Every script starts with a private HOME and config directory and
// outside GitHub Actions.
func TestScripts(t *testing.T) {
	rs := testutil.NewReleaseServer(t)

	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			home := filepath.Join(env.WorkDir, "home")
			if err := os.MkdirAll(home, 0o755); err != nil {
				return err
			}
			env.Setenv("HOME", home)
			env.Setenv("USERPROFILE", home)
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, "xdg"))
			env.Setenv("APPDATA", filepath.Join(env.WorkDir, "xdg"))

			env.Setenv("SETUP_PULUMI_DOWNLOAD_HOST", rs.URL)
			env.Setenv("SETUP_PULUMI_DOWNLOAD_RETRIES", "0")
			env.Setenv("SETUP_PULUMI_CATALOG_VERSIONS_URL", rs.URL+testutil.VersionsPath)
			env.Setenv("SETUP_PULUMI_CATALOG_LATEST_URL", rs.URL+testutil.LatestPath)

			env.Setenv("GITHUB_PATH", "")
			env.Setenv("GITHUB_OUTPUT", "")
			env.Setenv("GITHUB_TOKEN", "")
			env.Setenv("INPUT_PULUMI-VERSION", "")
			return nil
		},
	})
}

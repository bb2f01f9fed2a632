// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "setup-pulumi",
		Short: "Install the Pulumi CLI",
		Long: TitleStyle.Render("setup-pulumi") + SubtitleStyle.Render(" - Install the Pulumi CLI") + `

setup-pulumi resolves a version specifier against the published Pulumi
releases, downloads the archive for this platform and installs it into
~/.pulumi/bin. Inside GitHub Actions the bin directory is added to
$GITHUB_PATH and the installed version is written to $GITHUB_OUTPUT.

` + SubtitleStyle.Render("Examples:") + `
  setup-pulumi install              Install the latest release
  setup-pulumi install ^3.0.0       Install the newest 3.x release
  setup-pulumi resolve "~3.100"     Print the version a range resolves to
  setup-pulumi url 3.1.2 --os windows`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadConfig(cmd.Context()); err != nil {
				return app.fail(cmd, "load configuration", err)
			}
			return nil
		},
	}

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.cfgFile, "config", "", "config file (default is the platform config directory's setup-pulumi/config.cue)")

	rootCmd.AddCommand(newInstallCommand(app))
	rootCmd.AddCommand(newResolveCommand(app))
	rootCmd.AddCommand(newURLCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute runs the CLI and exits the process with the command's exit code.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		os.Exit(exitCode(err))
	}
}

// handleError prints errors that no command rendered, such as flag and
// argument errors. Classified errors were already shown by App.fail.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

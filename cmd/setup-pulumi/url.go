// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/pulumi/setup-pulumi/internal/locator"
	"github.com/pulumi/setup-pulumi/pkg/platform"
)

func newURLCommand(app *App) *cobra.Command {
	var goos string

	cmd := &cobra.Command{
		Use:   "url <version>",
		Short: "Print the download URL for a version",
		Long: `Print the release archive URL for an exact version on a platform.
No network access is made.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := platform.Parse(goos)
			if err != nil {
				return app.fail(cmd, "build download URL", err)
			}

			loc, err := locator.FromBaseURL(app.cfg.Download.Host)
			if err != nil {
				return app.fail(cmd, "build download URL", err)
			}

			artifact, err := loc.Locate(args[0], p)
			if err != nil {
				return app.fail(cmd, "build download URL", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), artifact.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&goos, "os", runtime.GOOS, "target operating system (linux, darwin, windows)")

	return cmd
}

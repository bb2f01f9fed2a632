// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCommand(app *App) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "resolve [specifier]",
		Short: "Print the version a specifier resolves to",
		Long: `Resolve a version specifier against the release catalog and print the
matching version without downloading anything.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := app.newRunner(cmd, false)
			if err != nil {
				return app.fail(cmd, "resolve version", err)
			}

			resolved, err := runner.Resolve(cmd.Context(), app.specifier(args, version))
			if err != nil {
				return app.fail(cmd, "resolve version", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), resolved)
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "version specifier to resolve")

	return cmd
}

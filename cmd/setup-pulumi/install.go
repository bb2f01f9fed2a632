// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pulumi/setup-pulumi/internal/setup"
)

// actionsVersionInput is how GitHub Actions exposes the pulumi-version input.
const actionsVersionInput = "INPUT_PULUMI-VERSION"

type installFlags struct {
	version        string
	root           string
	clean          bool
	verifyChecksum bool
}

func newInstallCommand(app *App) *cobra.Command {
	var flags installFlags

	cmd := &cobra.Command{
		Use:   "install [specifier]",
		Short: "Resolve, download and install the Pulumi CLI",
		Long: `Resolve a version specifier, download the matching release archive
and install it so the executables live in <root>/bin.

The specifier is the first argument, else --version, else the
INPUT_PULUMI-VERSION environment variable, else the configured version.
It may be "latest", an exact version such as 3.1.2, or a range such as
^3.0.0 or ">=3.50 <4".

Installing over a previous install fails unless --clean is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, app, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.version, "version", "", "version specifier to install")
	cmd.Flags().StringVar(&flags.root, "root", "", "install root (default ~/.pulumi)")
	cmd.Flags().BoolVar(&flags.clean, "clean", false, "remove a previous install first")
	cmd.Flags().BoolVar(&flags.verifyChecksum, "verify-checksum", false, "verify the archive against the published checksums")

	return cmd
}

func runInstall(cmd *cobra.Command, app *App, args []string, flags installFlags) error {
	req := setup.Request{
		Specifier: app.specifier(args, flags.version),
		Root:      flags.root,
		Clean:     flags.clean || app.cfg.Install.Clean,
	}
	if req.Root == "" {
		req.Root = app.cfg.Install.Root
	}
	verify := flags.verifyChecksum || app.cfg.VerifyChecksum

	runner, err := app.newRunner(cmd, verify)
	if err != nil {
		return app.fail(cmd, "install Pulumi CLI", err)
	}

	result, err := runner.Run(cmd.Context(), req)
	if err != nil {
		return app.fail(cmd, "install Pulumi CLI", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Pulumi %s installed to %s\n",
		SuccessStyle.Render("✓"), SuccessStyle.Render(result.Version), CmdStyle.Render(result.BinDir))
	return nil
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pulumi/setup-pulumi/internal/config"
)

// newConfigCommand creates the `setup-pulumi config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage setup-pulumi configuration",
		Long: `Manage setup-pulumi configuration.

Configuration is stored in:
  - Linux: ~/.config/setup-pulumi/config.cue
  - macOS: ~/Library/Application Support/setup-pulumi/config.cue
  - Windows: %APPDATA%\setup-pulumi\config.cue

Every key can be overridden with SETUP_PULUMI_<KEY>, for example
SETUP_PULUMI_DOWNLOAD_RETRIES=5.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			showConfig(cmd.OutOrStdout(), app.cfg, app.cfgPath)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(app)
			if err != nil {
				return app.fail(cmd, "locate configuration", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(app)
			if err != nil {
				return app.fail(cmd, "create configuration", err)
			}

			created, err := config.CreateDefaultConfig(path)
			if err != nil {
				return app.fail(cmd, "create configuration", err)
			}

			out := cmd.OutOrStdout()
			if !created {
				fmt.Fprintf(out, "%s %s\n", WarningStyle.Render("Configuration already exists:"), path)
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", SuccessStyle.Render("Created configuration:"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(app.cfg))
			return nil
		},
	})

	return cfgCmd
}

// configPath returns --config when given, else the default file location.
func configPath(app *App) (string, error) {
	if app.cfgFile != "" {
		return app.cfgFile, nil
	}
	return config.DefaultPath("")
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	root := cfg.Install.Root
	if root == "" {
		root = SubtitleStyle.Render("(~/.pulumi)")
	} else {
		root = valueStyle.Render(root)
	}

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("version"), valueStyle.Render(cfg.Version))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("verify_checksum"), valueStyle.Render(fmt.Sprintf("%v", cfg.VerifyChecksum)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("install"))
	fmt.Fprintf(w, "  root: %s\n", root)
	fmt.Fprintf(w, "  clean: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.Install.Clean)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("download"))
	fmt.Fprintf(w, "  host: %s\n", valueStyle.Render(cfg.Download.Host))
	fmt.Fprintf(w, "  timeout: %s\n", valueStyle.Render(cfg.Download.Timeout.String()))
	fmt.Fprintf(w, "  retries: %s\n", valueStyle.Render(fmt.Sprintf("%d", cfg.Download.Retries)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("catalog"))
	fmt.Fprintf(w, "  source: %s\n", valueStyle.Render(cfg.Catalog.Source.String()))
	fmt.Fprintf(w, "  versions_url: %s\n", valueStyle.Render(cfg.Catalog.VersionsURL))
	fmt.Fprintf(w, "  latest_url: %s\n", valueStyle.Render(cfg.Catalog.LatestURL))
	fmt.Fprintf(w, "  github_repo: %s\n", valueStyle.Render(cfg.Catalog.GitHubRepo))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(w, "  verbose: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.UI.Verbose)))
}

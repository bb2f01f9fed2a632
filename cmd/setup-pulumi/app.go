// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pulumi/setup-pulumi/internal/catalog"
	"github.com/pulumi/setup-pulumi/internal/config"
	"github.com/pulumi/setup-pulumi/internal/fetch"
	"github.com/pulumi/setup-pulumi/internal/locator"
	"github.com/pulumi/setup-pulumi/internal/pathexport"
	"github.com/pulumi/setup-pulumi/internal/setup"
)

type (
	// App wires the CLI to its services. Every command handler receives an
	// App and reads the loaded configuration from it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
		getenv func(string) string

		verbose bool
		cfgFile string
		cfg     *config.Config
		cfgPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
		Getenv func(string) string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}

	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		getenv: deps.Getenv,
	}
}

// loadConfig loads the configuration once per invocation and installs the
// slog default handler at the resulting verbosity.
func (a *App) loadConfig(ctx context.Context) error {
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.cfgFile})
	if err != nil {
		a.setupLogging()
		return err
	}

	a.cfg = cfg
	a.cfgPath = path
	if !a.verbose {
		a.verbose = cfg.UI.Verbose
	}
	a.setupLogging()

	if path != "" {
		slog.Debug("loaded configuration", "path", path)
	}
	return nil
}

func (a *App) setupLogging() {
	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
	slog.SetDefault(slog.New(logger))
}

// newClient builds the HTTP client from the download section.
func (a *App) newClient() *fetch.Client {
	return fetch.New(
		fetch.WithRetries(a.cfg.Download.Retries),
		fetch.WithTimeout(a.cfg.Download.Timeout),
		fetch.WithUserAgent(config.AppName+"/"+Version),
		fetch.WithLogger(slog.Default()),
	)
}

// newRunner builds a setup.Runner from the loaded configuration. The path
// exporter writes its shell hint to the command's stdout.
func (a *App) newRunner(cmd *cobra.Command, verifyChecksum bool) (*setup.Runner, error) {
	client := a.newClient()

	source, err := catalog.New(a.cfg.CatalogSettings(a.getenv("GITHUB_TOKEN")), client)
	if err != nil {
		return nil, err
	}

	loc, err := locator.FromBaseURL(a.cfg.Download.Host)
	if err != nil {
		return nil, err
	}

	return setup.NewRunner(
		setup.WithClient(client),
		setup.WithSource(source),
		setup.WithLocator(loc),
		setup.WithExporter(pathexport.New(pathexport.WithStdout(cmd.OutOrStdout()))),
		setup.WithChecksumVerification(verifyChecksum),
	), nil
}

// specifier picks the version specifier: the positional argument, then the
// --version flag, then the GitHub Actions input, then the configuration.
func (a *App) specifier(args []string, flagValue string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	if flagValue != "" {
		return flagValue
	}
	if input := a.getenv(actionsVersionInput); input != "" {
		return input
	}
	return a.cfg.Version
}

// fail renders err for the user and returns the ExitError that carries its
// exit code back to Execute.
func (a *App) fail(cmd *cobra.Command, operation string, err error) error {
	svcErr := newServiceError(operation, err)
	renderServiceError(a.stderr, svcErr, a.verbose)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: svcErr.Code, Err: svcErr}
}

// SPDX-License-Identifier: MPL-2.0

package pathexport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/afero"
)

const (
	// EnvGitHubPath names the file whose lines are prepended to PATH for
	// subsequent workflow steps.
	EnvGitHubPath = "GITHUB_PATH"

	// EnvGitHubOutput names the file that receives step outputs.
	EnvGitHubOutput = "GITHUB_OUTPUT"

	filePerm = 0o644
)

// ErrInvalidOutput is returned for an output name or value that cannot be
// written as a single name=value line.
var ErrInvalidOutput = errors.New("invalid step output")

type (
	// Exporter publishes paths and outputs to the calling environment.
	Exporter struct {
		fs     afero.Fs
		getenv func(string) string
		setenv func(string, string) error
		stdout io.Writer
		goos   string
	}

	// Option configures an Exporter.
	Option func(*Exporter)
)

// WithFs sets the filesystem the GitHub command files are written on.
func WithFs(fsys afero.Fs) Option {
	return func(e *Exporter) {
		e.fs = fsys
	}
}

// WithEnv replaces the process environment accessors.
func WithEnv(getenv func(string) string, setenv func(string, string) error) Option {
	return func(e *Exporter) {
		if getenv != nil {
			e.getenv = getenv
		}
		if setenv != nil {
			e.setenv = setenv
		}
	}
}

// WithStdout sets where the shell hint is printed.
func WithStdout(w io.Writer) Option {
	return func(e *Exporter) {
		e.stdout = w
	}
}

// WithGOOS overrides the operating system used to pick the hint syntax.
func WithGOOS(goos string) Option {
	return func(e *Exporter) {
		e.goos = goos
	}
}

// New returns an Exporter bound to the real environment and stdout.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		fs:     afero.NewOsFs(),
		getenv: os.Getenv,
		setenv: os.Setenv,
		stdout: os.Stdout,
		goos:   runtime.GOOS,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddPath makes dir available on PATH. It is recorded in $GITHUB_PATH when
// that is set and otherwise printed as a shell line. In both cases dir is
// prepended to this process's PATH.
func (e *Exporter) AddPath(dir string) error {
	if file := e.getenv(EnvGitHubPath); file != "" {
		if err := e.appendLine(file, dir); err != nil {
			return fmt.Errorf("adding %s to %s: %w", dir, EnvGitHubPath, err)
		}
		slog.Debug("added to GITHUB_PATH", "dir", dir, "file", file)
	} else if _, err := fmt.Fprintln(e.stdout, e.hint(dir)); err != nil {
		return fmt.Errorf("printing path hint: %w", err)
	}

	sep := string(os.PathListSeparator)
	if e.goos == "windows" {
		sep = ";"
	}
	path := dir
	if current := e.getenv("PATH"); current != "" {
		path = dir + sep + current
	}
	if err := e.setenv("PATH", path); err != nil {
		return fmt.Errorf("updating PATH: %w", err)
	}
	return nil
}

// SetOutput writes name=value to $GITHUB_OUTPUT. Outside GitHub Actions it
// does nothing.
func (e *Exporter) SetOutput(name, value string) error {
	file := e.getenv(EnvGitHubOutput)
	if file == "" {
		return nil
	}
	if name == "" || strings.ContainsAny(name, "=\r\n") || strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidOutput, name)
	}
	if err := e.appendLine(file, name+"="+value); err != nil {
		return fmt.Errorf("setting output %s: %w", name, err)
	}
	slog.Debug("set output", "name", name, "value", value)
	return nil
}

func (e *Exporter) hint(dir string) string {
	if e.goos == "windows" {
		return fmt.Sprintf(`$env:PATH = "%s;$env:PATH"`, dir)
	}
	return fmt.Sprintf(`export PATH="%s:$PATH"`, dir)
}

func (e *Exporter) appendLine(file, line string) (err error) {
	f, err := e.fs.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.WriteString(f, line+"\n")
	return err
}

// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for setup-pulumi.
//
// This package implements the Cobra command hierarchy: install, resolve,
// url and config. Commands are executed through fang, log through slog with
// a charmbracelet/log handler, and map domain errors onto the issue catalog
// and an exit code.
package cmd

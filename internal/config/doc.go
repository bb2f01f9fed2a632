// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/setup-pulumi/config.cue on Linux,
// ~/Library/Application Support/setup-pulumi/config.cue on macOS and
// %APPDATA%\setup-pulumi\config.cue on Windows. The file is validated against the
// embedded #Config schema (config_schema.cue) and merged over the defaults; every
// key can then be overridden with a SETUP_PULUMI_<KEY> environment variable, dots
// replaced by underscores (SETUP_PULUMI_DOWNLOAD_RETRIES).
package config

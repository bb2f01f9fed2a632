// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation and suggestions; the issue
// catalog holds one Markdown help page per error kind, rendered with glamour
// when the CLI runs in verbose mode.
package issue

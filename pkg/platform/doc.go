// SPDX-License-Identifier: MPL-2.0

// Package platform models the operating systems Pulumi publishes CLI
// archives for and detects which one the current process runs on.
//
// A Platform carries everything that differs between the published
// archives: the URL token, the archive extension, and the name of the
// top-level directory inside the archive. Anything outside the closed set
// {linux, darwin, windows} is rejected with ErrUnsupportedPlatform before
// any network traffic happens.
package platform

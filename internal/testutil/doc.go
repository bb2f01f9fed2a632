// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by tests: environment and home
// directory overrides, and builders for in-memory release archives shaped
// like the published Pulumi CLI tarballs and zips.
package testutil

// SPDX-License-Identifier: MPL-2.0

// Package resolve turns a user-supplied version specifier ("latest", an
// exact version, or a semver range) into one concrete published version.
package resolve

// SPDX-License-Identifier: MPL-2.0

// Package setup runs the install flow end to end: detect the platform,
// resolve the version specifier, locate and download the archive, install
// it and export the bin directory. Every step runs once, in order, and the
// first error ends the run.
package setup

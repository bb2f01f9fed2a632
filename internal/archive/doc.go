// SPDX-License-Identifier: MPL-2.0

// Package archive extracts release tarballs and zips onto an afero.Fs.
// Entries that would land outside the destination directory are rejected,
// and a corrupt archive surfaces as an *ExtractionError.
package archive

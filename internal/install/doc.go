// SPDX-License-Identifier: MPL-2.0

// Package install extracts a release archive and normalizes it into the
// <root>/bin layout shared by every platform. The per-platform differences
// live in the LayoutStrategy implementations:
//   - UnixLayoutStrategy: tarball root "pulumi" becomes <root>/bin
//   - WindowsLayoutStrategy: zip root "Pulumi" becomes <root>
package install

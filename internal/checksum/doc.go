// SPDX-License-Identifier: MPL-2.0

// Package checksum verifies a downloaded archive against the SHA256
// checksums file published next to it.
package checksum

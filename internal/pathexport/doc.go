// SPDX-License-Identifier: MPL-2.0

// Package pathexport makes an installed bin directory visible to later
// steps. Under GitHub Actions it appends to the files named by
// $GITHUB_PATH and $GITHUB_OUTPUT; elsewhere it prints a shell line the
// user can evaluate.
package pathexport

// SPDX-License-Identifier: MPL-2.0

// Package catalog provides the published Pulumi CLI versions and the
// "latest" pointer. Two sources exist:
//   - index.go: the pulumi.com versions document and latest-version text endpoint
//   - github.go: the GitHub Releases API for pulumi/pulumi
package catalog

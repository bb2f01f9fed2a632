// SPDX-License-Identifier: MPL-2.0

// Package fetch is the HTTP download transport. It wraps
// hashicorp/go-retryablehttp so that connection errors, 5xx and 429
// responses are retried with backoff before the caller sees a failure.
// Every failure surfaces as a *DownloadError wrapping ErrDownloadFailure.
package fetch

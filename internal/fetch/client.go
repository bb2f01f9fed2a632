// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/afero"
)

const (
	// DefaultTimeout bounds a single HTTP attempt, including reading the body.
	DefaultTimeout = 5 * time.Minute

	// DefaultRetries is the number of retries after the first attempt.
	DefaultRetries = 3

	// maxTextResponseBytes is the upper bound on text and JSON bodies (10 MB).
	maxTextResponseBytes = 10 << 20
)

// ErrDownloadFailure is the class of every transport failure: a connection
// error, an exhausted retry budget, or an unexpected HTTP status.
var ErrDownloadFailure = errors.New("download failed")

type (
	// DownloadError records which URL failed and how. StatusCode is zero when
	// no response was received.
	DownloadError struct {
		URL        string
		StatusCode int
		Err        error
	}

	// Client performs GET requests with transport-level retries.
	Client struct {
		http      *retryablehttp.Client
		userAgent string
	}

	// Option configures a Client during construction.
	Option func(*Client)
)

// Error implements the error interface.
func (e *DownloadError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("downloading %s: unexpected status %d", redactURL(e.URL), e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("downloading %s: %v", redactURL(e.URL), e.Err)
	default:
		return fmt.Sprintf("downloading %s failed", redactURL(e.URL))
	}
}

// Unwrap returns ErrDownloadFailure and the underlying cause, so both
// errors.Is(err, ErrDownloadFailure) and errors.Is(err, context.Canceled) work.
func (e *DownloadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDownloadFailure}
	}
	return []error{ErrDownloadFailure, e.Err}
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.http.RetryMax = n
		}
	}
}

// WithTimeout bounds each individual attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.HTTPClient.Timeout = d
		}
	}
}

// WithRetryWait sets the backoff bounds between attempts.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// WithHTTPClient replaces the underlying *http.Client, useful for tests or
// proxy configurations.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http.HTTPClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger routes retry diagnostics to logger instead of slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.http.Logger = logger
	}
}

// New creates a Client. Defaults: DefaultRetries retries, DefaultTimeout per
// attempt, retry logs on slog.Default() and User-Agent "setup-pulumi/dev".
func New(opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = DefaultRetries
	rc.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	rc.Logger = slog.Default()
	// Hand back the final response instead of a generic "giving up" error so
	// callers can report the last status code.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		http:      rc,
		userAgent: "setup-pulumi/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do issues a GET and returns the response regardless of its status. Only
// transport failures are turned into a *DownloadError. The caller owns the
// body.
func (c *Client) Do(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: fmt.Errorf("creating request: %w", err)}
	}

	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &DownloadError{URL: rawURL, Err: err}
	}

	return resp, nil
}

// Open issues a GET and returns the body as a stream. Any status other than
// 200 is a *DownloadError. The caller must close the returned ReadCloser.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := c.Do(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &DownloadError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	return resp.Body, nil
}

// GetText fetches a small text document and returns it verbatim.
func (c *Client) GetText(ctx context.Context, rawURL string) (string, error) {
	body, err := c.Open(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }() // read-only response body

	data, err := io.ReadAll(io.LimitReader(body, maxTextResponseBytes))
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: fmt.Errorf("reading body: %w", err)}
	}

	return string(data), nil
}

// GetJSON fetches a JSON document and decodes it into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.Open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }() // read-only response body

	if err := json.NewDecoder(io.LimitReader(body, maxTextResponseBytes)).Decode(v); err != nil {
		return &DownloadError{URL: rawURL, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return nil
}

// DownloadToFile streams rawURL into a new file in dir on fsys whose name is
// built from pattern (see afero.TempFile) and returns the file's path. A
// partially written file is removed on failure. The caller removes the file
// when done.
func (c *Client) DownloadToFile(ctx context.Context, fsys afero.Fs, rawURL, dir, pattern string) (_ string, err error) {
	body, err := c.Open(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }() // read-only response body

	tmp, err := afero.TempFile(fsys, dir, pattern)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = fsys.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, body)
	if err != nil {
		return "", &DownloadError{URL: rawURL, Err: fmt.Errorf("writing %s: %w", tmp.Name(), err)}
	}

	slog.Debug("downloaded", "url", redactURL(rawURL), "bytes", n, "path", tmp.Name())

	return tmp.Name(), nil
}

// redactURL strips query parameters and fragments from a URL for safe
// inclusion in error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return strings.TrimSuffix(u.String(), "?")
}

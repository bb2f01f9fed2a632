// SPDX-License-Identifier: MPL-2.0

package checksum

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrChecksumMismatch indicates the computed SHA256 hash does not match the expected hash.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrEntryNotFound indicates the archive file name is not listed in the checksums file.
	ErrEntryNotFound = errors.New("archive not listed in checksums")

	// errNoValidEntries indicates the checksums file contained no parseable entries.
	errNoValidEntries = errors.New("no valid checksum entries found")
)

type (
	// Entry is one line of a sha256sum-format file.
	Entry struct {
		Hash     string // Hex-encoded SHA256 hash (64 characters), lower case
		Filename string
	}

	// MismatchError provides details about a checksum verification failure.
	// It wraps ErrChecksumMismatch so callers can use errors.Is for classification.
	MismatchError struct {
		Filename string
		Expected string
		Got      string
	}

	// TextFetcher retrieves a small text document. *fetch.Client satisfies it.
	TextFetcher interface {
		GetText(ctx context.Context, rawURL string) (string, error)
	}
)

// Error shows both hashes for debugging.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.Filename, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch.
func (e *MismatchError) Unwrap() error { return ErrChecksumMismatch }

// Parse reads a sha256sum-format file: "{sha256_hex}  {filename}" per line,
// where the filename may carry a "*" binary-mode marker. Blank and malformed
// lines are skipped. At least one valid entry is required.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		hash, filename, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		filename = strings.TrimPrefix(strings.TrimSpace(filename), "*")

		if filename == "" || !isValidHexHash(hash) {
			continue
		}

		entries = append(entries, Entry{
			Hash:     strings.ToLower(hash),
			Filename: filename,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading checksums: %w", err)
	}

	if len(entries) == 0 {
		return nil, errNoValidEntries
	}

	return entries, nil
}

// Find returns the hash recorded for filename.
func Find(entries []Entry, filename string) (string, error) {
	for _, e := range entries {
		if e.Filename == filename {
			return e.Hash, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrEntryNotFound, filename)
}

// VerifyFile hashes the file at path on fsys and compares it with
// expectedHash, case-insensitively.
func VerifyFile(fsys afero.Fs, path, filename, expectedHash string) error {
	got, err := FileHash(fsys, path)
	if err != nil {
		return err
	}

	if !strings.EqualFold(got, expectedHash) {
		return &MismatchError{
			Filename: filename,
			Expected: strings.ToLower(expectedHash),
			Got:      got,
		}
	}

	return nil
}

// FileHash streams the file at path on fsys through SHA256 and returns the
// lower-case hex digest.
func FileHash(fsys afero.Fs, path string) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only file handle

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyDownload fetches the checksums file at checksumsURL, looks up
// filename and verifies the archive at archivePath against it.
func VerifyDownload(ctx context.Context, fsys afero.Fs, fetcher TextFetcher, checksumsURL, filename, archivePath string) error {
	body, err := fetcher.GetText(ctx, checksumsURL)
	if err != nil {
		return fmt.Errorf("downloading checksums: %w", err)
	}

	entries, err := Parse(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("parsing checksums: %w", err)
	}

	expected, err := Find(entries, filename)
	if err != nil {
		return err
	}

	if err := VerifyFile(fsys, archivePath, filename, expected); err != nil {
		return err
	}

	slog.Debug("checksum verified", "file", filename, "sha256", expected)
	return nil
}

// isValidHexHash checks if s is a valid 64-character hex-encoded SHA256 hash.
func isValidHexHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

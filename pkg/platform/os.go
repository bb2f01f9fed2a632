// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	"strings"
)

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

const (
	// PlatformLinux is the linux-x64 tar.gz distribution.
	PlatformLinux Platform = Linux
	// PlatformDarwin is the darwin-x64 tar.gz distribution.
	PlatformDarwin Platform = Darwin
	// PlatformWindows is the windows-x64 zip distribution.
	PlatformWindows Platform = Windows

	// ExtTarGz is the archive extension used for Linux and macOS.
	ExtTarGz = "tar.gz"
	// ExtZip is the archive extension used for Windows.
	ExtZip = "zip"

	// BinDirName is the directory holding the executables after normalization.
	BinDirName = "bin"
)

// ErrUnsupportedPlatform is returned for any OS outside linux, darwin and windows.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

type (
	// Platform is one of the operating systems the CLI is released for.
	// The zero value is invalid.
	Platform string

	// UnsupportedError reports the OS value that was rejected.
	// It wraps ErrUnsupportedPlatform for errors.Is() compatibility.
	UnsupportedError struct {
		OS string
	}
)

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported operating system %q: Pulumi CLI is only released for darwin, linux and windows", e.OS)
}

// Unwrap returns ErrUnsupportedPlatform.
func (e *UnsupportedError) Unwrap() error { return ErrUnsupportedPlatform }

// All returns every supported platform in a stable order.
func All() []Platform {
	return []Platform{PlatformLinux, PlatformDarwin, PlatformWindows}
}

// Parse maps a GOOS-style name to a Platform. It also accepts "win32", the
// name Node-based runners report for Windows.
func Parse(goos string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(goos)) {
	case Linux:
		return PlatformLinux, nil
	case Darwin, "macos":
		return PlatformDarwin, nil
	case Windows, "win32":
		return PlatformWindows, nil
	default:
		return "", &UnsupportedError{OS: goos}
	}
}

// Validate returns an *UnsupportedError if p is not a supported platform.
func (p Platform) Validate() error {
	switch p {
	case PlatformLinux, PlatformDarwin, PlatformWindows:
		return nil
	default:
		return &UnsupportedError{OS: string(p)}
	}
}

// String returns the platform name.
func (p Platform) String() string { return string(p) }

// Token is the platform segment of the release archive file name.
func (p Platform) Token() string { return string(p) }

// ArchiveExt returns the archive extension without the leading dot.
func (p Platform) ArchiveExt() string {
	if p == PlatformWindows {
		return ExtZip
	}
	return ExtTarGz
}

// ArchiveRoot is the name of the single top-level directory inside the
// release archive. The Windows zip capitalizes it.
func (p Platform) ArchiveRoot() string {
	if p == PlatformWindows {
		return "Pulumi"
	}
	return "pulumi"
}

// BinDir is the subdirectory of the install root that holds the executables.
func (p Platform) BinDir() string { return BinDirName }

// IsWindows reports whether p is the Windows distribution.
func (p Platform) IsWindows() bool { return p == PlatformWindows }

// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

type (
	// Info is the result of host detection.
	Info struct {
		Platform Platform
		// GOOS is the raw runtime.GOOS value the platform was derived from.
		GOOS string
		// Arch is the raw runtime.GOARCH value. Only x64 archives are
		// published, so this is informational.
		Arch string
		// Distro, DistroVersion and KernelArch come from gopsutil and may be
		// empty when the host cannot be inspected.
		Distro        string
		DistroVersion string
		KernelArch    string
	}

	// Detector detects the platform of the current host.
	Detector interface {
		Detect(ctx context.Context) (*Info, error)
	}

	// HostDetector detects the platform using runtime.GOOS and gopsutil.
	HostDetector struct {
		goos   string
		goarch string
		// hostInfo is a test seam for host.InfoWithContext.
		hostInfo func(ctx context.Context) (*host.InfoStat, error)
	}

	// DetectorOption configures a HostDetector.
	DetectorOption func(*HostDetector)
)

// WithGOOS overrides the detected operating system, for tests and for
// cross-installing into a mounted filesystem.
func WithGOOS(goos string) DetectorOption {
	return func(d *HostDetector) {
		d.goos = goos
	}
}

// WithHostInfo replaces the gopsutil host lookup.
func WithHostInfo(fn func(ctx context.Context) (*host.InfoStat, error)) DetectorOption {
	return func(d *HostDetector) {
		d.hostInfo = fn
	}
}

// NewDetector creates a HostDetector for the running process.
func NewDetector(opts ...DetectorOption) *HostDetector {
	d := &HostDetector{
		goos:     runtime.GOOS,
		goarch:   runtime.GOARCH,
		hostInfo: host.InfoWithContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect validates the operating system first and only then asks gopsutil
// for distribution details. A gopsutil failure is not fatal: the platform
// is fully determined by GOOS, the rest is diagnostic.
func (d *HostDetector) Detect(ctx context.Context) (*Info, error) {
	p, err := Parse(d.goos)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Platform: p,
		GOOS:     d.goos,
		Arch:     d.goarch,
	}

	if d.hostInfo == nil {
		return info, nil
	}

	stat, err := d.hostInfo(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		slog.Debug("host details unavailable", "error", err)
		return info, nil
	}

	info.Distro = stat.Platform
	info.DistroVersion = stat.PlatformVersion
	info.KernelArch = stat.KernelArch

	slog.Debug("detected host",
		"platform", info.Platform,
		"arch", info.Arch,
		"distro", info.Distro,
		"distro_version", info.DistroVersion,
		"kernel_arch", info.KernelArch)

	return info, nil
}

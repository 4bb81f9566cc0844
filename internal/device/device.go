// Package device talks to a connected Android device through adb.
//
// Everything here shells out to the adb binary; the package's own logic is
// limited to parsing adb's line-oriented output, which is covered by tests
// against captured transcripts.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/buildproof/reprodroid/internal/host"
)

var (
	ErrNoDevice        = errors.New("no device connected")
	ErrPackageNotFound = errors.New("package not installed on device")
)

// A connected Android device reachable through adb.
type Device struct {
	Stream io.Writer // Destination for streamed adb output; nil discards.
}

// Returns the serials of connected devices, failing when there are none.
//
// "adb devices" prints a header line followed by one "<serial>\t<state>"
// line per device; only devices in the "device" state (authorized and
// online) count.
func (d *Device) Devices(ctx context.Context) ([]string, error) {
	res, err := d.adb(ctx, "devices")
	if err != nil {
		return nil, err
	}

	serials := ParseDevices(res.Output)
	if len(serials) == 0 {
		return nil, fmt.Errorf("%w: connect a device with USB debugging enabled", ErrNoDevice)
	}

	slog.Info("connected devices", "count", len(serials), "serials", serials)
	return serials, nil
}

// Returns the on-device APK paths of an installed package.
func (d *Device) PackagePaths(ctx context.Context, pkg string) ([]string, error) {
	res, err := d.adb(ctx, "shell", "pm", "path", pkg)
	if err != nil {
		return nil, err
	}

	paths := ParsePackagePaths(res.Output)
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, pkg)
	}
	return paths, nil
}

// Copies a file from the device to a local path.
func (d *Device) Pull(ctx context.Context, remote, local string) error {
	_, err := d.adb(ctx, "pull", remote, local)
	return err
}

// Returns the versionName of an installed package, e.g. "7.7.0".
func (d *Device) InstalledVersion(ctx context.Context, pkg string) (string, error) {
	res, err := d.adb(ctx, "shell", "dumpsys", "package", pkg)
	if err != nil {
		return "", err
	}

	version := ParseVersionName(res.Output)
	if version == "" {
		return "", fmt.Errorf("%w: %s", ErrPackageNotFound, pkg)
	}
	return version, nil
}

func (d *Device) adb(ctx context.Context, args ...string) (*host.Result, error) {
	return host.Command{Name: "adb", Args: args, Stream: d.Stream}.Run(ctx)
}

// Extracts authorized device serials from "adb devices" output.
func ParseDevices(output string) []string {
	var serials []string
	for i, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if i == 0 || line == "" {
			continue // Header: "List of devices attached".
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "device" {
			serials = append(serials, fields[0])
		}
	}
	return serials
}

// Extracts APK paths from "pm path <package>" output.
func ParsePackagePaths(output string) []string {
	var paths []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "package:"); ok && rest != "" {
			paths = append(paths, rest)
		}
	}
	return paths
}

// Extracts the versionName value from "dumpsys package" output.
func ParseVersionName(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "versionName="); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

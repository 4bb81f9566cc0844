package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/buildproof/reprodroid/internal/apk"
	"github.com/buildproof/reprodroid/internal/build"
	"github.com/buildproof/reprodroid/internal/device"
	"github.com/buildproof/reprodroid/internal/overlay"
	"github.com/buildproof/reprodroid/internal/paths"
	"github.com/buildproof/reprodroid/internal/repo"
	"github.com/buildproof/reprodroid/internal/runtime"
)

// Represents the 'reprodroid verify' command.
type VerifyCmd struct {
	Tag       string `arg:"" optional:"" help:"Release version or tag to verify; defaults to the version installed on the connected device."`
	Overlay   string `help:"Mount a disorderfs overlay over the checkout." enum:"none,sort,shuffle,reverse" default:"none"`
	Device    bool   `help:"Pull the reference APKs from a connected device."`
	Reference string `help:"Official bundle (.aab) or directory of official APKs to compare against." placeholder:"PATH" type:"path"`
}

// Executes the verify command.
//
// Builds the requested release in a container and compares the built APKs
// against the official ones. A reproducibility mismatch is an error exit,
// so scripts can rely on the exit code.
func (c *VerifyCmd) Run(ctx context.Context) error {
	target, err := target()
	if err != nil {
		return err
	}

	mode, err := overlay.ParseMode(c.Overlay)
	if err != nil {
		return err
	}

	tag, err := c.resolveTag(ctx, target.Package, target.TagPrefix)
	if err != nil {
		return err
	}

	rt, err := runtime.New(paths.ContainerdSocket(), build.Namespace)
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := build.Run(ctx, rt, build.Options{
		Target:    target,
		Workspace: workspace(),
		Tag:       tag,
		Overlay:   mode,
		Device:    c.Device,
		Reference: c.Reference,
		Stream:    stream(),
	})
	if err != nil {
		return err
	}

	return printVerdict(result)
}

// Resolves the tag to verify, asking the connected device when none is given.
func (c *VerifyCmd) resolveTag(ctx context.Context, pkg, prefix string) (string, error) {
	raw := c.Tag
	if raw == "" {
		if !c.Device {
			return "", fmt.Errorf("no tag given; pass one or use --device to read the installed version")
		}
		dev := &device.Device{Stream: stream()}
		version, err := dev.InstalledVersion(ctx, pkg)
		if err != nil {
			return "", err
		}
		slog.Info("using installed version", "package", pkg, "version", version)
		raw = version
	}
	return repo.NormalizeTag(raw, prefix), nil
}

// Prints the per-APK outcome and returns an error when the sets differ.
func printVerdict(result *build.Result) error {
	fmt.Printf("bundle %s\n", result.BundlePath)
	printDim("sha256 %s", result.BundleSHA256)

	for _, report := range result.Reports {
		name := filepath.Base(report.First)
		if report.Match() {
			printSuccess("%s matches", name)
			continue
		}
		printFailure("%s differs", name)
		fmt.Print(report.String())
	}
	for _, name := range result.UnpairedBuilt {
		printFailure("%s built but not in the reference set", name)
	}
	for _, name := range result.UnpairedReference {
		printFailure("%s in the reference set but not built", name)
	}

	if !result.Match() {
		return fmt.Errorf("%w: %s is not reproducible", apk.ErrMismatch, result.Tag)
	}

	printSuccess("%s verified: the build reproduces the official APKs", result.Tag)
	return nil
}

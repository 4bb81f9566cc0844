package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/buildproof/reprodroid/internal/apk"
	"github.com/buildproof/reprodroid/internal/config"
	"github.com/buildproof/reprodroid/internal/overlay"
	"github.com/buildproof/reprodroid/internal/paths"
	"github.com/buildproof/reprodroid/internal/runtime"
)

// Controls a verification run.
type Options struct {
	Target    config.Target   // Description of the application under verification.
	Workspace paths.Workspace // On-disk layout for this run.
	Tag       string          // Upstream release tag to verify, already normalized.
	Overlay   overlay.Mode    // Directory-ordering perturbation, or ModeNone.
	Device    bool            // Pull the reference APKs from a connected device.
	Reference string          // Local reference artifact (.aab or APK directory) when not using a device.
	Stream    io.Writer       // Destination for live external-tool output; nil discards.
}

// Returned after a completed verification run.
type Result struct {
	Tag          string        // Tag that was verified.
	BundlePath   string        // Built bundle, kept for inspection.
	BundleSHA256 string        // Hash of the built bundle.
	Reports      []*apk.Report // Per-APK comparison reports.

	// APKs present on only one side of the comparison, by file name.
	UnpairedBuilt     []string
	UnpairedReference []string
}

// Reports whether every APK paired up and every compared pair matched.
func (r *Result) Match() bool {
	if len(r.Reports) == 0 || len(r.UnpairedBuilt) > 0 || len(r.UnpairedReference) > 0 {
		return false
	}
	for _, rep := range r.Reports {
		if !rep.Match() {
			return false
		}
	}
	return true
}

// Runs the verification workflow end to end.
//
// The run is a fixed sequence: validate the tag, check out the source,
// produce and import the builder image, optionally mount the overlay, run
// the upstream build in a container, then generate reference APKs and
// compare. Steps satisfied by prior state are skipped; the first failure
// aborts the run.
//
// Artifacts are left on disk for inspection regardless of the verdict. A
// mismatch is reported in the Result, not as an error: the run itself
// succeeded.
func Run(ctx context.Context, rt *runtime.Runtime, opts Options) (*Result, error) {
	d := newDriver(rt, opts)

	slog.Info("verifying release",
		"tag", opts.Tag,
		"repo", opts.Target.Repo,
		"overlay", opts.Overlay,
		"device", opts.Device,
	)

	if err := runSteps(ctx, d.steps()); err != nil {
		return nil, err
	}

	return d.result, nil
}

// Returns the containerd image tag for a release's builder image.
func imageTag(tag string) string {
	return fmt.Sprintf("reprodroid/builder:%s", tag)
}

// Containerd ID of the builder container.
const builderContainerID = "reprodroid-builder"

// Containerd namespace scoping this tool's images and containers.
const Namespace = "reprodroid"

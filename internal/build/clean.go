package build

import (
	"context"
	"log/slog"
	"os"

	"github.com/buildproof/reprodroid/internal/overlay"
	"github.com/buildproof/reprodroid/internal/paths"
	"github.com/buildproof/reprodroid/internal/repo"
	"github.com/buildproof/reprodroid/internal/runtime"
)

// Returns the workspace to a state where a fresh run succeeds.
//
// Order matters: the overlay must come off before the checkout under it is
// removed, and containers must die before their image. Every part is
// idempotent, so clean after a partial run (or after a previous clean)
// works the same as clean after a complete one. The runtime may be nil
// when containerd is unreachable; container state is then left alone.
// imageTags lists the imported builder images to destroy; see ImageTags.
func Clean(ctx context.Context, rt *runtime.Runtime, ws paths.Workspace, imageTags []string) error {
	ov := &overlay.Overlay{Source: ws.Checkout(), Mount: ws.OverlayMount()}
	if err := ov.Unmount(ctx); err != nil {
		return err
	}

	if rt != nil {
		rt.Container(builderContainerID).Destroy(ctx)
		for _, tag := range imageTags {
			if err := rt.DestroyImage(ctx, tag); err != nil {
				return err
			}
		}
	}

	src := &repo.Checkout{Dir: ws.Checkout(), Marker: ws.CheckoutMarker()}
	if err := src.Remove(); err != nil {
		return err
	}

	for _, dir := range []string{
		ws.BuiltArtifacts(),
		ws.DeviceArtifacts(),
		ws.Images(),
		ws.OverlayMount(),
	} {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}

	slog.Info("workspace cleaned", "root", ws.Root)
	return nil
}

// Returns the builder image tags recorded by archives in the workspace.
//
// Clean discovers which images past runs imported from the archive files
// they left behind, so it removes exactly what this tool created.
func ImageTags(ws paths.Workspace) []string {
	entries, err := os.ReadDir(ws.Images())
	if err != nil {
		return nil
	}

	var tags []string
	for _, e := range entries {
		if tag, ok := archiveTag(e.Name()); ok {
			tags = append(tags, imageTag(tag))
		}
	}
	return tags
}

// Extracts the release tag from an archive file name
// ("builder-v7.7.0.oci.tar" -> "v7.7.0").
func archiveTag(name string) (string, bool) {
	const prefix, suffix = "builder-", ".oci.tar"
	if len(name) <= len(prefix)+len(suffix) {
		return "", false
	}
	if name[:len(prefix)] != prefix || name[len(name)-len(suffix):] != suffix {
		return "", false
	}
	return name[len(prefix) : len(name)-len(suffix)], true
}

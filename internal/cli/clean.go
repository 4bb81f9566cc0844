package cli

import (
	"context"
	"log/slog"

	"github.com/buildproof/reprodroid/internal/build"
	"github.com/buildproof/reprodroid/internal/paths"
	"github.com/buildproof/reprodroid/internal/runtime"
)

// Represents the 'reprodroid clean' command.
type CleanCmd struct{}

// Executes the clean command.
//
// Unmounts the overlay, destroys the builder container and images, and
// removes the checkout and artifact directories. When containerd is not
// reachable the filesystem state is still cleaned.
func (c *CleanCmd) Run(ctx context.Context) error {
	ws := workspace()

	rt, err := runtime.New(paths.ContainerdSocket(), build.Namespace)
	if err != nil {
		slog.Warn("containerd unreachable, skipping container cleanup", "error", err)
		rt = nil
	} else {
		defer rt.Close()
	}

	if err := build.Clean(ctx, rt, ws, build.ImageTags(ws)); err != nil {
		return err
	}

	printSuccess("workspace %s cleaned", ws.Root)
	return nil
}

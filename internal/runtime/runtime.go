package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/core/images"
	"github.com/containerd/errdefs"
)

const (

	// Snapshotter used for container filesystems. fuse-overlayfs provides
	// overlay semantics without requiring root privileges (no mount(2)),
	// allowing the verifier to run as a regular user.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"
)

// Manages the containerd client for builder containers.
type Runtime struct {
	client *containerd.Client
}

// Creates a runtime connected to the containerd socket at the given address.
//
// The namespace scopes all operations to this tool's containers and images.
// The runtime must be closed when no longer needed.
func New(address, namespace string) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRuntime, address, err)
	}
	return &Runtime{client: client}, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Imports a builder image OCI archive and tags it.
//
// The archive must contain exactly one image. Its layers are unpacked into
// the snapshotter so a container can start from it immediately. Importing
// over an existing tag updates it.
func (rt *Runtime) ImportImage(ctx context.Context, path, tag string) error {
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	defer fh.Close()

	imported, err := rt.client.Import(ctx, fh)
	if err != nil {
		return fmt.Errorf("%w: import %s: %w", ErrRuntime, path, err)
	}

	if len(imported) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyArchive, path)
	} else if len(imported) > 1 {
		return fmt.Errorf("%w: %s", ErrMultipleImages, path)
	}

	if err := rt.tagImage(ctx, imported[0], tag); err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	image, err := rt.client.GetImage(ctx, tag)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	if err := image.Unpack(ctx, snapshotter); err != nil {
		return fmt.Errorf("%w: unpack %s: %w", ErrRuntime, tag, err)
	}

	slog.Debug("builder image imported", "tag", tag)
	return nil
}

// Tags an imported image, updating the tag if it already exists and
// removing the import record when its name differs from the tag.
func (rt *Runtime) tagImage(ctx context.Context, source images.Image, tag string) error {
	is := rt.client.ImageService()

	img := images.Image{
		Name:   tag,
		Target: source.Target,
	}

	if _, err := is.Create(ctx, img); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return err
		}
		if _, err := is.Update(ctx, img, "target"); err != nil {
			return err
		}
	}

	if source.Name != tag {
		_ = is.Delete(ctx, source.Name)
	}

	return nil
}

// Reports whether the tag exists in the image store.
func (rt *Runtime) HasImage(ctx context.Context, tag string) (bool, error) {
	_, err := rt.client.ImageService().Get(ctx, tag)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return true, nil
}

// Starts a builder container from a previously imported tag.
//
// The project tree is bind mounted into the container so the build reads
// the (possibly overlaid) checkout directly and artifacts land on the host
// without any copy-out step. Any stale container with the same ID from a
// previous run is removed first.
func (rt *Runtime) StartBuilder(ctx context.Context, tag string, opts BuilderOptions) (*Container, error) {
	image, err := rt.client.GetImage(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("%w: image %s: %w", ErrRuntime, tag, err)
	}

	c := &Container{
		client: rt.client,
		id:     opts.ID,
	}

	c.remove(ctx)

	ctr, err := c.create(ctx, image, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := c.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("builder container started", "id", opts.ID, "image", tag, "project", opts.ProjectDir)

	return c, nil
}

// Removes an image and all containers created from it.
//
// Containers are discovered by querying containerd for records whose image
// field matches the tag. Each container's task is killed before the
// container and its snapshot are deleted. A missing image is not an error;
// clean must be idempotent.
func (rt *Runtime) DestroyImage(ctx context.Context, tag string) error {
	ctrs, err := rt.client.Containers(ctx, fmt.Sprintf("image==%s", tag))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	for _, ctr := range ctrs {
		if task, taskErr := ctr.Task(ctx, nil); taskErr == nil {
			task.Kill(ctx, syscall.SIGKILL)
			task.Delete(ctx, containerd.WithProcessKill)
		}
		if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("%w: %w", ErrRuntime, err)
		}
	}

	if err := rt.client.ImageService().Delete(ctx, tag); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	slog.Debug("builder image destroyed", "tag", tag)
	return nil
}

// Returns a handle for an existing container.
//
// The container is not loaded or verified; the handle resolves it lazily
// on subsequent calls.
func (rt *Runtime) Container(id string) *Container {
	return &Container{
		client: rt.client,
		id:     id,
	}
}

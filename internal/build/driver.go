package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/buildproof/reprodroid/internal/apk"
	"github.com/buildproof/reprodroid/internal/bundletool"
	"github.com/buildproof/reprodroid/internal/device"
	"github.com/buildproof/reprodroid/internal/host"
	"github.com/buildproof/reprodroid/internal/overlay"
	"github.com/buildproof/reprodroid/internal/paths"
	"github.com/buildproof/reprodroid/internal/repo"
	"github.com/buildproof/reprodroid/internal/runtime"
)

// Holds shared state across the steps of one verification run.
type driver struct {
	rt     *runtime.Runtime
	opts   Options
	ws     paths.Workspace
	src    *repo.Checkout
	ov     *overlay.Overlay
	result *Result

	// Directory holding the reference APKs, resolved by the reference step.
	referenceDir string
}

func newDriver(rt *runtime.Runtime, opts Options) *driver {
	ws := opts.Workspace
	return &driver{
		rt:   rt,
		opts: opts,
		ws:   ws,
		src: &repo.Checkout{
			URL:    opts.Target.Repo,
			Dir:    ws.Checkout(),
			Marker: ws.CheckoutMarker(),
			Stream: opts.Stream,
		},
		ov: &overlay.Overlay{
			Source: ws.Checkout(),
			Mount:  ws.OverlayMount(),
			Stream: opts.Stream,
		},
		result: &Result{Tag: opts.Tag},
	}
}

// Returns the verification steps in execution order.
func (d *driver) steps() []step {
	return []step{
		{name: "prepare workspace", run: d.prepareWorkspace},
		{name: "validate tag", skip: d.skipIfCheckedOut, run: d.validateTag},
		{name: "checkout", skip: d.skipIfCheckedOut, run: d.checkout},
		{name: "builder image", skip: d.skipIfArchived, run: d.buildImage},
		{name: "import image", skip: d.skipIfImported, run: d.importImage},
		{name: "overlay", skip: d.skipIfNoOverlay, run: d.mountOverlay},
		{name: "build", run: d.build},
		{name: "collect bundle", run: d.collectBundle},
		{name: "reference artifacts", run: d.reference},
		{name: "compare", run: d.compare},
	}
}

func (d *driver) prepareWorkspace(ctx context.Context) error {
	return d.ws.Ensure()
}

// A checkout already pinned at the requested tag satisfies both the tag
// validation (the tag evidently exists) and the clone.
func (d *driver) skipIfCheckedOut(ctx context.Context) (string, bool, error) {
	if tag, ok := d.src.ClonedTag(); ok && tag == d.opts.Tag {
		return fmt.Sprintf("checkout already at %s", tag), true, nil
	}
	return "", false, nil
}

func (d *driver) validateTag(ctx context.Context) error {
	return d.src.ValidateTag(ctx, d.opts.Tag)
}

func (d *driver) checkout(ctx context.Context) error {
	return d.src.Clone(ctx, d.opts.Tag)
}

func (d *driver) skipIfArchived(ctx context.Context) (string, bool, error) {
	archive := d.ws.ImageArchive(d.opts.Tag)
	if _, err := os.Stat(archive); err == nil {
		return fmt.Sprintf("archive %s exists", archive), true, nil
	}
	return "", false, nil
}

// Produces the builder image as an OCI archive from the upstream project's
// own image context. Delegated to docker buildx: the upstream ships a
// Dockerfile, and buildx can emit the OCI layout containerd imports.
func (d *driver) buildImage(ctx context.Context) error {
	contextDir := filepath.Join(d.ws.Checkout(), d.opts.Target.ImageContext)
	archive := d.ws.ImageArchive(d.opts.Tag)

	_, err := host.Command{
		Name: "docker",
		Args: []string{
			"buildx", "build",
			"--output", "type=oci,dest=" + archive,
			contextDir,
		},
		Stream: d.opts.Stream,
	}.Run(ctx)
	return err
}

func (d *driver) skipIfImported(ctx context.Context) (string, bool, error) {
	ok, err := d.rt.HasImage(ctx, imageTag(d.opts.Tag))
	if err != nil {
		return "", false, err
	}
	if ok {
		return fmt.Sprintf("image %s already imported", imageTag(d.opts.Tag)), true, nil
	}
	return "", false, nil
}

func (d *driver) importImage(ctx context.Context) error {
	return d.rt.ImportImage(ctx, d.ws.ImageArchive(d.opts.Tag), imageTag(d.opts.Tag))
}

func (d *driver) skipIfNoOverlay(ctx context.Context) (string, bool, error) {
	if d.opts.Overlay == overlay.ModeNone {
		return "no overlay requested", true, nil
	}
	return "", false, nil
}

func (d *driver) mountOverlay(ctx context.Context) error {
	return d.ov.Ensure(ctx, d.opts.Overlay)
}

// Directory the build container reads the project from.
func (d *driver) projectDir() string {
	if d.opts.Overlay != overlay.ModeNone {
		return d.ws.OverlayMount()
	}
	return d.ws.Checkout()
}

// Runs the upstream Gradle build inside the builder container.
//
// The build runs as the invoking user so the artifacts written through the
// bind mount stay owned by the operator.
func (d *driver) build(ctx context.Context) error {
	ctr, err := d.rt.StartBuilder(ctx, imageTag(d.opts.Tag), runtime.BuilderOptions{
		ID:         builderContainerID,
		ProjectDir: d.projectDir(),
		UID:        uint32(os.Getuid()),
		GID:        uint32(os.Getgid()),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := ctr.Stop(ctx); err != nil {
			slog.Warn("failed to stop builder container", "id", builderContainerID, "error", err)
		}
		ctr.Destroy(ctx)
	}()

	exitCode, err := ctr.ExecStream(ctx,
		[]string{"./gradlew", d.opts.Target.GradleTask},
		d.opts.Target.BuildEnv,
		runtime.ProjectMount,
		d.opts.Stream,
	)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("%w: gradle task %s exited with code %d",
			ErrBuildFailed, d.opts.Target.GradleTask, exitCode)
	}
	return nil
}

// Copies the built bundle into the artifacts directory and records its hash.
//
// The bundle is read from the checkout, not the overlay: both are the same
// underlying tree, and the overlay only perturbs directory listing order.
func (d *driver) collectBundle(ctx context.Context) error {
	src := filepath.Join(d.ws.Checkout(), d.opts.Target.BundlePath)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: %s (did the build produce the configured bundle_path?)", ErrNoBundle, src)
	}

	dest := filepath.Join(d.ws.BuiltArtifacts(), "bundle.aab")
	if err := copyFile(src, dest); err != nil {
		return err
	}

	sum, err := apk.WriteSHA256(dest, dest+".sha256")
	if err != nil {
		return err
	}

	d.result.BundlePath = dest
	d.result.BundleSHA256 = sum

	slog.Info("bundle collected", "path", dest, "sha256", sum)
	return nil
}

// Produces the reference APK set to compare the build against.
func (d *driver) reference(ctx context.Context) error {
	if d.opts.Device {
		return d.deviceReference(ctx)
	}
	return d.localReference(ctx)
}

// Generates device-targeted splits from the built bundle, then pulls the
// installed APKs off the device as the reference set.
func (d *driver) deviceReference(ctx context.Context) error {
	dev := &device.Device{Stream: d.opts.Stream}

	if _, err := dev.Devices(ctx); err != nil {
		return err
	}

	tool := &bundletool.Tool{Wrapper: d.ws.BundletoolWrapper(), Stream: d.opts.Stream}

	splitsDir := filepath.Join(d.ws.BuiltArtifacts(), "apks")
	if err := os.RemoveAll(splitsDir); err != nil {
		return err
	}
	if err := tool.BuildDeviceSplits(ctx, d.result.BundlePath, splitsDir); err != nil {
		return err
	}
	if err := flattenSplits(splitsDir, d.ws.BuiltArtifacts()); err != nil {
		return err
	}

	remotes, err := dev.PackagePaths(ctx, d.opts.Target.Package)
	if err != nil {
		return err
	}

	for _, remote := range remotes {
		local := filepath.Join(d.ws.DeviceArtifacts(), apk.DeviceSplitName(remote))
		slog.Info("pulling device APK", "remote", remote, "local", local)
		if err := dev.Pull(ctx, remote, local); err != nil {
			return err
		}
	}

	d.referenceDir = d.ws.DeviceArtifacts()
	return nil
}

// Resolves a local reference: either a directory of official split APKs or
// an official bundle to generate splits from.
func (d *driver) localReference(ctx context.Context) error {
	ref := d.opts.Reference
	if ref == "" {
		return fmt.Errorf("%w: pass --device or --reference", ErrNoReference)
	}

	info, err := os.Stat(ref)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoReference, err)
	}

	if info.IsDir() {
		d.referenceDir = ref
		return nil
	}

	// A bundle: generate every split and extract them as the reference.
	tool := &bundletool.Tool{Wrapper: d.ws.BundletoolWrapper(), Stream: d.opts.Stream}
	archive := filepath.Join(d.ws.DeviceArtifacts(), "reference.apks")
	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := tool.BuildAllSplits(ctx, ref, archive); err != nil {
		return err
	}
	if _, err := apk.ExtractSplits(archive, d.ws.DeviceArtifacts()); err != nil {
		return err
	}

	d.referenceDir = d.ws.DeviceArtifacts()
	return nil
}

// Pairs built and reference APKs by name and diffs each pair.
func (d *driver) compare(ctx context.Context) error {
	built, err := apk.ListAPKs(d.ws.BuiltArtifacts())
	if err != nil {
		return err
	}
	reference, err := apk.ListAPKs(d.referenceDir)
	if err != nil {
		return err
	}
	if len(built) == 0 || len(reference) == 0 {
		return fmt.Errorf("%w: built %d, reference %d", apk.ErrNoArtifacts, len(built), len(reference))
	}

	refByName := make(map[string]string, len(reference))
	for _, p := range reference {
		refByName[filepath.Base(p)] = p
	}

	for _, builtPath := range built {
		name := filepath.Base(builtPath)
		refPath, ok := refByName[name]
		if !ok {
			d.result.UnpairedBuilt = append(d.result.UnpairedBuilt, name)
			continue
		}
		delete(refByName, name)

		report, err := apk.Compare(builtPath, refPath, d.opts.Target.IgnoreEntries)
		if err != nil {
			return err
		}
		d.result.Reports = append(d.result.Reports, report)

		slog.Info("compared", "apk", name, "match", report.Match())
	}

	for name := range refByName {
		d.result.UnpairedReference = append(d.result.UnpairedReference, name)
	}
	sort.Strings(d.result.UnpairedReference)

	return nil
}

// Moves the APKs out of a bundletool DIRECTORY output into destDir and
// removes the output tree.
func flattenSplits(splitsDir, destDir string) error {
	apks, err := apk.ListAPKs(filepath.Join(splitsDir, "splits"))
	if err != nil {
		return err
	}
	for _, p := range apks {
		if err := os.Rename(p, filepath.Join(destDir, filepath.Base(p))); err != nil {
			return err
		}
	}
	return os.RemoveAll(splitsDir)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

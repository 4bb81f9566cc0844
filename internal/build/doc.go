// Package build drives the reproducible-build verification workflow.
//
// A run is a fixed sequence of steps: validate the requested release tag,
// check out the upstream source, produce and import the builder image,
// optionally mount a disorderfs overlay, run the upstream Gradle build in
// a container, generate reference APKs (from a connected device or a
// local official artifact), and compare the two sets entry by entry.
//
// Steps whose work is already done (for example a checkout pinned at the
// requested tag, or an image already imported) are skipped. The first
// failure aborts the run. Clean reverses all recorded state so the next
// run starts fresh.
//
// Example usage:
//
//	result, err := build.Run(ctx, rt, build.Options{
//	    Target:    config.Default(),
//	    Workspace: paths.Default(),
//	    Tag:       "v7.7.0",
//	    Overlay:   overlay.ModeSort,
//	    Device:    true,
//	})
//	if err != nil {
//	    return err
//	}
//	if !result.Match() {
//	    // the built APKs differ from the reference
//	}
package build

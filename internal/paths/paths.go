package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	toolName = "reprodroid"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// Permission mode for executable wrapper scripts.
	ExecFileMode os.FileMode = 0755
)

// Describes the on-disk layout of a verification workspace.
//
// All state for a run lives under a single root so that Clean can remove it
// wholesale. The zero value is not usable; construct with Default or At.
type Workspace struct {
	Root string // Workspace root directory.
}

// Returns the workspace rooted at the XDG data directory.
//
//	Linux:   ~/.local/share/reprodroid
//	macOS:   ~/Library/Application Support/reprodroid
func Default() Workspace {
	return Workspace{Root: filepath.Join(xdg.DataHome, toolName)}
}

// Returns a workspace rooted at an explicit directory.
func At(root string) Workspace {
	return Workspace{Root: root}
}

// Directory holding the upstream project checkout.
func (w Workspace) Checkout() string {
	return filepath.Join(w.Root, "checkout")
}

// Marker file recording which tag the checkout was cloned at.
func (w Workspace) CheckoutMarker() string {
	return filepath.Join(w.Root, "checkout.tag")
}

// Mount point for the disorderfs overlay over the checkout.
func (w Workspace) OverlayMount() string {
	return filepath.Join(w.Root, "overlay")
}

// Directory receiving the bundle and APKs produced by the build.
func (w Workspace) BuiltArtifacts() string {
	return filepath.Join(w.Root, "apks-built")
}

// Directory receiving the official APKs pulled from a device.
func (w Workspace) DeviceArtifacts() string {
	return filepath.Join(w.Root, "apks-device")
}

// Path of the builder image OCI archive for a given tag.
func (w Workspace) ImageArchive(tag string) string {
	return filepath.Join(w.Root, "images", "builder-"+tag+".oci.tar")
}

// Directory holding builder image archives.
func (w Workspace) Images() string {
	return filepath.Join(w.Root, "images")
}

// Path of the downloaded bundletool jar.
func (w Workspace) BundletoolJar() string {
	return filepath.Join(w.Root, "bundletool.jar")
}

// Path of the executable bundletool wrapper script.
func (w Workspace) BundletoolWrapper() string {
	return filepath.Join(w.Root, "bundletool")
}

// Creates the directories a verification run writes into.
func (w Workspace) Ensure() error {
	for _, dir := range []string{
		w.Root,
		w.BuiltArtifacts(),
		w.DeviceArtifacts(),
		w.Images(),
		w.OverlayMount(),
	} {
		if err := os.MkdirAll(dir, DefaultDirMode); err != nil {
			return err
		}
	}
	return nil
}

// Path to the containerd socket, honoring $CONTAINERD_ADDRESS.
func ContainerdSocket() string {
	if addr := os.Getenv("CONTAINERD_ADDRESS"); addr != "" {
		return addr
	}
	if xdg.RuntimeDir != "" {
		sock := filepath.Join(xdg.RuntimeDir, "containerd", "containerd.sock")
		if _, err := os.Stat(sock); err == nil {
			return sock
		}
	}
	return "/run/containerd/containerd.sock"
}

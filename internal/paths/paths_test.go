package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWorkspaceLayout(t *testing.T) {
	w := At("/tmp/ws")

	for name, got := range map[string]string{
		"checkout": w.Checkout(),
		"marker":   w.CheckoutMarker(),
		"overlay":  w.OverlayMount(),
		"built":    w.BuiltArtifacts(),
		"device":   w.DeviceArtifacts(),
		"images":   w.Images(),
		"jar":      w.BundletoolJar(),
		"wrapper":  w.BundletoolWrapper(),
	} {
		if !strings.HasPrefix(got, "/tmp/ws"+string(filepath.Separator)) {
			t.Errorf("%s = %q, not under workspace root", name, got)
		}
	}
}

func TestImageArchiveIncludesTag(t *testing.T) {
	w := At("/tmp/ws")
	got := w.ImageArchive("v7.7.0")
	if !strings.Contains(got, "v7.7.0") {
		t.Fatalf("ImageArchive = %q, want tag in path", got)
	}
	if filepath.Dir(got) != w.Images() {
		t.Fatalf("ImageArchive dir = %q, want %q", filepath.Dir(got), w.Images())
	}
}

func TestEnsureCreatesDirectories(t *testing.T) {
	w := At(t.TempDir())
	if err := w.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	for _, dir := range []string{w.BuiltArtifacts(), w.DeviceArtifacts(), w.Images(), w.OverlayMount()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}

func TestEnsureIdempotent(t *testing.T) {
	w := At(t.TempDir())
	if err := w.Ensure(); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	if err := w.Ensure(); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
}

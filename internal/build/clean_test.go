package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/buildproof/reprodroid/internal/paths"
)

func TestArchiveTag(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		ok   bool
	}{
		{"builder-v7.7.0.oci.tar", "v7.7.0", true},
		{"builder-v7.7.0-beta.1.oci.tar", "v7.7.0-beta.1", true},
		{"builder-.oci.tar", "", false},
		{"builder-v7.7.0.tar", "", false},
		{"image-v7.7.0.oci.tar", "", false},
		{"notes.txt", "", false},
	}

	for _, tt := range tests {
		tag, ok := archiveTag(tt.name)
		if tag != tt.tag || ok != tt.ok {
			t.Errorf("archiveTag(%q) = %q, %v, want %q, %v", tt.name, tag, ok, tt.tag, tt.ok)
		}
	}
}

func TestImageTags(t *testing.T) {
	ws := paths.At(t.TempDir())
	if err := ws.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	for _, name := range []string{"builder-v7.7.0.oci.tar", "builder-v7.8.0.oci.tar", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(ws.Images(), name), nil, 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	tags := ImageTags(ws)
	want := []string{"reprodroid/builder:v7.7.0", "reprodroid/builder:v7.8.0"}
	if len(tags) != len(want) {
		t.Fatalf("ImageTags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("ImageTags = %v, want %v", tags, want)
		}
	}
}

func TestImageTagsMissingDir(t *testing.T) {
	ws := paths.At(filepath.Join(t.TempDir(), "nonexistent"))
	if tags := ImageTags(ws); tags != nil {
		t.Fatalf("ImageTags = %v, want nil", tags)
	}
}

func TestCleanIdempotent(t *testing.T) {
	ws := paths.At(t.TempDir())
	if err := ws.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	if err := os.MkdirAll(ws.Checkout(), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(ws.CheckoutMarker(), []byte("v7.7.0\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(ws.BuiltArtifacts(), "bundle.aab"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx := context.Background()
	if err := Clean(ctx, nil, ws, nil); err != nil {
		t.Fatalf("Clean: %v", err)
	}

	for _, path := range []string{ws.Checkout(), ws.CheckoutMarker(), ws.BuiltArtifacts()} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("%s still exists after clean", path)
		}
	}

	// Cleaning an already-clean workspace must succeed.
	if err := Clean(ctx, nil, ws, nil); err != nil {
		t.Fatalf("second Clean: %v", err)
	}
}

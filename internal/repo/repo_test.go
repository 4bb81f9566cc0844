package repo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		version string
		prefix  string
		want    string
	}{
		{"7.7.0", "v", "v7.7.0"},
		{"v7.7.0", "v", "v7.7.0"},
		{" 7.7.0 ", "v", "v7.7.0"},
		{"7.7.0", "", "7.7.0"},
		{"release-1.2", "release-", "release-1.2"},
	}

	for _, tt := range tests {
		if got := NormalizeTag(tt.version, tt.prefix); got != tt.want {
			t.Errorf("NormalizeTag(%q, %q) = %q, want %q", tt.version, tt.prefix, got, tt.want)
		}
	}
}

func newCheckout(t *testing.T) *Checkout {
	t.Helper()
	root := t.TempDir()
	return &Checkout{
		URL:    "https://example.com/app.git",
		Dir:    filepath.Join(root, "checkout"),
		Marker: filepath.Join(root, "checkout.tag"),
	}
}

func TestClonedTagNoMarker(t *testing.T) {
	c := newCheckout(t)
	if _, ok := c.ClonedTag(); ok {
		t.Fatal("ClonedTag reported a tag with no marker present")
	}
}

func TestClonedTagRequiresCheckoutDir(t *testing.T) {
	c := newCheckout(t)
	if err := os.WriteFile(c.Marker, []byte("v7.7.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// Marker without a checkout directory means a half-cleaned workspace.
	if _, ok := c.ClonedTag(); ok {
		t.Fatal("ClonedTag reported a tag with no checkout directory")
	}

	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		t.Fatal(err)
	}
	tag, ok := c.ClonedTag()
	if !ok {
		t.Fatal("ClonedTag did not find the recorded tag")
	}
	if tag != "v7.7.0" {
		t.Fatalf("ClonedTag = %q, want v7.7.0", tag)
	}
}

func TestClonedTagEmptyMarker(t *testing.T) {
	c := newCheckout(t)
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.Marker, []byte("\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.ClonedTag(); ok {
		t.Fatal("ClonedTag accepted an empty marker")
	}
}

func TestRemove(t *testing.T) {
	c := newCheckout(t)
	if err := os.MkdirAll(filepath.Join(c.Dir, "app"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.Marker, []byte("v7.7.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(c.Dir); !os.IsNotExist(err) {
		t.Fatal("checkout directory still present")
	}
	if _, err := os.Stat(c.Marker); !os.IsNotExist(err) {
		t.Fatal("marker still present")
	}

	// Removing an already-clean checkout is not an error.
	if err := c.Remove(); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

package apk

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeApksArchive(t *testing.T, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "output.apks")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractSplits(t *testing.T) {
	archive := writeApksArchive(t, map[string]string{
		"toc.pb":                      "metadata",
		"splits/base-master.apk":      "master payload",
		"splits/base-arm64_v8a.apk":   "abi payload",
		"splits/base-xxhdpi.apk":      "density payload",
	})
	dest := t.TempDir()

	splits, err := ExtractSplits(archive, dest)
	if err != nil {
		t.Fatalf("ExtractSplits: %v", err)
	}

	wantNames := []string{"base-arm64_v8a.apk", "base-master.apk", "base-xxhdpi.apk"}
	if len(splits) != len(wantNames) {
		t.Fatalf("got %d splits, want %d", len(splits), len(wantNames))
	}
	for i, s := range splits {
		if s.Name != wantNames[i] {
			t.Errorf("splits[%d].Name = %q, want %q", i, s.Name, wantNames[i])
		}
		if s.Size == 0 {
			t.Errorf("splits[%d].Size = 0", i)
		}
		if len(s.SHA256) != 64 {
			t.Errorf("splits[%d].SHA256 = %q, want 64 hex chars", i, s.SHA256)
		}
		if _, err := os.Stat(s.Path); err != nil {
			t.Errorf("splits[%d] not extracted: %v", i, err)
		}
	}
}

func TestExtractSplitsNoAPKs(t *testing.T) {
	archive := writeApksArchive(t, map[string]string{"toc.pb": "metadata only"})

	if _, err := ExtractSplits(archive, t.TempDir()); !errors.Is(err, ErrNoArtifacts) {
		t.Fatalf("err = %v, want ErrNoArtifacts", err)
	}
}

func TestListAPKs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.apk", "a.apk", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	apks, err := ListAPKs(dir)
	if err != nil {
		t.Fatalf("ListAPKs: %v", err)
	}
	if len(apks) != 2 {
		t.Fatalf("got %d APKs, want 2", len(apks))
	}
	if filepath.Base(apks[0]) != "a.apk" || filepath.Base(apks[1]) != "b.apk" {
		t.Fatalf("APKs not sorted: %v", apks)
	}
}

func TestDeviceSplitName(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"/data/app/org.example/base.apk", "base-master.apk"},
		{"/data/app/org.example/split_config.arm64_v8a.apk", "base-arm64_v8a.apk"},
		{"/data/app/org.example/split_config.xxhdpi.apk", "base-xxhdpi.apk"},
		{"split_config.en.apk", "base-en.apk"},
		{"base.apk", "base-master.apk"},
		{"/data/app/org.example/oddball.apk", "oddball.apk"},
	}

	for _, tt := range tests {
		if got := DeviceSplitName(tt.remote); got != tt.want {
			t.Errorf("DeviceSplitName(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestSHA256RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.aab")
	if err := os.WriteFile(path, []byte("bundle bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	sum1, err := SHA256(path)
	if err != nil {
		t.Fatalf("SHA256: %v", err)
	}
	sum2, err := SHA256(path)
	if err != nil {
		t.Fatalf("SHA256: %v", err)
	}
	if sum1 != sum2 {
		t.Fatalf("hash not stable: %q vs %q", sum1, sum2)
	}

	sumPath := filepath.Join(t.TempDir(), "artifact.sha256")
	written, err := WriteSHA256(path, sumPath)
	if err != nil {
		t.Fatalf("WriteSHA256: %v", err)
	}
	if written != sum1 {
		t.Fatalf("WriteSHA256 = %q, want %q", written, sum1)
	}

	data, err := os.ReadFile(sumPath)
	if err != nil {
		t.Fatal(err)
	}
	want := sum1 + "  artifact.aab\n"
	if string(data) != want {
		t.Fatalf("checksum file = %q, want %q", data, want)
	}
}

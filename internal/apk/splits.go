package apk

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// A single APK extracted from a bundletool .apks archive.
type Split struct {
	Name   string // File name of the APK.
	Path   string // Extracted path on disk.
	Size   int64  // Size in bytes.
	SHA256 string // Hex-encoded content hash.
}

// Extracts every APK from a bundletool .apks archive into destDir.
//
// A .apks file is a zip whose "splits/" (or "standalones/") members are the
// per-configuration APKs. Only .apk members are extracted; archive metadata
// (toc.pb and friends) is skipped. Entries are flattened into destDir and
// returned sorted by name with their sizes and hashes.
func ExtractSplits(archive, destDir string) ([]Split, error) {
	zf, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadArchive, archive, err)
	}
	defer zf.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, err
	}

	var splits []Split
	for _, f := range zf.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".apk") {
			continue
		}

		dest := filepath.Join(destDir, filepath.Base(f.Name))
		if err := extractEntry(f, dest); err != nil {
			return nil, err
		}

		sum, err := SHA256(dest)
		if err != nil {
			return nil, err
		}

		splits = append(splits, Split{
			Name:   filepath.Base(f.Name),
			Path:   dest,
			Size:   int64(f.UncompressedSize64),
			SHA256: sum,
		})
	}

	if len(splits) == 0 {
		return nil, fmt.Errorf("%w: %s contains no APKs", ErrNoArtifacts, archive)
	}

	sort.Slice(splits, func(i, j int) bool { return splits[i].Name < splits[j].Name })
	return splits, nil
}

// Lists the .apk files directly inside dir, sorted by name.
func ListAPKs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var apks []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".apk") {
			apks = append(apks, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(apks)
	return apks, nil
}

func extractEntry(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadArchive, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("%w: %s: %w", ErrBadArchive, f.Name, err)
	}
	return out.Close()
}

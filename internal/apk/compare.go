package apk

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
)

// Outcome of comparing two APKs entry by entry.
//
// An APK is a zip archive; two builds match when they contain the same
// entries with identical contents, ignoring the signing material that an
// official release necessarily differs in.
type Report struct {
	First        string   // Path of the first archive.
	Second       string   // Path of the second archive.
	OnlyInFirst  []string // Entries present only in the first archive.
	OnlyInSecond []string // Entries present only in the second archive.
	Differing    []string // Entries present in both with different contents.
	Compared     int      // Number of entries compared after filtering.
}

// Reports whether the two archives are equivalent.
func (r *Report) Match() bool {
	return len(r.OnlyInFirst) == 0 && len(r.OnlyInSecond) == 0 && len(r.Differing) == 0
}

// Renders the report as a human-readable diff summary.
func (r *Report) String() string {
	if r.Match() {
		return fmt.Sprintf("%d entries compared, all match", r.Compared)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d entries compared\n", r.Compared)
	for _, name := range r.OnlyInFirst {
		fmt.Fprintf(&buf, "  only in %s: %s\n", r.First, name)
	}
	for _, name := range r.OnlyInSecond {
		fmt.Fprintf(&buf, "  only in %s: %s\n", r.Second, name)
	}
	for _, name := range r.Differing {
		fmt.Fprintf(&buf, "  differs: %s\n", name)
	}
	return buf.String()
}

// Compares two APK archives entry by entry.
//
// Entries whose names match any of the ignore patterns (path.Match syntax,
// literal names included) are excluded from the comparison on both sides.
// Remaining entries are paired by name; contents are compared via CRC32 and
// size first, with a byte-for-byte read only when those agree.
func Compare(first, second string, ignore []string) (*Report, error) {
	zf1, err := zip.OpenReader(first)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadArchive, first, err)
	}
	defer zf1.Close()

	zf2, err := zip.OpenReader(second)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadArchive, second, err)
	}
	defer zf2.Close()

	entries1 := indexEntries(&zf1.Reader, ignore)
	entries2 := indexEntries(&zf2.Reader, ignore)

	report := &Report{First: first, Second: second}

	for name, f1 := range entries1 {
		f2, ok := entries2[name]
		if !ok {
			report.OnlyInFirst = append(report.OnlyInFirst, name)
			continue
		}

		report.Compared++
		same, err := sameContents(f1, f2)
		if err != nil {
			return nil, err
		}
		if !same {
			report.Differing = append(report.Differing, name)
		}
	}

	for name := range entries2 {
		if _, ok := entries1[name]; !ok {
			report.OnlyInSecond = append(report.OnlyInSecond, name)
		}
	}

	sort.Strings(report.OnlyInFirst)
	sort.Strings(report.OnlyInSecond)
	sort.Strings(report.Differing)

	return report, nil
}

// Maps entry names to files, dropping directories and ignored names.
func indexEntries(r *zip.Reader, ignore []string) map[string]*zip.File {
	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() || ignored(f.Name, ignore) {
			continue
		}
		entries[f.Name] = f
	}
	return entries
}

func ignored(name string, patterns []string) bool {
	for _, p := range patterns {
		if p == name {
			return true
		}
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

func sameContents(f1, f2 *zip.File) (bool, error) {
	if f1.CRC32 != f2.CRC32 || f1.UncompressedSize64 != f2.UncompressedSize64 {
		return false, nil
	}

	b1, err := readEntry(f1)
	if err != nil {
		return false, err
	}
	b2, err := readEntry(f2)
	if err != nil {
		return false, err
	}
	return bytes.Equal(b1, b2), nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadArchive, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadArchive, f.Name, err)
	}
	return data, nil
}

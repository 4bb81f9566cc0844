package apk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/google/renameio"
)

// Returns the hex-encoded SHA-256 of the file at path.
func SHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Hashes the file at path and writes "<hash>  <name>\n" to sumPath.
//
// The checksum file is written atomically so a crashed run never leaves a
// truncated record behind. The format matches sha256sum output.
func WriteSHA256(path, sumPath string) (string, error) {
	sum, err := SHA256(path)
	if err != nil {
		return "", err
	}

	line := fmt.Sprintf("%s  %s\n", sum, nameOf(path))
	if err := renameio.WriteFile(sumPath, []byte(line), 0644); err != nil {
		return "", err
	}
	return sum, nil
}

func nameOf(path string) string {
	info, err := os.Stat(path)
	if err == nil {
		return info.Name()
	}
	return path
}

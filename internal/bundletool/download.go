package bundletool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/buildproof/reprodroid/internal/paths"
	"github.com/google/renameio"
)

var (
	ErrDownload  = errors.New("bundletool download failed")
	ErrNoRelease = errors.New("no bundletool release found")
)

// GitHub API endpoint describing the latest bundletool release.
const defaultReleaseURL = "https://api.github.com/repos/google/bundletool/releases/latest"

// The subset of the GitHub release payload the downloader reads.
type release struct {
	TagName string  `json:"tag_name"`
	Assets  []asset `json:"assets"`
}

type asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

// Downloads the latest bundletool jar and writes an executable wrapper.
//
// bundletool ships as a bare jar, so a small "exec java -jar" wrapper
// script is written beside it to make it callable like a binary. Both
// files are written atomically.
type Downloader struct {
	ReleaseURL string       // API endpoint; defaults to the google/bundletool latest release.
	Client     *http.Client // HTTP client; defaults to http.DefaultClient.
}

// Fetches the latest release jar to jarPath and the wrapper to wrapperPath,
// returning the release tag.
func (d *Downloader) Fetch(ctx context.Context, jarPath, wrapperPath string) (string, error) {
	rel, err := d.latestRelease(ctx)
	if err != nil {
		return "", err
	}

	jarURL, err := jarAsset(rel)
	if err != nil {
		return "", err
	}

	slog.Info("downloading bundletool", "version", rel.TagName, "url", jarURL)

	if err := d.downloadTo(ctx, jarURL, jarPath); err != nil {
		return "", err
	}

	if err := WriteWrapper(wrapperPath, jarPath); err != nil {
		return "", err
	}

	return rel.TagName, nil
}

func (d *Downloader) latestRelease(ctx context.Context) (*release, error) {
	url := d.ReleaseURL
	if url == "" {
		url = defaultReleaseURL
	}

	body, err := d.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var rel release
	if err := json.NewDecoder(body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	return &rel, nil
}

func (d *Downloader) downloadTo(ctx context.Context, url, path string) error {
	body, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := renameio.TempFile("", path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownload, err)
	}
	defer f.Cleanup()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("%w: %w", ErrDownload, err)
	}
	return f.CloseAtomicallyReplace()
}

func (d *Downloader) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownload, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s returned %s", ErrDownload, url, resp.Status)
	}
	return resp.Body, nil
}

// Picks the jar asset out of a release.
func jarAsset(rel *release) (string, error) {
	for _, a := range rel.Assets {
		if strings.HasSuffix(a.Name, ".jar") {
			return a.DownloadURL, nil
		}
	}
	return "", fmt.Errorf("%w: release %s has no jar asset", ErrNoRelease, rel.TagName)
}

// Writes an executable shell wrapper that runs the jar.
func WriteWrapper(wrapperPath, jarPath string) error {
	script := fmt.Sprintf("#!/bin/sh\nexec java -jar %q \"$@\"\n", jarPath)
	if err := renameio.WriteFile(wrapperPath, []byte(script), paths.ExecFileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrDownload, err)
	}
	return nil
}

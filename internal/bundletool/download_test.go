package bundletool

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFetchDownloadsJarAndWrapper(t *testing.T) {
	var jarURL string

	mux := http.NewServeMux()
	mux.HandleFunc("/jar", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jar bytes"))
	})
	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"tag_name": "1.17.2",
			"assets": [
				{"name": "bundletool-all-1.17.2.jar", "browser_download_url": "` + jarURL + `"},
				{"name": "sources.zip", "browser_download_url": "https://example.com/ignored"}
			]
		}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	jarURL = srv.URL + "/jar"

	dir := t.TempDir()
	jarPath := filepath.Join(dir, "bundletool.jar")
	wrapperPath := filepath.Join(dir, "bundletool")

	d := &Downloader{ReleaseURL: srv.URL + "/release", Client: srv.Client()}
	tag, err := d.Fetch(context.Background(), jarPath, wrapperPath)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if tag != "1.17.2" {
		t.Fatalf("tag = %q, want 1.17.2", tag)
	}

	jar, err := os.ReadFile(jarPath)
	if err != nil {
		t.Fatalf("jar not written: %v", err)
	}
	if string(jar) != "jar bytes" {
		t.Fatalf("jar contents = %q", jar)
	}

	info, err := os.Stat(wrapperPath)
	if err != nil {
		t.Fatalf("wrapper not written: %v", err)
	}
	if info.Mode()&0111 == 0 {
		t.Fatal("wrapper is not executable")
	}

	script, err := os.ReadFile(wrapperPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"#!/bin/sh", "exec java -jar", jarPath} {
		if !strings.Contains(string(script), want) {
			t.Errorf("wrapper %q missing %q", script, want)
		}
	}
}

func TestFetchNoJarAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name": "1.0.0", "assets": [{"name": "sources.zip", "browser_download_url": "x"}]}`))
	}))
	defer srv.Close()

	d := &Downloader{ReleaseURL: srv.URL, Client: srv.Client()}
	dir := t.TempDir()
	_, err := d.Fetch(context.Background(), filepath.Join(dir, "j"), filepath.Join(dir, "w"))
	if !errors.Is(err, ErrNoRelease) {
		t.Fatalf("err = %v, want ErrNoRelease", err)
	}
}

func TestFetchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer srv.Close()

	d := &Downloader{ReleaseURL: srv.URL, Client: srv.Client()}
	dir := t.TempDir()
	_, err := d.Fetch(context.Background(), filepath.Join(dir, "j"), filepath.Join(dir, "w"))
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("err = %v, want ErrDownload", err)
	}
}

func TestToolCheck(t *testing.T) {
	dir := t.TempDir()
	wrapper := filepath.Join(dir, "bundletool")

	tool := &Tool{Wrapper: wrapper}
	if err := tool.Check(); !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("err = %v, want ErrNotInstalled", err)
	}

	if err := os.WriteFile(wrapper, []byte("#!/bin/sh\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := tool.Check(); !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("non-executable wrapper: err = %v, want ErrNotInstalled", err)
	}

	if err := os.Chmod(wrapper, 0755); err != nil {
		t.Fatal(err)
	}
	if err := tool.Check(); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

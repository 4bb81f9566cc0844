// Package repo manages the upstream project checkout.
//
// The checkout is a shallow clone pinned to a release tag. A marker file
// beside the checkout records which tag it was cloned at so a rerun with
// the same tag can skip the clone entirely.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/renameio"

	"github.com/buildproof/reprodroid/internal/host"
)

var (
	ErrUnknownTag = errors.New("tag not found in upstream repository")
	ErrClone      = errors.New("clone failed")
)

// An upstream git repository cloned at release tags.
type Checkout struct {
	URL    string    // Git URL of the upstream repository.
	Dir    string    // Directory the repository is cloned into.
	Marker string    // Marker file recording the cloned tag.
	Stream io.Writer // Destination for streamed git output; nil discards.
}

// Normalizes a version into a tag by prepending prefix when absent.
//
// "7.7.0" with prefix "v" becomes "v7.7.0"; "v7.7.0" is left alone.
func NormalizeTag(version, prefix string) string {
	version = strings.TrimSpace(version)
	if prefix != "" && !strings.HasPrefix(version, prefix) {
		return prefix + version
	}
	return version
}

// Verifies that the tag exists upstream without cloning anything.
//
// Queried with "git ls-remote --tags <url> <tag>", which prints nothing for
// an unknown ref. Running this before any clone or build work means an
// invalid version fails fast with no partial state left behind.
func (c *Checkout) ValidateTag(ctx context.Context, tag string) error {
	res, err := host.Command{
		Name: "git",
		Args: []string{"ls-remote", "--tags", c.URL, "refs/tags/" + tag},
	}.Run(ctx)
	if err != nil {
		return err
	}

	if len(res.Lines()) == 0 {
		return fmt.Errorf("%w: %s has no tag %q", ErrUnknownTag, c.URL, tag)
	}
	return nil
}

// Returns the tag recorded by the last successful clone, if any.
func (c *Checkout) ClonedTag() (string, bool) {
	data, err := os.ReadFile(c.Marker)
	if err != nil {
		return "", false
	}

	tag := strings.TrimSpace(string(data))
	if tag == "" {
		return "", false
	}
	if _, err := os.Stat(c.Dir); err != nil {
		return "", false
	}
	return tag, true
}

// Clones the repository at the given tag, replacing any existing checkout.
//
// The clone is shallow: verification only needs the tagged tree, not
// history. The marker is written after the clone succeeds, so an aborted
// clone never masquerades as a usable checkout.
func (c *Checkout) Clone(ctx context.Context, tag string) error {
	if err := os.RemoveAll(c.Dir); err != nil {
		return fmt.Errorf("%w: %w", ErrClone, err)
	}
	if err := os.Remove(c.Marker); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", ErrClone, err)
	}

	slog.Info("cloning upstream repository", "url", c.URL, "tag", tag)

	_, err := host.Command{
		Name:   "git",
		Args:   []string{"clone", "--depth", "1", "--branch", tag, c.URL, c.Dir},
		Stream: c.Stream,
	}.Run(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClone, err)
	}

	if err := renameio.WriteFile(c.Marker, []byte(tag+"\n"), 0644); err != nil {
		return fmt.Errorf("%w: %w", ErrClone, err)
	}
	return nil
}

// Removes the checkout and its marker.
func (c *Checkout) Remove() error {
	if err := os.RemoveAll(c.Dir); err != nil {
		return err
	}
	if err := os.Remove(c.Marker); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

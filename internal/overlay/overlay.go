package overlay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio"

	"github.com/buildproof/reprodroid/internal/host"
)

var (
	ErrInvalidMode  = errors.New("invalid overlay mode")
	ErrModeConflict = errors.New("overlay mounted with a different mode")
	ErrMount        = errors.New("overlay mount failed")
	ErrUnmount      = errors.New("overlay unmount failed")
)

// Directory-entry ordering imposed by the disorderfs overlay.
type Mode string

const (
	// No overlay; the build reads the checkout directly.
	ModeNone Mode = "none"

	// Directory entries are returned in sorted order. Pins traversal
	// order, so a nondeterministic build becomes repeatable.
	ModeSort Mode = "sort"

	// Directory entries are returned in random order on every listing.
	// Exposes builds that depend on traversal order.
	ModeShuffle Mode = "shuffle"

	// Directory entries are returned in reverse order.
	ModeReverse Mode = "reverse"
)

// Parses an --overlay flag value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeNone, "":
		return ModeNone, nil
	case ModeSort:
		return ModeSort, nil
	case ModeShuffle:
		return ModeShuffle, nil
	case ModeReverse:
		return ModeReverse, nil
	}
	return "", fmt.Errorf("%w: %q (want none, sort, shuffle, or reverse)", ErrInvalidMode, s)
}

// Returns the disorderfs flag selecting this ordering.
func (m Mode) flag() string {
	switch m {
	case ModeSort:
		return "--sort-dirents=yes"
	case ModeShuffle:
		return "--shuffle-dirents=yes"
	case ModeReverse:
		return "--reverse-dirents=yes"
	}
	return ""
}

// A disorderfs overlay presenting Source at Mount with perturbed ordering.
//
// The active mode is recorded in a marker file next to the mount point:
// the kernel mount table says whether disorderfs is mounted but not with
// which flags, and a remount with different flags silently changes build
// behavior. The marker makes mode changes an explicit clean-then-mount.
type Overlay struct {
	Source string    // Directory being overlaid (the checkout).
	Mount  string    // Mount point the build reads from.
	Stream io.Writer // Destination for streamed mount output; nil discards.

	// Mounts table consulted to detect an active mount. Empty means
	// /proc/self/mounts.
	Mounts string
}

// Path of the mounts table to probe.
func (o *Overlay) mountsFile() string {
	if o.Mounts != "" {
		return o.Mounts
	}
	return "/proc/self/mounts"
}

// Path of the marker recording the mounted mode.
func (o *Overlay) marker() string {
	return filepath.Join(filepath.Dir(o.Mount), filepath.Base(o.Mount)+".mode")
}

// Returns the mode the overlay is currently mounted with.
//
// ModeNone is returned when nothing is mounted. A stale marker with no
// backing mount is treated as unmounted.
func (o *Overlay) Active() (Mode, error) {
	mounted, err := isMountPoint(o.Mount, o.mountsFile())
	if err != nil {
		return ModeNone, err
	}
	if !mounted {
		return ModeNone, nil
	}

	data, err := os.ReadFile(o.marker())
	if err != nil {
		if os.IsNotExist(err) {
			// Mounted but unrecorded. A bare disorderfs mount reverses
			// directory entries (--reverse-dirents defaults to yes).
			return ModeReverse, nil
		}
		return ModeNone, err
	}

	mode, err := ParseMode(string(data))
	if err != nil {
		return ModeNone, err
	}
	return mode, nil
}

// Mounts the overlay with the given mode.
//
// Mounting over an overlay already active with the same mode is a no-op.
// An overlay active with a different mode is an error: the operator must
// run clean first, keeping the unmount-before-remount discipline explicit.
func (o *Overlay) Ensure(ctx context.Context, mode Mode) error {
	if mode == ModeNone {
		return nil
	}

	active, err := o.Active()
	if err != nil {
		return err
	}
	if active == mode {
		slog.Info("overlay already mounted", "mode", mode, "mount", o.Mount)
		return nil
	}
	if active != ModeNone {
		return fmt.Errorf("%w: %s is mounted with mode %q, run clean before mounting %q",
			ErrModeConflict, o.Mount, active, mode)
	}

	if err := os.MkdirAll(o.Mount, 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrMount, err)
	}

	slog.Info("mounting overlay", "mode", mode, "source", o.Source, "mount", o.Mount)

	_, err = host.Command{
		Name:   "disorderfs",
		Args:   []string{mode.flag(), o.Source, o.Mount},
		Stream: o.Stream,
	}.Run(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMount, err)
	}

	if err := renameio.WriteFile(o.marker(), []byte(string(mode)+"\n"), 0644); err != nil {
		return fmt.Errorf("%w: %w", ErrMount, err)
	}
	return nil
}

// Unmounts the overlay if it is mounted. Safe to call when it is not.
func (o *Overlay) Unmount(ctx context.Context) error {
	active, err := o.Active()
	if err != nil {
		return err
	}
	if active == ModeNone {
		_ = os.Remove(o.marker())
		return nil
	}

	slog.Info("unmounting overlay", "mount", o.Mount)

	_, err = host.Command{Name: "fusermount3", Args: []string{"-u", o.Mount}}.Run(ctx)
	if err != nil {
		// Older hosts ship fusermount without the 3 suffix.
		if _, retryErr := (host.Command{Name: "fusermount", Args: []string{"-u", o.Mount}}).Run(ctx); retryErr != nil {
			return fmt.Errorf("%w: %w", ErrUnmount, err)
		}
	}

	if err := os.Remove(o.marker()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", ErrUnmount, err)
	}
	return nil
}

// Reports whether path appears as a mount point in a mounts table.
//
// The table is in /proc/self/mounts format: one mount per line, with the
// mount point in the second whitespace-separated field.
func isMountPoint(path, mountsFile string) (bool, error) {
	data, err := os.ReadFile(mountsFile)
	if err != nil {
		return false, err
	}

	clean := filepath.Clean(path)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && unescapeMount(fields[1]) == clean {
			return true, nil
		}
	}
	return false, nil
}

// Decodes the octal escapes /proc/self/mounts uses for spaces and tabs.
func unescapeMount(s string) string {
	replacer := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return replacer.Replace(s)
}

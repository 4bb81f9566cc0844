// Package deps checks the host for the external tools the workflow needs.
//
// Every meaningful step of the verification shells out to something (git,
// adb, bundletool's java, disorderfs, docker for image production), so a
// missing tool should surface as one readable report up front instead of a
// mid-run failure after a long build.
package deps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/buildproof/reprodroid/internal/bundletool"
	"github.com/buildproof/reprodroid/internal/host"
)

var ErrMissing = errors.New("missing dependencies")

// A single host dependency to probe.
type Check struct {
	Name        string   // Display name.
	Tool        string   // Executable looked up on PATH; empty for custom probes.
	VersionArgs []string // Arguments that print a version; nil skips the version probe.
	Probe       func(ctx context.Context) (string, error) // Custom probe overriding the PATH lookup.
}

// Outcome of probing one dependency.
type Result struct {
	Name    string // Display name.
	OK      bool   // Whether the dependency was found.
	Version string // First line of version output, when available.
	Path    string // Resolved path, with symlinks followed.
}

// Returns the checks for a standard verification host.
//
// The containerd socket and bundletool wrapper live at caller-determined
// paths, so they are parameters rather than PATH lookups.
func Standard(containerdSocket, bundletoolWrapper string) []Check {
	return []Check{
		{Name: "git", Tool: "git", VersionArgs: []string{"--version"}},
		{Name: "docker", Tool: "docker", VersionArgs: []string{"--version"}},
		{Name: "adb", Tool: "adb", VersionArgs: []string{"version"}},
		{Name: "java", Tool: "java", VersionArgs: []string{"-version"}},
		{Name: "disorderfs", Tool: "disorderfs", VersionArgs: []string{"--version"}},
		{Name: "fusermount3", Tool: "fusermount3"},
		{Name: "containerd", Probe: socketProbe(containerdSocket)},
		{Name: "bundletool", Probe: wrapperProbe(bundletoolWrapper)},
	}
}

// Runs every check, returning all results and an error when any failed.
func Run(ctx context.Context, checks []Check) ([]Result, error) {
	results := make([]Result, 0, len(checks))
	missing := 0

	for _, c := range checks {
		r := c.run(ctx)
		if !r.OK {
			missing++
		}
		results = append(results, r)
	}

	if missing > 0 {
		return results, fmt.Errorf("%w: %d of %d checks failed", ErrMissing, missing, len(checks))
	}
	return results, nil
}

func (c Check) run(ctx context.Context) Result {
	if c.Probe != nil {
		detail, err := c.Probe(ctx)
		return Result{Name: c.Name, OK: err == nil, Version: detail, Path: detail}
	}

	path, ok := host.Which(c.Tool)
	if !ok {
		return Result{Name: c.Name, OK: false}
	}

	// Resolve symlinks so a report shows what actually runs (adb is
	// commonly a distribution-managed symlink).
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	r := Result{Name: c.Name, OK: true, Path: path}
	if len(c.VersionArgs) > 0 {
		r.Version = probeVersion(ctx, c.Tool, c.VersionArgs)
	}
	return r
}

// Runs the tool's version command and returns the first output line.
//
// Failures are not fatal: the tool exists, it just would not report a
// version (some print to stderr, some exit non-zero).
func probeVersion(ctx context.Context, tool string, args []string) string {
	res, err := host.Command{Name: tool, Args: args}.RunUnchecked(ctx)
	if err != nil {
		return ""
	}
	if lines := res.Lines(); len(lines) > 0 {
		return lines[0]
	}
	return ""
}

// Probes for a listening containerd socket.
func socketProbe(socket string) func(ctx context.Context) (string, error) {
	return func(_ context.Context) (string, error) {
		info, err := os.Stat(socket)
		if err != nil {
			return "", err
		}
		if info.Mode()&os.ModeSocket == 0 {
			return "", fmt.Errorf("%s is not a socket", socket)
		}
		return socket, nil
	}
}

// Probes for an executable bundletool wrapper and asks it for its version.
func wrapperProbe(wrapper string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		tool := &bundletool.Tool{Wrapper: wrapper}
		if err := tool.Check(); err != nil {
			return "", err
		}
		version, err := tool.Version(ctx)
		if err != nil || version == "" {
			// The wrapper is in place even when java cannot run it yet.
			return wrapper, nil
		}
		return version, nil
	}
}

// Formats a result as a single report line without color.
func (r Result) String() string {
	status := "ok"
	if !r.OK {
		status = "missing"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", r.Name, status)
	if r.Version != "" {
		fmt.Fprintf(&b, " (%s)", r.Version)
	}
	return b.String()
}

package host

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

var (
	ErrCommandFailed = errors.New("command failed")
	ErrMissingTool   = errors.New("missing host dependency")
)

// A host command to run outside any container.
//
// Output handling mirrors the workflow's interactive use: stdout and stderr
// are merged, streamed line by line to the Stream writer as they arrive, and
// captured for callers that need to parse them.
type Command struct {
	Name   string    // Executable name or path.
	Args   []string  // Arguments, not including the executable.
	Dir    string    // Working directory; empty means inherit.
	Stream io.Writer // Destination for live output; nil discards.
}

// Result of a completed host command.
type Result struct {
	ExitCode int    // Exit code of the process.
	Output   string // Merged stdout and stderr.
}

// Runs the command and fails on a non-zero exit code.
//
// The merged output is streamed and captured either way; on failure the exit
// code is folded into the returned error.
func (c Command) Run(ctx context.Context) (*Result, error) {
	res, err := c.run(ctx)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%w: %s exited with code %d", ErrCommandFailed, c.Name, res.ExitCode)
	}
	return res, nil
}

// Runs the command, treating any exit code as success.
//
// Used for probes such as "adb devices" where the caller inspects the
// output regardless of the exit status.
func (c Command) RunUnchecked(ctx context.Context) (*Result, error) {
	return c.run(ctx)
}

func (c Command) run(ctx context.Context) (*Result, error) {
	slog.Debug("exec", "command", c.String(), "dir", c.Dir)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	var captured bytes.Buffer
	out := io.Writer(&captured)
	if c.Stream != nil {
		out = io.MultiWriter(&captured, c.Stream)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			if errors.Is(err, exec.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrMissingTool, c.Name)
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrCommandFailed, c.Name, err)
		}
		return &Result{ExitCode: exitErr.ExitCode(), Output: captured.String()}, nil
	}

	return &Result{ExitCode: 0, Output: captured.String()}, nil
}

// Returns the command line as it would be typed in a shell.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Returns the non-empty lines of the result output.
func (r *Result) Lines() []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(r.Output))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Reports whether the named tool is on PATH, returning its resolved path.
func Which(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}

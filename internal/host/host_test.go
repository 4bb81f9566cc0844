package host

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRunCapturesAndStreams(t *testing.T) {
	var stream bytes.Buffer
	cmd := Command{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}, Stream: &stream}

	res, err := cmd.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d, want 0", res.ExitCode)
	}
	for _, want := range []string{"out", "err"} {
		if !strings.Contains(res.Output, want) {
			t.Errorf("captured output %q missing %q", res.Output, want)
		}
		if !strings.Contains(stream.String(), want) {
			t.Errorf("streamed output %q missing %q", stream.String(), want)
		}
	}
}

func TestRunNonZeroExitIsError(t *testing.T) {
	cmd := Command{Name: "sh", Args: []string{"-c", "exit 3"}}

	if _, err := cmd.Run(context.Background()); !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("err = %v, want ErrCommandFailed", err)
	}
}

func TestRunUncheckedReturnsExitCode(t *testing.T) {
	cmd := Command{Name: "sh", Args: []string{"-c", "exit 3"}}

	res, err := cmd.RunUnchecked(context.Background())
	if err != nil {
		t.Fatalf("RunUnchecked: %v", err)
	}
	if res.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", res.ExitCode)
	}
}

func TestRunMissingTool(t *testing.T) {
	cmd := Command{Name: "definitely-not-a-real-tool-xyz"}

	if _, err := cmd.Run(context.Background()); !errors.Is(err, ErrMissingTool) {
		t.Fatalf("err = %v, want ErrMissingTool", err)
	}
}

func TestRunWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	cmd := Command{Name: "pwd", Dir: dir}

	res, err := cmd.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(res.Output); got != dir {
		t.Fatalf("pwd = %q, want %q", got, dir)
	}
}

func TestLines(t *testing.T) {
	res := &Result{Output: "first\n\n  second  \n\n"}
	got := res.Lines()
	want := []string{"first", "second"}
	if len(got) != len(want) {
		t.Fatalf("Lines = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Lines[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestString(t *testing.T) {
	cmd := Command{Name: "git", Args: []string{"clone", "--depth", "1"}}
	if got := cmd.String(); got != "git clone --depth 1" {
		t.Fatalf("String = %q", got)
	}
}

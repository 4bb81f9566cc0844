package bundletool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/buildproof/reprodroid/internal/host"
)

var ErrNotInstalled = errors.New("bundletool not installed")

// A downloaded bundletool installation invoked through its wrapper script.
type Tool struct {
	Wrapper string    // Path of the executable wrapper script.
	Stream  io.Writer // Destination for streamed output; nil discards.
}

// Verifies that the wrapper exists and is executable.
func (t *Tool) Check() error {
	info, err := os.Stat(t.Wrapper)
	if err != nil {
		return fmt.Errorf("%w: %s (run the bundletool subcommand first)", ErrNotInstalled, t.Wrapper)
	}
	if info.Mode()&0111 == 0 {
		return fmt.Errorf("%w: %s is not executable", ErrNotInstalled, t.Wrapper)
	}
	return nil
}

// Generates device-targeted split APKs from a bundle.
//
// With bundletool's --connected-device flag the splits match exactly what
// the attached device would be served from the store, which is what the
// device pull on the other side of the comparison contains. Output is a
// directory tree with the APKs under splits/.
func (t *Tool) BuildDeviceSplits(ctx context.Context, bundle, outputDir string) error {
	return t.run(ctx, "", "build-apks",
		"--bundle="+bundle,
		"--output-format=DIRECTORY",
		"--output="+outputDir,
		"--connected-device",
	)
}

// Generates the full .apks archive (every split) from a bundle.
func (t *Tool) BuildAllSplits(ctx context.Context, bundle, outputApks string) error {
	return t.run(ctx, "", "build-apks",
		"--bundle="+bundle,
		"--output="+outputApks,
	)
}

// Returns the installed bundletool version.
func (t *Tool) Version(ctx context.Context) (string, error) {
	res, err := host.Command{Name: t.Wrapper, Args: []string{"version"}}.Run(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Output), nil
}

func (t *Tool) run(ctx context.Context, dir string, args ...string) error {
	if err := t.Check(); err != nil {
		return err
	}

	_, err := host.Command{
		Name:   t.Wrapper,
		Args:   args,
		Dir:    dir,
		Stream: t.Stream,
	}.Run(ctx)
	return err
}

package cli

import (
	"context"
	"os"

	"github.com/buildproof/reprodroid/internal/paths"
	"github.com/buildproof/reprodroid/internal/striplog"
)

// Represents the 'reprodroid strip-log' command.
type StripLogCmd struct {
	File   string `arg:"" help:"Build log to strip." type:"existingfile"`
	Output string `short:"o" help:"Write the stripped log here instead of stdout." placeholder:"PATH" type:"path"`
}

// Executes the strip-log command.
//
// Removes timestamps, transfer rates, and progress bars from a build log
// so two logs of the same build can be diffed.
func (c *StripLogCmd) Run(ctx context.Context) error {
	in, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer in.Close()

	if c.Output == "" {
		return striplog.Strip(os.Stdout, in)
	}

	out, err := os.OpenFile(c.Output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return err
	}
	if err := striplog.Strip(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

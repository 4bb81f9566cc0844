package cli

import (
	"context"

	"github.com/buildproof/reprodroid/internal/deps"
	"github.com/buildproof/reprodroid/internal/paths"
)

// Represents the 'reprodroid deps' command.
type DepsCmd struct{}

// Executes the deps command.
//
// Probes every host tool the verification workflow invokes and reports
// each one. All checks run even when some fail, so the operator sees the
// complete picture in one pass.
func (c *DepsCmd) Run(ctx context.Context) error {
	ws := workspace()

	results, err := deps.Run(ctx, deps.Standard(paths.ContainerdSocket(), ws.BundletoolWrapper()))
	for _, r := range results {
		if r.OK {
			printSuccess("%s", r.String())
			if r.Path != "" {
				printDim("%s", r.Path)
			}
		} else {
			printFailure("%s", r.String())
		}
	}
	return err
}

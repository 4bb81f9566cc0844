package cli

import (
	"context"

	"github.com/buildproof/reprodroid/internal/bundletool"
)

// Represents the 'reprodroid bundletool' command.
type BundletoolCmd struct{}

// Executes the bundletool command.
//
// Downloads the latest bundletool jar from GitHub into the workspace and
// writes an executable wrapper script next to it. Other subcommands invoke
// bundletool through that wrapper.
func (c *BundletoolCmd) Run(ctx context.Context) error {
	ws := workspace()
	if err := ws.Ensure(); err != nil {
		return err
	}

	d := &bundletool.Downloader{}
	tag, err := d.Fetch(ctx, ws.BundletoolJar(), ws.BundletoolWrapper())
	if err != nil {
		return err
	}

	printSuccess("bundletool %s installed", tag)
	printDim("%s", ws.BundletoolWrapper())
	return nil
}

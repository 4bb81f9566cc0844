package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/buildproof/reprodroid/internal/apk"
	"github.com/buildproof/reprodroid/internal/bundletool"
	"github.com/buildproof/reprodroid/internal/paths"
)

// Represents the 'reprodroid splits' command.
type SplitsCmd struct {
	Bundle string `arg:"" help:"Android App Bundle (.aab) to split." type:"existingfile"`
	Out    string `short:"o" help:"Directory to extract the APKs into." default:"." type:"path"`
	Keep   bool   `help:"Keep the intermediate .apks archive."`
}

// Executes the splits command.
//
// Generates every per-configuration APK from the bundle and extracts them
// into the output directory, printing each one with its size and hash.
func (c *SplitsCmd) Run(ctx context.Context) error {
	tool := &bundletool.Tool{Wrapper: workspace().BundletoolWrapper(), Stream: stream()}
	if err := tool.Check(); err != nil {
		return err
	}

	if err := os.MkdirAll(c.Out, paths.DefaultDirMode); err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(c.Bundle), filepath.Ext(c.Bundle))
	archive := filepath.Join(c.Out, base+".apks")
	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		return err
	}

	if err := tool.BuildAllSplits(ctx, c.Bundle, archive); err != nil {
		return err
	}

	splits, err := apk.ExtractSplits(archive, c.Out)
	if err != nil {
		return err
	}

	if !c.Keep {
		if err := os.Remove(archive); err != nil {
			return err
		}
	}

	for _, s := range splits {
		fmt.Printf("%s\n", s.Name)
		printDim("%d bytes  sha256 %s", s.Size, s.SHA256)
	}
	printSuccess("%d APKs extracted to %s", len(splits), c.Out)
	return nil
}

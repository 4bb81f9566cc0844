package cli

import "github.com/fatih/color"

// Colors degrade to plain text automatically when stdout is not a TTY.
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

func printSuccess(format string, args ...any) {
	_, _ = successColor.Printf("✓ "+format+"\n", args...)
}

func printFailure(format string, args ...any) {
	_, _ = errorColor.Printf("✗ "+format+"\n", args...)
}

func printDim(format string, args ...any) {
	_, _ = dimColor.Printf("  "+format+"\n", args...)
}

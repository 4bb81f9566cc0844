package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/buildproof/reprodroid/internal"
	"github.com/buildproof/reprodroid/internal/config"
	"github.com/buildproof/reprodroid/internal/paths"
)

// Represents the root command for the reprodroid CLI.
var RootCmd struct {
	Quiet     bool   `short:"q" help:"Suppress informational output."`
	Verbose   bool   `short:"v" help:"Enable verbose output."`
	Debug     bool   `short:"d" help:"Enable debug output."`
	Workspace string `short:"w" help:"Override the default workspace directory." placeholder:"DIR"`
	Config    string `short:"c" help:"Target description file." placeholder:"PATH"`

	Verify     VerifyCmd     `cmd:"" help:"Build a release from source and compare it against official APKs."`
	Clean      CleanCmd      `cmd:"" help:"Remove the state left behind by previous runs."`
	Deps       DepsCmd       `cmd:"" help:"Check that the host has every required tool."`
	Bundletool BundletoolCmd `cmd:"" help:"Download the latest bundletool release into the workspace."`
	Splits     SplitsCmd     `cmd:"" help:"Extract the per-configuration APKs from a bundle."`
	StripLog   StripLogCmd   `cmd:"" name:"strip-log" help:"Remove timestamps and transfer rates from a build log."`
	Version    VersionCmd    `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Verifies that an Android release can be reproduced from its source.\n\nBuilds the tagged source in a container and compares the resulting APKs against the official artifacts."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	verbose := RootCmd.Verbose || internal.IsVerbose()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelWarn
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	})))
}

// Returns the workspace selected by flags, or the default one.
func workspace() paths.Workspace {
	if RootCmd.Workspace != "" {
		return paths.At(RootCmd.Workspace)
	}
	return paths.Default()
}

// Returns the target description selected by flags, or the built-in one.
func target() (config.Target, error) {
	if RootCmd.Config != "" {
		return config.Load(RootCmd.Config)
	}
	return config.Default(), nil
}

// Destination for live output of external tools.
func stream() io.Writer {
	if RootCmd.Quiet || internal.IsQuiet() {
		return io.Discard
	}
	return os.Stdout
}

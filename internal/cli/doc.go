// Parses flags and dispatches the reprodroid subcommands.
//
// Every subcommand accepts the following flags:
//
//	-q, --quiet       Suppress informational output.
//	-v, --verbose     Enable verbose output.
//	-d, --debug       Enable debug output.
//	-w, --workspace   Workspace directory.
//	-c, --config      Target description file.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level before the selected
// subcommand runs.
package cli

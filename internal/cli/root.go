package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/qiboteam/qibo-docker/internal"
)

// Represents the root command for qibo-release.
var RootCmd struct {
	Quiet   bool   `short:"q" help:"Suppress informational output."`
	Verbose bool   `short:"v" help:"Enable verbose output."`
	Debug   bool   `short:"d" help:"Enable debug output."`
	Config  string `short:"c" help:"Pipeline file. Defaults to the built-in qibo pipeline." type:"existingfile" placeholder:"FILE"`
	RunID   string `help:"Run identifier shared by the jobs of one run. Generated when empty." env:"GITHUB_RUN_ID" placeholder:"ID"`

	Plan          PlanCmd          `cmd:"" help:"Print the build matrix as GitHub Actions matrix JSON."`
	VersionString VersionStringCmd `cmd:"" name:"version-string" help:"Print the version string derived from the trigger event."`
	Cell          CellCmd          `cmd:"" help:"Build one matrix cell and publish it when eligible."`
	Image         ImageCmd         `cmd:"" help:"Build, tag and push the container image."`
	Run           RunCmd           `cmd:"" help:"Run the whole release pipeline locally."`
	Version       VersionCmd       `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Release pipeline for the qibo container image.\n\nBuilds the package across the OS and runtime matrix, publishes it from the canonical cell on a published release, then builds, tags and pushes the image."),
		kong.UsageOnError(),
		kong.Vars{
			"version":              internal.VersionString(),
			"containerd_address":   DefaultContainerdAddress,
			"containerd_namespace": DefaultContainerdNamespace,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
//
// -d wins over -v, which wins over -q. Without flags the mode set at build
// time stays.
func configureLogger() {
	logger, ok := slog.Default().Handler().(*log.Logger)
	if !ok {
		return // Not a charmbracelet logger, nothing to configure
	}

	mode := flagLogMode(internal.CurrentLogMode())
	internal.SetLogMode(mode)

	logger.SetLevel(LogLevel(mode))
	logger.SetReportTimestamp(mode >= internal.LogVerbose)
	logger.SetReportCaller(mode >= internal.LogVerbose)
}

// Returns the mode selected by the -q/-v/-d flags over base.
func flagLogMode(base internal.LogMode) internal.LogMode {
	switch {
	case RootCmd.Debug:
		return internal.LogDebug
	case RootCmd.Verbose:
		return max(base, internal.LogVerbose)
	case RootCmd.Quiet:
		return internal.LogQuiet
	}
	return base
}

// Returns the logger level for a log mode.
func LogLevel(mode internal.LogMode) log.Level {
	switch mode {
	case internal.LogQuiet:
		return log.WarnLevel
	case internal.LogDebug:
		return log.DebugLevel
	}
	return log.InfoLevel
}

// Parses flags, configures logging and wires the release pipeline for the
// qibo-release command.
//
// Global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	-c, --config    Pipeline file. Defaults to the built-in qibo pipeline.
//	    --run-id    Run identifier shared by the jobs of one run.
//
// Commands:
//
//	plan            Print the matrix as GitHub Actions matrix JSON.
//	version-string  Print the version string for the trigger event.
//	cell            Build one cell; publish it when eligible.
//	image           Build, tag and push the image.
//	run             Run the whole pipeline locally.
//	version         Show version information.
//
// The trigger event, registry credential and package index token are read
// from flags or, in GitHub Actions, from the environment. An external
// orchestrator runs "plan" once, "cell" once per matrix entry and "image"
// after all cells; "run" does the same in a single process.
//
// The -q/-v/-d flags override the log mode set at build time. After parsing,
// the global logger is reconfigured to reflect the final mode.
package cli

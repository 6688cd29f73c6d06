// Package cmd holds the CLI surface of the gateway: serve, status, and
// version subcommands on a cobra root.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command; invoking the binary without a subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "mcp-gateway",
	Short: "Aggregate many MCP backends behind one endpoint",
	Long: `mcp-gateway fronts a single MCP endpoint that multiplexes many upstream
MCP backends (streamable HTTP or child-process stdio), routing each tool call
to the correct backend by name pattern and applying an ordered middleware
chain (filtering, caching, transformation).

It also records per-call analytics (counts, error rates, latency
percentiles) and streams event batches to a configurable exporter.`,
	SilenceUsage: true,
}

// SetVersion injects the build version; called from main.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcp-gateway version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

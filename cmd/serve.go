package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-gateway/internal/app"
	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

var (
	serveConfigPath string
	serveDebug      bool
	serveWatch      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway and analytics collector",
	Long: `Starts the aggregating gateway: connects every configured backend,
merges their tool lists, and serves the combined set over streamable HTTP
on the configured listen address. The analytics collector runs alongside
and flushes tool-call events to the configured exporter.

With --watch, routing and middleware changes in the config file are applied
to the running gateway without a restart. Backend connections are never
replaced live.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}

	application, err := app.NewApplication(serveConfigPath, level, serveWatch)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveConfigPath, "config", "config.yaml", "Path to the gateway configuration file")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload routing and middleware on config file changes")
}

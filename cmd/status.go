package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-gateway/internal/app"
	"github.com/giantswarm/mcp-gateway/internal/gatewayconfig"
	"github.com/giantswarm/mcp-gateway/pkg/logging"
)

var (
	statusConfigPath string
	statusTimeout    time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect to the configured backends and show their tool inventory",
	Long: `Loads the gateway configuration, connects to every configured backend,
and prints each backend's connection state and share of the aggregated tool
index, followed by the routing table. Backends that fail to connect are
reported as disconnected rather than aborting the whole status check.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	logging.Init(logging.LevelWarn, cmd.ErrOrStderr())

	cfg, err := gatewayconfig.Load(statusConfigPath)
	if err != nil {
		return err
	}

	gateway, err := app.BuildGateway(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = gateway.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	// A partial connect still yields a useful status: GetBackends reports
	// the failed ones as disconnected. The tool index is only refreshed when
	// every backend connects, so after a failure every backend shows zero
	// tools.
	if err := gateway.Connect(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	backends := table.NewWriter()
	backends.SetOutputMirror(cmd.OutOrStdout())
	backends.SetStyle(table.StyleRounded)
	backends.AppendHeader(table.Row{"Backend", "Kind", "Target", "Connected", "Tools"})
	for _, b := range gateway.GetBackends() {
		kind, target := "http", b.Config.URL
		if b.Config.Command != "" {
			kind, target = "stdio", b.Config.Command
		}
		backends.AppendRow(table.Row{b.Name, kind, target, b.Connected, b.ToolCount})
	}
	backends.Render()

	routes := table.NewWriter()
	routes.SetOutputMirror(cmd.OutOrStdout())
	routes.SetStyle(table.StyleRounded)
	routes.AppendHeader(table.Row{"#", "Pattern", "Server"})
	for i, rule := range gateway.Router().Rules() {
		routes.AppendRow(table.Row{i, rule.Pattern, rule.Server})
	}
	routes.Render()

	return nil
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusConfigPath, "config", "config.yaml", "Path to the gateway configuration file")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 15*time.Second, "Overall timeout for connecting to backends")
}

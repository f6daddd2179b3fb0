package main

import (
	"context"

	"github.com/felixgeelhaar/forkadmin/internal/app"
	mcptools "github.com/felixgeelhaar/forkadmin/internal/mcp"
	"github.com/felixgeelhaar/mcp-go"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agent integration",
	Long: `Start a Model Context Protocol (MCP) server for AI agent integration.

Available tools:
  - forkadmin_cronjob_run       Run a module cronjob
  - forkadmin_cronjob_history   List recent cronjob runs
  - forkadmin_analytics_status  Show the analytics linking state
  - forkadmin_analytics_reset   Remove the analytics link
  - forkadmin_status            Version, modules and languages

Examples:
  forkadmin mcp                     # Start stdio MCP server
  forkadmin mcp --http :8080        # Start HTTP MCP server
  forkadmin mcp --config path.yaml  # Use specific config file`,
	RunE: runMCP,
}

var mcpHTTP string

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().StringVar(&mcpHTTP, "http", "", "Start HTTP server on address (e.g., :8080)")
}

func runMCP(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, forkadmin *app.App) error {
		srv := newMCPServer(forkadmin)

		// Serve based on transport
		if mcpHTTP != "" {
			return mcp.ServeHTTP(ctx, srv, mcpHTTP)
		}

		// Default to stdio
		return mcp.ServeStdio(ctx, srv)
	})
}

func newMCPServer(forkadmin *app.App) *mcp.Server {
	srv := mcp.NewServer(mcp.ServerInfo{
		Name:    "forkadmin",
		Version: version,
	})
	mcptools.RegisterAll(srv, forkadmin, mcptools.VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	})
	return srv
}

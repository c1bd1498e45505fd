package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/effortqa/internal/adapters/driving/mcp"
)

var (
	mcpAddr          string
	mcpWithScheduler bool
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the effort tools to MCP clients",
	Long: `Serve effortqa to AI assistants over the Model Context Protocol.

Tools:      ask_effort, submit_feedback, aggregate_project, effort_stats
Resources:  effortqa://taxonomy
            effortqa://records/{ticketId}
            effortqa://projects/{keyword}

JSON-RPC runs over stdio unless --addr is given, in which case a streamable
HTTP endpoint is served at / with a liveness probe at /healthz.

Client configuration for stdio:

  {"mcpServers": {"effortqa": {"command": "effortqa", "args": ["mcp", "serve"]}}}`,
	Example: `  effortqa mcp serve
  effortqa mcp serve --addr :8080 --with-scheduler`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpAddr, "addr", "", "serve streamable HTTP on this address instead of stdio")
	mcpServeCmd.Flags().BoolVar(&mcpWithScheduler, "with-scheduler", false, "run enabled scheduled tasks while serving")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func mcpPorts() *mcp.Ports {
	return &mcp.Ports{
		Resolver: resolver,
		Feedback: feedbackService,
		Epics:    epicAggregator,
		Efforts:  effortService,
		Stats:    statsService,
		Taxonomy: taxonomyService,
	}
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := mcp.NewServer(mcpPorts(), version)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx)
	if mcpWithScheduler {
		defer backgroundScheduler(ctx)()
	}

	if mcpAddr == "" {
		err = server.Run(ctx)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on %s\n", mcpAddr)
		err = server.RunHTTP(ctx, mcpAddr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

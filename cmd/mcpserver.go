package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"specctl/internal/harness"
	"specctl/internal/mcpserver"
	"specctl/pkg/logging"
)

// serveStdio is replaced in tests.
var serveStdio = func(ctx context.Context, s *mcpserver.Server) error {
	return s.ServeStdio(ctx)
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the test classes as MCP tools over stdio",
		Long: `Run an MCP server on stdin and stdout so AI assistants can list and run
the test classes.

Tools:
  spec_list_classes - List the classes, their methods and markers
  spec_run          - Run classes and return the suite result as JSON

Configure it in your assistant's MCP settings as a stdio server with the
command "specctl mcp". Logs go to stderr.`,
		RunE: runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := loadedConfig
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := newSuite(ctx, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to set up environment: %w", err)
	}
	defer func() {
		if err := s.cache.Close(); err != nil {
			logging.Error("MCPServer", err, "Failed to close managed contexts")
		}
	}()

	server := mcpserver.New(mcpserver.Config{
		Name:    "specctl",
		Version: rootCmd.Version,
		Classes: catalog,
		NewHarness: func() *harness.Harness {
			return s.harness(harness.NewQuietReporter(io.Discard))
		},
		Defaults: harness.Configuration{
			Parallel: cfg.Run.Parallel,
			FailFast: cfg.Run.FailFast,
			Filter:   cfg.Run.ClassFilter,
		},
	})

	logging.Info("MCPServer", "Starting specctl MCP server (stdio transport)...")
	if err := serveStdio(ctx, server); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

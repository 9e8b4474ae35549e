// Package mcpserver exposes the test classes of specctl as MCP tools over
// stdio, so an agent can list and run them.
package mcpserver

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"specctl/internal/descriptor"
	"specctl/internal/harness"
	"specctl/pkg/logging"
)

// For replacing the transport in tests
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

// Tool names.
const (
	ToolListClasses = "spec_list_classes"
	ToolRun         = "spec_run"
)

// Config wires the server to the classes it serves.
type Config struct {
	Name    string
	Version string

	// Classes returns fresh descriptors for every call.
	Classes func() []*descriptor.Class
	// NewHarness creates the harness a spec_run call uses. Its reporter must
	// not write to stdout, which carries the MCP transport.
	NewHarness func() *harness.Harness
	// Defaults apply to arguments a spec_run call leaves out.
	Defaults harness.Configuration
}

// Server serves the specctl tools.
type Server struct {
	config Config
	mcp    *server.MCPServer
}

// New creates the server and registers its tools.
func New(cfg Config) *Server {
	if cfg.Name == "" {
		cfg.Name = "specctl"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		config: cfg,
		mcp: server.NewMCPServer(
			cfg.Name,
			cfg.Version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool(ToolListClasses,
		mcp.WithDescription("List the test classes specctl can run, with their methods and markers"),
		mcp.WithString("filter",
			mcp.Description("Regular expression matched against class names"),
		),
	), s.handleListClasses)

	s.mcp.AddTool(mcp.NewTool(ToolRun,
		mcp.WithDescription("Run test classes and return the suite result as JSON"),
		mcp.WithString("filter",
			mcp.Description("Regular expression matched against class names"),
		),
		mcp.WithNumber("parallel",
			mcp.Description("Number of classes run at once"),
		),
		mcp.WithBoolean("failFast",
			mcp.Description("Stop starting classes after the first failed one"),
		),
	), s.handleRun)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio blocks serving requests on stdin and stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	logging.Info("MCPServer", "Serving %s %s on stdio", s.config.Name, s.config.Version)
	return server.NewStdioServer(s.mcp).Listen(ctx, stdin, stdout)
}

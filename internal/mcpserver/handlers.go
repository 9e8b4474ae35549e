package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"specctl/internal/descriptor"
	"specctl/internal/harness"
	"specctl/pkg/logging"
)

// ClassInfo describes a class in the spec_list_classes result.
type ClassInfo struct {
	Name        string       `json:"name"`
	Ignored     bool         `json:"ignored,omitempty"`
	Environment string       `json:"environment,omitempty"`
	Modules     []string     `json:"modules,omitempty"`
	Methods     []MethodInfo `json:"methods"`
}

// MethodInfo describes a method in the spec_list_classes result.
type MethodInfo struct {
	Name          string `json:"name"`
	Ignored       bool   `json:"ignored,omitempty"`
	Environment   string `json:"environment,omitempty"`
	ExpectedError string `json:"expectedError,omitempty"`
}

// Describe converts class descriptors to their listing.
func Describe(classes []*descriptor.Class) []ClassInfo {
	out := make([]ClassInfo, 0, len(classes))
	for _, c := range classes {
		if c == nil {
			continue
		}
		info := ClassInfo{
			Name:    c.Name,
			Ignored: c.Ignored,
			Modules: c.Context.Modules,
			Methods: make([]MethodInfo, 0, len(c.Methods)),
		}
		if c.Environment != nil {
			info.Environment = c.Environment.String()
		}
		for _, m := range c.Methods {
			if m == nil {
				continue
			}
			mi := MethodInfo{Name: m.Name, Ignored: m.Ignored}
			if m.Environment != nil {
				mi.Environment = m.Environment.String()
			}
			if m.Expected != nil {
				mi.ExpectedError = m.Expected.Name
			}
			info.Methods = append(info.Methods, mi)
		}
		out = append(out, info)
	}
	return out
}

// handleListClasses handles the spec_list_classes MCP tool
func (s *Server) handleListClasses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := stringArg(request, "filter")
	classes, err := harness.Select(s.config.Classes(), filter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(classes) == 0 {
		return mcp.NewToolResultText("No test classes available"), nil
	}

	jsonData, err := json.MarshalIndent(Describe(classes), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format classes: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// handleRun handles the spec_run MCP tool
func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	config := s.config.Defaults
	args := request.GetArguments()

	if v, ok := args["filter"].(string); ok {
		config.Filter = v
	}
	if v, ok := args["parallel"].(float64); ok {
		if v < 0 {
			return mcp.NewToolResultError("parallel must not be negative"), nil
		}
		config.Parallel = int(v)
	}
	if v, ok := args["failFast"].(bool); ok {
		config.FailFast = v
	}

	logging.Info("MCPServer", "Running test classes (filter=%q, parallel=%d)", config.Filter, config.Parallel)
	result, err := s.config.NewHarness().Run(ctx, config, s.config.Classes())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to run tests: %v", err)), nil
	}

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format results: %v", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(result.Summary()),
			mcp.NewTextContent(string(jsonData)),
		},
		IsError: !result.Succeeded(),
	}, nil
}

func stringArg(request mcp.CallToolRequest, name string) string {
	v, _ := request.GetArguments()[name].(string)
	return v
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specctl/internal/config"
	"specctl/internal/contextmgr"
	"specctl/internal/demo"
	"specctl/internal/descriptor"
	"specctl/internal/harness"
	"specctl/internal/mcpserver"
)

// withSuiteState restores the catalog and the package-level hooks after a test.
func withSuiteState(t *testing.T) {
	t.Helper()
	origCatalog, origRegistry := catalog, registry
	origCfg, origClipboard, origServe := loadedConfig, clipboardWriteAll, serveStdio
	t.Cleanup(func() {
		catalog, registry = origCatalog, origRegistry
		loadedConfig, clipboardWriteAll, serveStdio = origCfg, origClipboard, origServe
	})
	loadedConfig = config.GetDefaultConfig()
	catalog, registry = demo.Classes, demo.NewRegistry
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c := newRunCmd()
	c.SetOut(&out)
	c.SetErr(&errOut)
	c.SetArgs(args)
	err := c.ExecuteContext(context.Background())
	return out.String(), err
}

func brokenCatalog() []*descriptor.Class {
	return []*descriptor.Class{{
		Name: "BrokenSpec",
		New:  func() (any, error) { return &struct{}{}, nil },
		Methods: []*descriptor.Method{{
			Name: "boom",
			Body: func(any) error { return errors.New("kaput") },
		}},
	}}
}

func TestRun_DemoPassesOnLinux(t *testing.T) {
	withSuiteState(t)

	out, err := runCommand(t, "--env-source", "static", "--profile", "go.os=linux", "-o", "quiet")
	require.NoError(t, err)
	assert.Equal(t, "✅ All 5 tests passed\n", out)
}

func TestRun_ConfigWithoutFlags(t *testing.T) {
	withSuiteState(t)
	loadedConfig.Environment.Source = config.SourceStatic
	loadedConfig.Environment.Profile = map[string]string{"go.os": "linux"}
	loadedConfig.Run.Output = config.OutputQuiet

	out, err := runCommand(t)
	require.NoError(t, err)
	assert.Equal(t, "✅ All 5 tests passed\n", out)
}

func TestRun_JSONOutputAndReport(t *testing.T) {
	withSuiteState(t)
	reports := t.TempDir()

	out, err := runCommand(t,
		"--env-source", "static", "--profile", "go.os=linux",
		"-o", "json", "--report-path", reports, "--parallel", "2")
	require.NoError(t, err)

	var result harness.SuiteResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.TotalClasses)
	assert.Equal(t, 6, result.TotalTests)
	assert.Equal(t, 5, result.PassedTests)
	assert.Equal(t, 1, result.IgnoredTests)
	assert.Equal(t, 2, result.Configuration.Parallel)

	files, err := filepath.Glob(filepath.Join(reports, "specctl-report-*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRun_FailingClass(t *testing.T) {
	withSuiteState(t)
	catalog = brokenCatalog
	registry = contextmgr.NewRegistry

	out, err := runCommand(t, "--env-source", "static", "-o", "quiet")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTestsFailed)
	assert.Contains(t, out, "BrokenSpec: boom: kaput")
	assert.Contains(t, out, "1/1 tests failed")
}

func TestRun_Filter(t *testing.T) {
	withSuiteState(t)

	out, err := runCommand(t, "--env-source", "static", "--profile", "go.os=linux",
		"-o", "json", "--filter", "^Application")
	require.NoError(t, err)

	var result harness.SuiteResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.TotalClasses)
	assert.Equal(t, "^Application", result.Configuration.Filter)

	_, err = runCommand(t, "--env-source", "static", "--filter", "(")
	assert.Error(t, err)
}

func TestRun_MetricsTextfile(t *testing.T) {
	withSuiteState(t)
	path := filepath.Join(t.TempDir(), "specctl.prom")

	_, err := runCommand(t, "--env-source", "static", "--profile", "go.os=linux",
		"-o", "quiet", "--metrics-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "specctl_tests_total")
	assert.Contains(t, string(data), "specctl_test_duration_seconds")
}

func TestRun_CopySummary(t *testing.T) {
	withSuiteState(t)

	var copied string
	clipboardWriteAll = func(text string) error {
		copied = text
		return nil
	}

	_, err := runCommand(t, "--env-source", "static", "--profile", "go.os=linux",
		"-o", "quiet", "--copy-summary")
	require.NoError(t, err)
	assert.Contains(t, copied, "5/6 tests passed")
}

func TestRun_InvalidConfiguration(t *testing.T) {
	withSuiteState(t)

	_, err := runCommand(t, "--env-source", "carrier-pigeon")
	assert.ErrorContains(t, err, `unknown environment source "carrier-pigeon"`)

	_, err = runCommand(t, "--parallel=-1")
	assert.ErrorContains(t, err, "must not be negative")
}

func TestRun_VerboseConsole(t *testing.T) {
	withSuiteState(t)

	out, err := runCommand(t, "--env-source", "static", "--profile", "go.os=linux", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "GreetingSpec.helloWorld")
	assert.Contains(t, out, "ApplicationContextSpec")
}

func TestList(t *testing.T) {
	withSuiteState(t)

	list := func(args ...string) string {
		var out bytes.Buffer
		c := newListCmd()
		c.SetOut(&out)
		c.SetArgs(args)
		require.NoError(t, c.Execute())
		return out.String()
	}

	out := list()
	assert.Contains(t, out, "ApplicationContextSpec (context application)\n  contextLoads\n")
	assert.Contains(t, out, "GreetingSpec (context application)\n")
	assert.Contains(t, out, "farewell")
	assert.Contains(t, out, "ignored")
	assert.Contains(t, out, "when go.os in [linux]")
	assert.Contains(t, out, "expects "+demo.ErrMissingName.Error())

	assert.Equal(t, "No test classes found\n", list("--filter", "^Nothing"))

	var described []mcpserver.ClassInfo
	require.NoError(t, json.Unmarshal([]byte(list("--json", "--filter", "^Greeting")), &described))
	require.Len(t, described, 1)
	assert.Equal(t, demo.GreetingSpec, described[0].Name)
}

func TestCompleteClassNames(t *testing.T) {
	withSuiteState(t)

	names, _ := completeClassNames(nil, nil, "Gre")
	assert.Equal(t, []string{demo.GreetingSpec}, names)
}

func TestMCP(t *testing.T) {
	withSuiteState(t)
	loadedConfig.Environment.Source = config.SourceStatic

	var served *mcpserver.Server
	serveStdio = func(ctx context.Context, s *mcpserver.Server) error {
		served = s
		return nil
	}

	c := newMCPCmd()
	c.SetArgs(nil)
	require.NoError(t, c.ExecuteContext(context.Background()))
	require.NotNil(t, served)
	assert.NotNil(t, served.MCPServer())

	serveStdio = func(context.Context, *mcpserver.Server) error {
		return errors.New("stdin closed")
	}
	c = newMCPCmd()
	c.SetArgs(nil)
	err := c.ExecuteContext(context.Background())
	assert.EqualError(t, err, "MCP server error: stdin closed")
}

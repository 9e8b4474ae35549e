package cmd

import (
	"context"
	"io"

	"specctl/internal/config"
	"specctl/internal/contextmgr"
	"specctl/internal/demo"
	"specctl/internal/descriptor"
	"specctl/internal/envgate"
	"specctl/internal/harness"
	"specctl/internal/runner"
)

// Test classes and the modules they load. Replaced in tests.
var (
	catalog  = demo.Classes
	registry = demo.NewRegistry
)

// suite holds everything needed to run the catalog once.
type suite struct {
	classes []*descriptor.Class
	cache   *contextmgr.ContextCache
	factory contextmgr.Factory
	gate    *envgate.Gate
}

func newSuite(ctx context.Context, env config.EnvironmentConfig) (*suite, error) {
	src, err := config.BuildSource(ctx, env)
	if err != nil {
		return nil, err
	}
	cache := contextmgr.NewContextCache(registry())
	return &suite{
		classes: catalog(),
		cache:   cache,
		factory: contextmgr.NewFactory(cache),
		gate:    envgate.New(src),
	}, nil
}

func (s *suite) harness(reporter harness.Reporter, opts ...harness.Option) *harness.Harness {
	opts = append([]harness.Option{
		harness.WithContextCache(s.cache),
		harness.WithRunnerOptions(runner.WithGate(s.gate)),
	}, opts...)
	return harness.New(s.factory, reporter, opts...)
}

func newReporter(output string, out io.Writer, verbose bool, reportPath string) harness.Reporter {
	switch output {
	case config.OutputQuiet:
		return harness.NewQuietReporter(out)
	case config.OutputJSON:
		return harness.NewJSONReporter(out)
	default:
		return harness.NewConsoleReporter(out, verbose, reportPath)
	}
}

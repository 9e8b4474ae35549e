package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"specctl/internal/config"
	"specctl/internal/harness"
	"specctl/internal/notify"
	"specctl/internal/tui"
	"specctl/pkg/logging"
)

// For mocking in tests
var clipboardWriteAll = clipboard.WriteAll

type runOptions struct {
	parallel    int
	failFast    bool
	verbose     bool
	filter      string
	output      string
	reportPath  string
	envSource   string
	profile     map[string]string
	metricsFile string
	timeout     time.Duration
	tui         bool
	copySummary bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the test classes",
		Long: `Run validates every selected test class and runs its methods inside the
managed context lifecycle.

Settings come from the layered configuration; flags override them.

Example usage:
  specctl run                                  # Run all classes
  specctl run --filter '^Greeting'             # Run matching classes only
  specctl run --parallel 4 --fail-fast         # 4 classes at once, stop on first failure
  specctl run --env-source static --profile go.os=linux
  specctl run --output json --report-path ./reports
  specctl run --tui                            # Interactive progress view`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpecs(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.parallel, "parallel", 1, "Number of classes run at once")
	f.BoolVar(&opts.failFast, "fail-fast", false, "Stop starting classes after the first failed one")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Print every test as it finishes")
	f.StringVar(&opts.filter, "filter", "", "Regular expression matched against class names")
	f.StringVarP(&opts.output, "output", "o", config.OutputConsole, "Output format: console, quiet or json")
	f.StringVar(&opts.reportPath, "report-path", "", "Directory a detailed JSON report is written to")
	f.StringVar(&opts.envSource, "env-source", "", "Environment source: os, static, file or configmap")
	f.StringToStringVar(&opts.profile, "profile", nil, "Environment values consulted before the source, e.g. go.os=linux")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics of the run to this textfile")
	f.DurationVar(&opts.timeout, "timeout", 0, "Stop starting classes after this long (0 means no limit)")
	f.BoolVar(&opts.tui, "tui", false, "Show an interactive progress view")
	f.BoolVar(&opts.copySummary, "copy-summary", false, "Copy the one-line summary to the clipboard")

	_ = cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputConsole, config.OutputQuiet, config.OutputJSON}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("env-source", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{config.SourceOS, config.SourceStatic, config.SourceFile, config.SourceConfigMap}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("filter", completeClassNames)

	cmd.MarkFlagsMutuallyExclusive("tui", "output")
	return cmd
}

// apply overrides cfg with the flags the user set.
func (o *runOptions) apply(flags *pflag.FlagSet, cfg config.Config) config.Config {
	if flags.Changed("parallel") {
		cfg.Run.Parallel = o.parallel
	}
	if flags.Changed("fail-fast") {
		cfg.Run.FailFast = o.failFast
	}
	if flags.Changed("verbose") {
		cfg.Run.Verbose = o.verbose
	}
	if flags.Changed("filter") {
		cfg.Run.ClassFilter = o.filter
	}
	if flags.Changed("output") {
		cfg.Run.Output = o.output
	}
	if flags.Changed("report-path") {
		cfg.Run.ReportPath = o.reportPath
	}
	if flags.Changed("env-source") {
		cfg.Environment.Source = o.envSource
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = o.metricsFile
	}
	if len(o.profile) > 0 {
		merged := make(map[string]string, len(cfg.Environment.Profile)+len(o.profile))
		for k, v := range cfg.Environment.Profile {
			merged[k] = v
		}
		for k, v := range o.profile {
			merged[k] = v
		}
		cfg.Environment.Profile = merged
	}
	return cfg
}

func runSpecs(cmd *cobra.Command, opts *runOptions) error {
	cfg := opts.apply(cmd.Flags(), loadedConfig)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupts gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nReceived interrupt signal, stopping after the running classes...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.timeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, opts.timeout)
		defer timeoutCancel()
	}

	s, err := newSuite(ctx, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to set up environment: %w", err)
	}
	defer func() {
		if err := s.cache.Close(); err != nil {
			logging.Error("Run", err, "Failed to close managed contexts")
		}
	}()

	hc := harness.Configuration{
		Parallel:   cfg.Run.Parallel,
		FailFast:   cfg.Run.FailFast,
		Filter:     cfg.Run.ClassFilter,
		Verbose:    cfg.Run.Verbose,
		ReportPath: cfg.Run.ReportPath,
	}

	metricsRegistry := prometheus.NewRegistry()
	metrics := notify.NewMetrics(metricsRegistry)
	out := cmd.OutOrStdout()

	var result *harness.SuiteResult
	if opts.tui {
		selected, err := harness.Select(s.classes, hc.Filter)
		if err != nil {
			return err
		}
		result, err = tui.Run(ctx, selected, func(ctx context.Context, n notify.Notifier) (*harness.SuiteResult, error) {
			h := s.harness(harness.NewQuietReporter(io.Discard), harness.WithNotifier(notify.Multi{n, metrics}))
			return h.Run(ctx, hc, s.classes)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, result.Summary())
	} else {
		var notifier notify.Notifier = metrics
		if cfg.Run.Output == config.OutputConsole && cfg.Run.Verbose {
			notifier = notify.Multi{notify.NewConsole(out, true, nameWidth(s.classes, true)), metrics}
		}
		reporter := newReporter(cfg.Run.Output, out, cfg.Run.Verbose, cfg.Run.ReportPath)

		result, err = s.harness(reporter, harness.WithNotifier(notifier)).Run(ctx, hc, s.classes)
		if err != nil {
			return err
		}
	}

	if cfg.Run.ReportPath != "" && (opts.tui || cfg.Run.Output != config.OutputConsole) {
		path, err := harness.SaveReport(cfg.Run.ReportPath, *result, time.Now())
		if err != nil {
			logging.Error("Run", err, "Failed to save detailed report")
		} else {
			logging.Info("Run", "Detailed report saved to %s", path)
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, metricsRegistry); err != nil {
			return fmt.Errorf("failed to write metrics textfile: %w", err)
		}
		logging.Debug("Run", "Metrics written to %s", cfg.Metrics.Textfile)
	}

	if opts.copySummary {
		if err := clipboardWriteAll(result.Summary()); err != nil {
			logging.Warn("Run", "Could not copy summary to clipboard: %v", err)
		}
	}

	if !result.Succeeded() {
		return fmt.Errorf("%w: %d failed tests, %d failed classes, %d class errors",
			ErrTestsFailed, result.FailedTests, result.FailedClasses, result.ErrorClasses)
	}
	return nil
}

// Package harness runs a set of test classes and aggregates their results.
//
// Every class gets its own runner and context manager. Classes run one
// after another, or on a bounded number of goroutines when Parallel is set;
// methods inside a class are always sequential.
package harness

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"specctl/internal/contextmgr"
	"specctl/internal/descriptor"
	"specctl/internal/notify"
	"specctl/internal/runner"
	"specctl/pkg/logging"
)

// Harness runs many classes against one context manager factory.
type Harness struct {
	factory    contextmgr.Factory
	reporter   Reporter
	notifier   notify.Notifier
	runnerOpts []runner.Option
	cache      *contextmgr.ContextCache

	mu sync.Mutex
}

// Option configures a Harness.
type Option func(*Harness)

// WithNotifier sends every test notification to n as well as the reporter.
func WithNotifier(n notify.Notifier) Option {
	return func(h *Harness) {
		h.notifier = n
	}
}

// WithRunnerOptions passes options to every class runner.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(h *Harness) {
		h.runnerOpts = append(h.runnerOpts, opts...)
	}
}

// WithContextCache reports the statistics of cache in the suite result.
func WithContextCache(cache *contextmgr.ContextCache) Option {
	return func(h *Harness) {
		h.cache = cache
	}
}

// New creates a harness. A nil reporter reports nothing.
func New(factory contextmgr.Factory, reporter Reporter, opts ...Option) *Harness {
	h := &Harness{
		factory:  factory,
		reporter: reporter,
		notifier: notify.Discard,
	}
	if h.reporter == nil {
		h.reporter = NewQuietReporter(nil)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Select returns the classes whose name matches filter, in order.
func Select(classes []*descriptor.Class, filter string) ([]*descriptor.Class, error) {
	if filter == "" {
		return classes, nil
	}
	re, err := regexp.Compile(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid class filter %q: %w", filter, err)
	}
	var out []*descriptor.Class
	for _, c := range classes {
		if c != nil && re.MatchString(c.Name) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Run executes the selected classes. It only fails for an invalid
// configuration; test failures are part of the returned result.
func (h *Harness) Run(ctx context.Context, config Configuration, classes []*descriptor.Class) (*SuiteResult, error) {
	selected, err := Select(classes, config.Filter)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{
		RunID:         uuid.NewString(),
		StartTime:     time.Now(),
		TotalClasses:  len(selected),
		ClassResults:  make([]runner.ClassResult, 0, len(selected)),
		Configuration: config,
	}
	logging.Info("Harness", "Starting run %s with %d classes (parallel=%d, failFast=%t)",
		result.RunID, len(selected), config.Parallel, config.FailFast)

	h.reporter.ReportStart(config, len(selected))

	var results []*runner.ClassResult
	if config.Parallel <= 1 {
		results = h.runSequential(ctx, config, selected)
	} else {
		results = h.runParallel(ctx, config, selected)
	}

	for _, r := range results {
		if r == nil {
			result.NotRunClasses++
			continue
		}
		result.add(*r)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	if h.cache != nil {
		stats := h.cache.Stats()
		result.ContextCache = &stats
	}

	logging.Info("Harness", "Run %s finished: %d/%d tests passed", result.RunID, result.PassedTests, result.TotalTests)
	h.reporter.ReportSuiteResult(*result)
	return result, nil
}

func (h *Harness) runSequential(ctx context.Context, config Configuration, classes []*descriptor.Class) []*runner.ClassResult {
	results := make([]*runner.ClassResult, len(classes))
	for i, class := range classes {
		if ctx.Err() != nil {
			logging.Warn("Harness", "Run cancelled, %d classes not started", len(classes)-i)
			break
		}
		results[i] = h.runClass(class, h.notifier)
		if config.FailFast && results[i].Failed() {
			logging.Info("Harness", "Fail fast: stopping after %s", class.Name)
			break
		}
	}
	return results
}

func (h *Harness) runParallel(ctx context.Context, config Configuration, classes []*descriptor.Class) []*runner.ClassResult {
	results := make([]*runner.ClassResult, len(classes))
	notifier := notify.NewSynchronized(h.notifier)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g := new(errgroup.Group)
	g.SetLimit(config.Parallel)
	for i, class := range classes {
		g.Go(func() error {
			if runCtx.Err() != nil {
				return nil
			}
			logging.Debug("Harness", "Worker executing class %s", class.Name)
			results[i] = h.runClass(class, notifier)
			if config.FailFast && results[i].Failed() {
				logging.Info("Harness", "Fail fast: stopping after %s", class.Name)
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (h *Harness) runClass(class *descriptor.Class, n notify.Notifier) *runner.ClassResult {
	h.report(func() { h.reporter.ReportClassStart(class) })

	var result *runner.ClassResult
	r, err := runner.New(class, h.factory, h.runnerOpts...)
	if err != nil {
		logging.Error("Harness", err, "Test class %s cannot run", className(class))
		result = runner.ErrorResult(className(class), err)
	} else {
		result = r.Run(n)
	}

	h.report(func() { h.reporter.ReportClassResult(*result) })
	return result
}

func (h *Harness) report(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

func className(c *descriptor.Class) string {
	if c == nil {
		return "<nil>"
	}
	return c.Name
}

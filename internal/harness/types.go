package harness

import (
	"fmt"
	"time"

	"specctl/internal/contextmgr"
	"specctl/internal/descriptor"
	"specctl/internal/runner"
)

// Configuration controls a suite run.
type Configuration struct {
	// Parallel is the number of classes run at once; values below 2 run
	// classes sequentially.
	Parallel int `json:"parallel"`

	// FailFast stops starting new classes after the first failed one.
	FailFast bool `json:"failFast"`

	// Filter is a regular expression matched against class names.
	Filter string `json:"filter,omitempty"`

	Verbose bool `json:"verbose"`
	Debug   bool `json:"debug"`

	// ReportPath is the directory a detailed JSON report is written to.
	ReportPath string `json:"reportPath,omitempty"`
}

// SuiteResult is the outcome of a suite run.
type SuiteResult struct {
	RunID     string        `json:"runId"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`

	TotalClasses   int `json:"totalClasses"`
	PassedClasses  int `json:"passedClasses"`
	FailedClasses  int `json:"failedClasses"`
	IgnoredClasses int `json:"ignoredClasses"`
	ErrorClasses   int `json:"errorClasses"`
	// NotRunClasses were filtered in but never started because of fail-fast
	// or cancellation.
	NotRunClasses  int `json:"notRunClasses"`

	TotalTests   int `json:"totalTests"`
	PassedTests  int `json:"passedTests"`
	FailedTests  int `json:"failedTests"`
	IgnoredTests int `json:"ignoredTests"`
	SkippedTests int `json:"skippedTests"`

	ClassResults  []runner.ClassResult   `json:"classResults"`
	ContextCache  *contextmgr.CacheStats `json:"contextCache,omitempty"`
	Configuration Configuration          `json:"configuration"`
}

// SuccessRate is the percentage of passed tests among those that ran.
func (s SuiteResult) SuccessRate() float64 {
	ran := s.PassedTests + s.FailedTests
	if ran == 0 {
		return 0
	}
	return float64(s.PassedTests) / float64(ran) * 100
}

// Succeeded reports whether no class failed or errored.
func (s SuiteResult) Succeeded() bool {
	return s.FailedClasses == 0 && s.ErrorClasses == 0
}

// Summary renders the suite result on a single line.
func (s SuiteResult) Summary() string {
	return fmt.Sprintf("specctl %s: %d/%d tests passed, %d failed, %d skipped, %d ignored; %d classes (%d failed, %d errors) in %v",
		s.RunID, s.PassedTests, s.TotalTests, s.FailedTests, s.SkippedTests, s.IgnoredTests,
		s.TotalClasses, s.FailedClasses, s.ErrorClasses, s.Duration.Round(time.Millisecond))
}

func (s *SuiteResult) add(r runner.ClassResult) {
	s.ClassResults = append(s.ClassResults, r)

	switch r.Outcome {
	case runner.OutcomePassed, runner.OutcomeSkipped:
		s.PassedClasses++
	case runner.OutcomeFailed:
		s.FailedClasses++
	case runner.OutcomeIgnored:
		s.IgnoredClasses++
	case runner.OutcomeError:
		s.ErrorClasses++
	}

	passed, failed, ignored, skipped := r.Counts()
	s.TotalTests += len(r.Methods)
	s.PassedTests += passed
	s.FailedTests += failed
	s.IgnoredTests += ignored
	s.SkippedTests += skipped
}

// Reporter presents the progress of a suite run. The harness serialises
// calls, so implementations need no locking.
type Reporter interface {
	ReportStart(config Configuration, classes int)
	ReportClassStart(class *descriptor.Class)
	ReportClassResult(result runner.ClassResult)
	ReportSuiteResult(result SuiteResult)
}

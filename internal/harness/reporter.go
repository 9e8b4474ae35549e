package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"

	"specctl/internal/descriptor"
	"specctl/internal/runner"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// consoleReporter prints progress and a summary for humans.
type consoleReporter struct {
	out        io.Writer
	verbose    bool
	reportPath string
	now        func() time.Time
}

// NewConsoleReporter creates the default reporter. When reportPath is set a
// detailed JSON report is saved there at the end of the run.
func NewConsoleReporter(out io.Writer, verbose bool, reportPath string) Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &consoleReporter{out: out, verbose: verbose, reportPath: reportPath, now: time.Now}
}

func (r *consoleReporter) ReportStart(config Configuration, classes int) {
	fmt.Fprintln(r.out, titleStyle.Render("🧪 Starting specctl"))
	fmt.Fprintf(r.out, "📋 Test classes: %d\n", classes)

	if r.verbose {
		fmt.Fprintf(r.out, "⚙️  Configuration:\n")
		fmt.Fprintf(r.out, "   • Filter: %s\n", stringOrDefault(config.Filter, "all"))
		fmt.Fprintf(r.out, "   • Parallel workers: %d\n", config.Parallel)
		fmt.Fprintf(r.out, "   • Fail fast: %t\n", config.FailFast)
		if config.ReportPath != "" {
			fmt.Fprintf(r.out, "   • Report path: %s\n", config.ReportPath)
		}
	}
	fmt.Fprintln(r.out)
}

func (r *consoleReporter) ReportClassStart(class *descriptor.Class) {
	if r.verbose {
		fmt.Fprintf(r.out, "🎯 Starting class: %s (%d methods)\n", class.Name, len(class.Methods))
	}
}

func (r *consoleReporter) ReportClassResult(result runner.ClassResult) {
	passed, failed, ignored, skipped := result.Counts()
	fmt.Fprintf(r.out, "%s %s (%v)\n", resultSymbol(result.Outcome), result.Class, result.Duration.Round(time.Microsecond))

	if result.Error != "" {
		fmt.Fprintf(r.out, "   ❌ Error: %s\n", result.Error)
	}
	if r.verbose {
		fmt.Fprintf(r.out, "   📊 Methods: %d passed", passed)
		if failed > 0 {
			fmt.Fprintf(r.out, ", %d failed", failed)
		}
		if skipped > 0 {
			fmt.Fprintf(r.out, ", %d skipped", skipped)
		}
		if ignored > 0 {
			fmt.Fprintf(r.out, ", %d ignored", ignored)
		}
		fmt.Fprint(r.out, "\n\n")
	}
}

func (r *consoleReporter) ReportSuiteResult(result SuiteResult) {
	fmt.Fprintf(r.out, "\n🏁 Test Suite Complete\n")
	fmt.Fprintf(r.out, "⏱️  Duration: %v\n", result.Duration.Round(time.Millisecond))
	fmt.Fprintf(r.out, "📊 Results:\n")
	fmt.Fprintf(r.out, "   ✅ Passed: %d\n", result.PassedTests)
	if result.FailedTests > 0 {
		fmt.Fprintf(r.out, "   ❌ Failed: %d\n", result.FailedTests)
	}
	if result.ErrorClasses > 0 {
		fmt.Fprintf(r.out, "   💥 Class errors: %d\n", result.ErrorClasses)
	}
	if result.SkippedTests > 0 {
		fmt.Fprintf(r.out, "   ⏭️  Skipped: %d\n", result.SkippedTests)
	}
	if result.IgnoredTests > 0 {
		fmt.Fprintf(r.out, "   🚫 Ignored: %d\n", result.IgnoredTests)
	}
	if result.NotRunClasses > 0 {
		fmt.Fprintf(r.out, "   ⛔ Classes not run: %d\n", result.NotRunClasses)
	}
	fmt.Fprintf(r.out, "   📈 Total: %d\n", result.TotalTests)
	fmt.Fprintf(r.out, "   📏 Success Rate: %.1f%%\n", result.SuccessRate())

	if result.Succeeded() {
		fmt.Fprintln(r.out, okStyle.Render("\n🎉 All tests passed!"))
	} else {
		fmt.Fprintln(r.out, badStyle.Render("\n💔 Some tests failed"))
	}

	if r.reportPath != "" {
		path, err := SaveReport(r.reportPath, result, r.now())
		if err != nil {
			fmt.Fprintf(r.out, "⚠️  Failed to save detailed report: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "📄 Detailed report saved to: %s\n", path)
		}
	}
}

// SaveReport writes result as indented JSON into dir and returns the file
// path.
func SaveReport(dir string, result SuiteResult, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := fmt.Sprintf("specctl-report-%s.json", at.Format("20060102-150405"))
	fullPath := filepath.Join(dir, filename)

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if err := os.WriteFile(fullPath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return fullPath, nil
}

func resultSymbol(o runner.Outcome) string {
	switch o {
	case runner.OutcomePassed:
		return "✅"
	case runner.OutcomeFailed:
		return "❌"
	case runner.OutcomeSkipped:
		return "⏭️"
	case runner.OutcomeIgnored:
		return "🚫"
	case runner.OutcomeError:
		return "💥"
	default:
		return "❓"
	}
}

func stringOrDefault(s, defaultValue string) string {
	if s == "" {
		return defaultValue
	}
	return s
}

// NewQuietReporter only prints failures and a one-line summary, for CI.
func NewQuietReporter(out io.Writer) Reporter {
	if out == nil {
		out = io.Discard
	}
	return &quietReporter{out: out}
}

type quietReporter struct {
	out io.Writer
}

func (r *quietReporter) ReportStart(Configuration, int)     {}
func (r *quietReporter) ReportClassStart(*descriptor.Class) {}

func (r *quietReporter) ReportClassResult(result runner.ClassResult) {
	if result.Failed() {
		fmt.Fprintf(r.out, "%s %s: %s\n", resultSymbol(result.Outcome), result.Class, firstError(result))
	}
}

func (r *quietReporter) ReportSuiteResult(result SuiteResult) {
	if result.Succeeded() {
		fmt.Fprintf(r.out, "✅ All %d tests passed\n", result.PassedTests)
	} else {
		fmt.Fprintf(r.out, "❌ %d/%d tests failed, %d class errors\n",
			result.FailedTests, result.TotalTests, result.ErrorClasses)
	}
}

func firstError(result runner.ClassResult) string {
	if result.Error != "" {
		return result.Error
	}
	for _, m := range result.Methods {
		if m.Error != "" {
			return m.Name + ": " + m.Error
		}
	}
	return string(result.Outcome)
}

// NewJSONReporter prints the suite result as JSON once the run completes.
func NewJSONReporter(out io.Writer) Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &jsonReporter{out: out}
}

type jsonReporter struct {
	out io.Writer
}

func (r *jsonReporter) ReportStart(Configuration, int)       {}
func (r *jsonReporter) ReportClassStart(*descriptor.Class)   {}
func (r *jsonReporter) ReportClassResult(runner.ClassResult) {}

func (r *jsonReporter) ReportSuiteResult(result SuiteResult) {
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(r.out, `{"error": "Failed to marshal results: %v"}`+"\n", err)
		return
	}
	fmt.Fprintln(r.out, string(jsonData))
}

package tui

import (
	"specctl/internal/harness"
	"specctl/internal/notify"
	"specctl/internal/runner"
)

// testStartedMsg announces that a method began.
type testStartedMsg struct {
	ID notify.TestID
}

// testResultMsg carries the final outcome of a method, or of a whole class
// when ID is a suite ID.
type testResultMsg struct {
	ID      notify.TestID
	Outcome runner.Outcome
	Err     string
}

// runDoneMsg is sent once the suite run returned.
type runDoneMsg struct {
	Result *harness.SuiteResult
	Err    error
}

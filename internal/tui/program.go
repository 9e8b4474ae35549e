package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"specctl/internal/descriptor"
	"specctl/internal/harness"
	"specctl/internal/notify"
	"specctl/pkg/logging"
)

// RunFunc executes a suite, reporting every outcome to n.
type RunFunc func(ctx context.Context, n notify.Notifier) (*harness.SuiteResult, error)

// Run shows the progress view while run executes. Quitting the view cancels
// ctx for run and waits for it to return.
func Run(ctx context.Context, classes []*descriptor.Class, run RunFunc, opts ...tea.ProgramOption) (*harness.SuiteResult, error) {
	// Buffered channel to avoid blocking the run on every notification.
	ch := make(chan tea.Msg, 100)
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result *harness.SuiteResult
		err    error
	}
	results := make(chan outcome, 1)

	p := tea.NewProgram(NewModel(classes, ch), opts...)
	go func() {
		res, err := run(ctx, NewNotifier(ch, done))
		results <- outcome{result: res, err: err}
		select {
		case ch <- runDoneMsg{Result: res, Err: err}:
		case <-done:
		}
	}()

	_, err := p.Run()
	close(done)
	cancel()

	out := <-results
	if err != nil {
		logging.Error("TUI", err, "Progress view stopped")
		return out.result, fmt.Errorf("failed to run progress view: %w", err)
	}
	return out.result, out.err
}

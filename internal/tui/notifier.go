package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"specctl/internal/failure"
	"specctl/internal/notify"
	"specctl/internal/runner"
)

// Notifier forwards notifications to the progress view. One result message
// is sent per method, when it finishes.
type Notifier struct {
	ch   chan<- tea.Msg
	done <-chan struct{}

	mu      sync.Mutex
	started map[notify.TestID]bool
	pending map[notify.TestID]testResultMsg
}

var _ notify.Notifier = (*Notifier)(nil)

// NewNotifier sends messages on ch. Once done is closed, messages are
// dropped instead of blocking the run.
func NewNotifier(ch chan<- tea.Msg, done <-chan struct{}) *Notifier {
	return &Notifier{
		ch:      ch,
		done:    done,
		started: make(map[notify.TestID]bool),
		pending: make(map[notify.TestID]testResultMsg),
	}
}

func (n *Notifier) send(msg tea.Msg) {
	select {
	case n.ch <- msg:
	case <-n.done:
	}
}

func (n *Notifier) TestStarted(id notify.TestID) {
	n.mu.Lock()
	n.started[id] = true
	n.mu.Unlock()
	n.send(testStartedMsg{ID: id})
}

func (n *Notifier) TestFailure(id notify.TestID, cause error) {
	n.outcome(id, runner.OutcomeFailed, cause)
}

func (n *Notifier) TestAssumptionFailed(id notify.TestID, cause error) {
	n.outcome(id, runner.OutcomeSkipped, cause)
}

// outcome holds the result back until TestFinished for a started method.
func (n *Notifier) outcome(id notify.TestID, o runner.Outcome, cause error) {
	msg := testResultMsg{ID: id, Outcome: o, Err: failure.Describe(cause)}

	n.mu.Lock()
	if n.started[id] {
		n.pending[id] = msg
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()
	n.send(msg)
}

func (n *Notifier) TestFinished(id notify.TestID) {
	n.mu.Lock()
	msg, ok := n.pending[id]
	delete(n.pending, id)
	delete(n.started, id)
	n.mu.Unlock()

	if !ok {
		msg = testResultMsg{ID: id, Outcome: runner.OutcomePassed}
	}
	n.send(msg)
}

func (n *Notifier) TestIgnored(id notify.TestID) {
	n.send(testResultMsg{ID: id, Outcome: runner.OutcomeIgnored})
}

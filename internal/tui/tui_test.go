package tui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specctl/internal/descriptor"
	"specctl/internal/harness"
	"specctl/internal/notify"
	"specctl/internal/runner"
)

func classes() []*descriptor.Class {
	body := func(any) error { return nil }
	return []*descriptor.Class{
		{Name: "GreetingSpec", Methods: []*descriptor.Method{{Name: "a", Body: body}, {Name: "b", Body: body}}},
		{Name: "DisabledSpec", Methods: []*descriptor.Method{{Name: "c", Body: body}}},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestNotifier_OneResultPerMethod(t *testing.T) {
	ch := make(chan tea.Msg, 20)
	n := NewNotifier(ch, nil)

	a := notify.TestID{Class: "GreetingSpec", Method: "a"}
	b := notify.TestID{Class: "GreetingSpec", Method: "b"}
	c := notify.TestID{Class: "GreetingSpec", Method: "c"}

	n.TestStarted(a)
	n.TestFinished(a)
	n.TestStarted(b)
	n.TestFailure(b, errors.New("boom"))
	n.TestFinished(b)
	n.TestFailure(c, errors.New("no instance"))
	n.TestIgnored(notify.Suite("DisabledSpec"))
	close(ch)

	var got []tea.Msg
	for msg := range ch {
		got = append(got, msg)
	}
	assert.Equal(t, []tea.Msg{
		testStartedMsg{ID: a},
		testResultMsg{ID: a, Outcome: runner.OutcomePassed},
		testStartedMsg{ID: b},
		testResultMsg{ID: b, Outcome: runner.OutcomeFailed, Err: "boom"},
		testResultMsg{ID: c, Outcome: runner.OutcomeFailed, Err: "no instance"},
		testResultMsg{ID: notify.Suite("DisabledSpec"), Outcome: runner.OutcomeIgnored},
	}, got)
}

func TestNotifier_DropsAfterDone(t *testing.T) {
	done := make(chan struct{})
	close(done)
	n := NewNotifier(make(chan tea.Msg), done)

	finished := make(chan struct{})
	go func() {
		n.TestIgnored(notify.Suite("X"))
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("notifier blocked after done was closed")
	}
}

func TestModel_Update(t *testing.T) {
	m := NewModel(classes(), make(chan tea.Msg))
	assert.Equal(t, 3, m.total)
	assert.Equal(t, 0.0, m.Percent())

	a := notify.TestID{Class: "GreetingSpec", Method: "a"}
	m = update(t, m, testStartedMsg{ID: a})
	assert.Equal(t, "GreetingSpec.a", m.current)
	assert.Contains(t, m.View(), "GreetingSpec.a")

	m = update(t, m, testResultMsg{ID: a, Outcome: runner.OutcomePassed})
	assert.Empty(t, m.current)
	m = update(t, m, testResultMsg{ID: notify.TestID{Class: "GreetingSpec", Method: "b"}, Outcome: runner.OutcomeFailed, Err: "boom"})
	m = update(t, m, testResultMsg{ID: notify.Suite("DisabledSpec"), Outcome: runner.OutcomeIgnored})

	assert.Equal(t, 1, m.passed)
	assert.Equal(t, 1, m.failed)
	assert.Equal(t, 1, m.ignored)
	assert.Equal(t, 1.0, m.Percent())

	view := m.View()
	assert.Contains(t, view, "1 passed")
	assert.Contains(t, view, "1 failed")
	assert.Contains(t, view, "3/3")
	assert.NotContains(t, view, "boom")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	assert.True(t, m.showDetails)
	assert.Contains(t, m.View(), "boom")
}

func TestModel_ClassFailureAndRecentLimit(t *testing.T) {
	m := NewModel(nil, make(chan tea.Msg))
	m = update(t, m, testResultMsg{ID: notify.Suite("Broken"), Outcome: runner.OutcomeFailed, Err: "before class"})
	assert.Equal(t, 1, m.classFailures)
	assert.Equal(t, 0, m.done)
	assert.Contains(t, m.View(), "1 class failures")

	for i := 0; i < maxRecentResults+5; i++ {
		m = update(t, m, testResultMsg{ID: notify.TestID{Class: "Many", Method: "m"}, Outcome: runner.OutcomePassed})
	}
	assert.Len(t, m.recent, maxRecentResults)
}

func TestModel_RunDoneQuits(t *testing.T) {
	m := NewModel(nil, make(chan tea.Msg))
	result := &harness.SuiteResult{RunID: "run-7"}

	next, cmd := m.Update(runDoneMsg{Result: result})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, m.finished)
	assert.Equal(t, 1.0, m.Percent())

	got, err := m.Result()
	assert.NoError(t, err)
	assert.Same(t, result, got)
	assert.Contains(t, m.View(), "specctl run-7")
	assert.Contains(t, m.View(), "Run complete")
}

func TestModel_QuitKey(t *testing.T) {
	m := NewModel(nil, make(chan tea.Msg))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, next.(Model).quitting)
	assert.Contains(t, next.(Model).View(), "Stopping")
}

func TestModel_WindowSize(t *testing.T) {
	m := NewModel(nil, make(chan tea.Msg))
	m = update(t, m, tea.WindowSizeMsg{Width: 30, Height: 10})
	assert.Equal(t, 26, m.progress.Width)
	m = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 10})
	assert.Equal(t, maxProgressWidth, m.progress.Width)
}

func TestRun_ReturnsSuiteResult(t *testing.T) {
	want := &harness.SuiteResult{RunID: "run-9"}
	run := func(ctx context.Context, n notify.Notifier) (*harness.SuiteResult, error) {
		id := notify.TestID{Class: "GreetingSpec", Method: "a"}
		n.TestStarted(id)
		n.TestFinished(id)
		return want, nil
	}

	var in, out bytes.Buffer
	got, err := Run(context.Background(), classes(), run, tea.WithInput(&in), tea.WithOutput(&out))
	require.NoError(t, err)
	assert.Same(t, want, got)
}

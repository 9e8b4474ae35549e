package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"specctl/internal/descriptor"
	"specctl/internal/harness"
	"specctl/internal/runner"
)

const maxProgressWidth = 60

// Model is the Bubble Tea model of the progress view.
type Model struct {
	ch      chan tea.Msg
	methods map[string]int
	total   int

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model

	current string
	done    int
	passed  int
	failed  int
	skipped int
	ignored int
	// classFailures counts failures reported outside any method.
	classFailures int
	recent        []testResultMsg
	showDetails   bool

	result   *harness.SuiteResult
	err      error
	finished bool
	quitting bool
	width    int
}

// NewModel creates the view for classes, reading messages from ch.
func NewModel(classes []*descriptor.Class, ch chan tea.Msg) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := Model{
		ch:       ch,
		methods:  make(map[string]int, len(classes)),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxProgressWidth)),
	}
	for _, c := range classes {
		if c == nil {
			continue
		}
		m.methods[c.Name] = len(c.Methods)
		m.total += len(c.Methods)
	}
	return m
}

// channelReaderCmd returns a Bubbletea command that forwards messages from the given channel.
func channelReaderCmd(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, channelReaderCmd(m.ch))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Details):
			m.showDetails = !m.showDetails
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(msg.Width-4, maxProgressWidth)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case testStartedMsg:
		m.current = msg.ID.String()
		return m, channelReaderCmd(m.ch)

	case testResultMsg:
		m.record(msg)
		return m, channelReaderCmd(m.ch)

	case runDoneMsg:
		m.finished = true
		m.current = ""
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) record(msg testResultMsg) {
	if msg.ID.String() == m.current {
		m.current = ""
	}

	if msg.ID.IsSuite() {
		switch msg.Outcome {
		case runner.OutcomeIgnored:
			n := m.methods[msg.ID.Class]
			m.done += n
			m.ignored += n
		case runner.OutcomeFailed:
			m.classFailures++
		}
	} else {
		m.done++
		switch msg.Outcome {
		case runner.OutcomePassed:
			m.passed++
		case runner.OutcomeFailed:
			m.failed++
		case runner.OutcomeSkipped:
			m.skipped++
		case runner.OutcomeIgnored:
			m.ignored++
		}
	}

	m.recent = append(m.recent, msg)
	if len(m.recent) > maxRecentResults {
		m.recent = m.recent[len(m.recent)-maxRecentResults:]
	}
}

// Percent is the share of methods with a final outcome.
func (m Model) Percent() float64 {
	if m.total == 0 {
		if m.finished {
			return 1
		}
		return 0
	}
	return min(float64(m.done)/float64(m.total), 1)
}

// Result returns the suite result once the run is done.
func (m Model) Result() (*harness.SuiteResult, error) {
	return m.result, m.err
}

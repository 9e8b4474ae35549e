package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"specctl/internal/failure"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Console prints one line per finished or ignored test.
type Console struct {
	out     io.Writer
	verbose bool
	width   int

	mu       sync.Mutex
	started  map[TestID]time.Time
	outcomes map[TestID]string
	now      func() time.Time
}

var _ Notifier = (*Console)(nil)

// NewConsole returns a console notifier writing to out. Names are padded to
// width display columns so durations line up.
func NewConsole(out io.Writer, verbose bool, width int) *Console {
	return &Console{
		out:      out,
		verbose:  verbose,
		width:    width,
		started:  make(map[TestID]time.Time),
		outcomes: make(map[TestID]string),
		now:      time.Now,
	}
}

func (c *Console) name(id TestID) string {
	if c.width <= 0 {
		return id.String()
	}
	return runewidth.FillRight(runewidth.Truncate(id.String(), c.width, "…"), c.width)
}

func (c *Console) TestStarted(id TestID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started[id] = c.now()
	if c.verbose {
		fmt.Fprintf(c.out, "%s %s\n", dimStyle.Render("▶"), id)
	}
}

func (c *Console) TestFailure(id TestID, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id.IsSuite() {
		fmt.Fprintf(c.out, "%s %s\n", failStyle.Render("💥"), c.name(id))
		fmt.Fprintf(c.out, "   %s %s\n", failStyle.Render("Error:"), failure.Describe(cause))
		return
	}
	if _, running := c.started[id]; !running {
		fmt.Fprintf(c.out, "❌ %s %s\n", c.name(id), dimStyle.Render("(not started)"))
	} else {
		c.outcomes[id] = "❌"
	}
	fmt.Fprintf(c.out, "   %s %s\n", failStyle.Render("Error:"), failure.Describe(cause))
}

func (c *Console) TestAssumptionFailed(id TestID, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[id] = "⏭️"
	if c.verbose {
		fmt.Fprintf(c.out, "   %s %v\n", skipStyle.Render("Skipped:"), cause)
	}
}

func (c *Console) TestFinished(id TestID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	symbol, ok := c.outcomes[id]
	if !ok {
		symbol = "✅"
	}
	delete(c.outcomes, id)

	var elapsed time.Duration
	if start, ok := c.started[id]; ok {
		elapsed = c.now().Sub(start).Round(time.Microsecond)
		delete(c.started, id)
	}

	line := fmt.Sprintf("%s %s %s", symbol, c.name(id), dimStyle.Render(fmt.Sprintf("(%v)", elapsed)))
	switch symbol {
	case "✅":
		line = passStyle.Render(line)
	case "⏭️":
		line = skipStyle.Render(line)
	}
	fmt.Fprintln(c.out, line)
}

func (c *Console) TestIgnored(id TestID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reason := "ignored"
	if id.IsSuite() {
		reason = "class disabled"
	}
	fmt.Fprintln(c.out, skipStyle.Render(fmt.Sprintf("⏭️  %s (%s)", c.name(id), reason)))
}

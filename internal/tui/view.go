package tui

import (
	"fmt"
	"strings"

	"specctl/internal/runner"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("specctl run"))
	b.WriteString("\n\n")

	switch {
	case m.finished:
		b.WriteString(IconSparkles + " Run complete")
	case m.quitting:
		b.WriteString(IconHourglass + " Stopping after the running class...")
	case m.current != "":
		b.WriteString(m.spinner.View() + " " + m.current)
	default:
		b.WriteString(m.spinner.View() + " " + mutedStyle.Render("waiting for tests..."))
	}
	b.WriteString("\n")

	b.WriteString(m.progress.ViewAs(m.Percent()))
	b.WriteString(fmt.Sprintf("  %d/%d\n", m.done, m.total))

	b.WriteString(renderCounts(m))
	b.WriteString("\n")

	if len(m.recent) > 0 {
		b.WriteString(panelStyle.Render(renderRecent(m)))
		b.WriteString("\n")
	}

	if m.result != nil {
		b.WriteString(m.result.Summary())
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(failedStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func renderCounts(m Model) string {
	parts := []string{
		passedStyle.Render(fmt.Sprintf("%s %d passed", IconCheck, m.passed)),
		failedStyle.Render(fmt.Sprintf("%s %d failed", IconCross, m.failed)),
		skippedStyle.Render(fmt.Sprintf("%s %d skipped", IconSkip, m.skipped)),
		mutedStyle.Render(fmt.Sprintf("%s %d ignored", IconIgnored, m.ignored)),
	}
	if m.classFailures > 0 {
		parts = append(parts, failedStyle.Render(fmt.Sprintf("%d class failures", m.classFailures)))
	}
	return strings.Join(parts, "  ")
}

func renderRecent(m Model) string {
	lines := make([]string, 0, len(m.recent))
	for _, r := range m.recent {
		lines = append(lines, outcomeIcon(r.Outcome)+" "+r.ID.String())
		if m.showDetails && r.Err != "" {
			lines = append(lines, errorStyle.Render(r.Err))
		}
	}
	return strings.Join(lines, "\n")
}

func outcomeIcon(o runner.Outcome) string {
	switch o {
	case runner.OutcomePassed:
		return passedStyle.Render(IconCheck)
	case runner.OutcomeFailed:
		return failedStyle.Render(IconCross)
	case runner.OutcomeSkipped:
		return skippedStyle.Render(IconSkip)
	default:
		return mutedStyle.Render(IconIgnored)
	}
}

package tui

import "github.com/charmbracelet/lipgloss"

const (
	IconCheck     = "✔"
	IconCross     = "❌"
	IconSkip      = "⏭"
	IconIgnored   = "🚫"
	IconHourglass = "⏳"
	IconSparkles  = "✨"
)

// maxRecentResults bounds the result list shown under the progress bar.
const maxRecentResults = 12

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}).
			Background(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#303030"}).
			Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#A0A0A0", Dark: "#606060"}).
			Padding(0, 1)

	passedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#707070", Dark: "#909090"})
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).PaddingLeft(4)
)

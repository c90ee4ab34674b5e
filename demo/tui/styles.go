package tui

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent = "#E0703A"
	colorOK     = "#3FB68B"
	colorWarn   = "#E5B54A"
	colorFail   = "#E5484D"
	colorMuted  = "#7D7D7D"
	colorInk    = "#FFF8F0"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorAccent)).
		MarginTop(1)

	stateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorOK))

	// the legacy recorder runs in real time, so it gets its own colour
	legacyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarn))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorFail))

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))

	resultBox = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color(colorOK)).
		Padding(0, 2)

	badgeStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorInk)).
		Background(lipgloss.Color(colorAccent)).
		Padding(0, 1)
)

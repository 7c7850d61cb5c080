package tui

import "github.com/charmbracelet/lipgloss"

//nolint:gochecknoglobals // Shared read-only styles.
var (
	// TitleStyle styles the heading line.
	TitleStyle = lipgloss.NewStyle().Bold(true)
	// LabelStyle styles bar labels.
	LabelStyle = lipgloss.NewStyle().Width(labelWidth)
	// DoneStyle styles completed bars.
	DoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	// ErrorStyle styles the error line.
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// labelWidth is the column width of bar labels.
const labelWidth = 10

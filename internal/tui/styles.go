package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor  = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#73F59F")
	errorColor   = lipgloss.Color("#FF5F87")
	warningColor = lipgloss.Color("#FECA57")
	mutedColor   = lipgloss.Color("#696969")
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	infoStyle        = lipgloss.NewStyle().Foreground(mutedColor)
	warningStyle     = lipgloss.NewStyle().Bold(true).Foreground(warningColor)
	headerStyle      = lipgloss.NewStyle().Bold(true).Underline(true)
	cursorRowStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	selectedRowStyle = lipgloss.NewStyle().Foreground(successColor)
	statusStyle      = lipgloss.NewStyle().Foreground(successColor)
	statusErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	modalStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(errorColor).Padding(1, 2)
	modalTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
)

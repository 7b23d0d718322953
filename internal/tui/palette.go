package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorInk       = lipgloss.Color("#E5E9F0")
	ColorDim       = lipgloss.Color("#7A8291")
	ColorAccent    = lipgloss.Color("#88C0D0")
	ColorAccentAlt = lipgloss.Color("#81A1C1")
	ColorSuccess   = lipgloss.Color("#A3BE8C")
	ColorWarn      = lipgloss.Color("#EBCB8B")
	ColorError     = lipgloss.Color("#BF616A")
)

// Styles shared by command output.
var (
	PathStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	HeadingStyle = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	ValueStyle   = lipgloss.NewStyle().Foreground(ColorInk)
	DimStyle     = lipgloss.NewStyle().Foreground(ColorDim)
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarnStyle    = lipgloss.NewStyle().Foreground(ColorWarn)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorError)
)

package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#B39DDB")
	colorUser    = lipgloss.Color("#90CAF9")
	colorError   = lipgloss.Color("#EF9A9A")
	colorHint    = lipgloss.Color("#545454")
	colorTool    = lipgloss.Color("#FFCC80")
	colorOK      = lipgloss.Color("#A5D6A7")

	userStyle = lipgloss.NewStyle().
			Foreground(colorUser).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#E0E0E0"})

	systemStyle = lipgloss.NewStyle().
			Foreground(colorHint).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	toolNameStyle = lipgloss.NewStyle().
			Foreground(colorTool).
			Bold(true)

	toolResultStyle = lipgloss.NewStyle().
			Foreground(colorHint).
			PaddingLeft(2)

	statusAllowedStyle = lipgloss.NewStyle().Foreground(colorOK)
	statusDeniedStyle  = lipgloss.NewStyle().Foreground(colorError)
	statusPendingStyle = lipgloss.NewStyle().Foreground(colorHint)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(1, 2)

	modalTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	optionStyle = lipgloss.NewStyle().
			Padding(0, 1)

	optionSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Bold(true).
				Foreground(lipgloss.Color("#000000")).
				Background(colorPrimary)

	hintStyle = lipgloss.NewStyle().
			Faint(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorHint)
)

package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/billmal071/mangaunlock/internal/bilimanga"
)

var (
	// Colors
	primaryColor   = lipgloss.Color("170") // Purple
	secondaryColor = lipgloss.Color("39")  // Cyan
	dimColor       = lipgloss.Color("240") // Gray
	successColor   = lipgloss.Color("82")  // Green
	errorColor     = lipgloss.Color("196") // Red
	warningColor   = lipgloss.Color("214") // Orange

	// Title style
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// Selected item style
	SelectedStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	// Normal item style
	NormalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// Dim style for metadata
	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	// Success style
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// Error style
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// Warning style
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// Box style for containers
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor).
			Padding(1, 2)

	// Help style
	HelpStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			MarginTop(1)

	// Prompt style for the shell input line
	PromptStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	// Spinner style
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)
)

// FormatComic renders a comic as "name [id]"
func FormatComic(c *bilimanga.Comic) string {
	return fmt.Sprintf("%s [%d]", c.Name, c.ID)
}

// FormatPending summarizes how many chapters still need unlocking
func FormatPending(c *bilimanga.Comic) string {
	n := len(c.PendingChapters())
	switch n {
	case 0:
		return "no chapters locked"
	case 1:
		return "1 chapter locked"
	default:
		return fmt.Sprintf("%d chapters locked", n)
	}
}

package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen      = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow     = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleYellowBold = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	StyleRed        = lipgloss.NewStyle().Foreground(ColorRed)
	StyleRedBold    = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	StyleBlue       = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple     = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim        = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg         = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader     = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold       = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StateBadge returns a colored workflow state indicator such as "● APPROVED".
func StateBadge(state string) string {
	switch state {
	case "draft":
		return StyleBlue.Render("○ DRAFT")
	case "in_review":
		return StyleYellow.Render("◐ IN REVIEW")
	case "approved":
		return StyleGreen.Render("● APPROVED")
	case "rejected":
		return StyleRed.Render("✖ REJECTED")
	default:
		return StyleDim.Render(strings.ToUpper(state))
	}
}

// TaskStatusPill returns a colored indicator for a task status.
func TaskStatusPill(status string) string {
	switch status {
	case "not_started":
		return StyleBlue.Render("○ Not started")
	case "in_progress":
		return StyleYellow.Render("▶ In progress")
	case "done":
		return StyleGreen.Render("✔ Done")
	case "on_hold":
		return StyleDim.Render("‖ On hold")
	case "cancelled":
		return StyleDim.Render("✖ Cancelled")
	default:
		return StyleDim.Render(status)
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}

// Package tui provides shared TUI components for the dyad CLI.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette - consistent across all TUI features
var (
	ColorPrimary   = lipgloss.Color("#7D56F4")
	ColorSecondary = lipgloss.Color("#6C6C6C")
	ColorSuccess   = lipgloss.Color("#04B575")
	ColorWarning   = lipgloss.Color("#FFCC00")
	ColorError     = lipgloss.Color("#FF5F87")
	ColorMuted     = lipgloss.Color("#626262")
	ColorInfo      = lipgloss.Color("#87CEEB")
	ColorBorder    = lipgloss.Color("#3C3C3C")
)

// Common text styles
var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	SubtitleStyle = lipgloss.NewStyle().Foreground(ColorSecondary)
	ErrorStyle    = lipgloss.NewStyle().Foreground(ColorError)
	SuccessStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle  = lipgloss.NewStyle().Foreground(ColorWarning)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	InfoStyle     = lipgloss.NewStyle().Foreground(ColorInfo)
)

// Terminal output styles for streamed install lines
var (
	CommandStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorInfo)
	ProgressStyle = lipgloss.NewStyle().Foreground(ColorPrimary)
	DividerStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	StepStyle     = lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
)

// Panel styles
var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1)

	BannerErrorStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorError).
				Foreground(ColorError).
				Padding(0, 1)
)

// Stack joins non-empty rendered blocks vertically with gap blank lines
// between them.
func Stack(gap int, blocks ...string) string {
	sep := strings.Repeat("\n", gap+1)
	var kept []string
	for _, b := range blocks {
		if b != "" {
			kept = append(kept, b)
		}
	}
	return strings.Join(kept, sep)
}

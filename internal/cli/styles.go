// Package cli implements the mc subcommands. Each function writes its
// human-readable output to the given writer and returns an error for the
// caller to turn into an exit code.
package cli

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"missioncontrol/internal/extract"
)

var (
	primary   = lipgloss.Color("#f7c0af") // orangish/peach
	secondary = lipgloss.Color("#3ccad7") // cyan
	success   = lipgloss.Color("#87bf47") // green
	warning   = lipgloss.Color("#d7af5f") // amber
	errorCol  = lipgloss.Color("#bf5d47") // red
	muted     = lipgloss.Color("#7f7f7f") // gray

	labelStyle   = lipgloss.NewStyle().Foreground(primary).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(secondary)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success)
	warnStyle    = lipgloss.NewStyle().Foreground(warning)
	errorStyle   = lipgloss.NewStyle().Foreground(errorCol)
	sectionStyle = lipgloss.NewStyle().Foreground(primary).Bold(true).Margin(1, 0, 0, 0)
)

func statusBadge(s extract.Status) string {
	switch s {
	case extract.StatusActive:
		return successStyle.Render("● active ")
	case extract.StatusBlocked:
		return errorStyle.Render("■ blocked")
	default:
		return mutedStyle.Render("○ idle   ")
	}
}

func formTheme() *huh.Theme {
	theme := huh.ThemeBase16()
	base := lipgloss.NewStyle().Foreground(lipgloss.Color("#dddddd"))
	theme.Focused.Title = base.Foreground(primary).Bold(true)
	theme.Focused.ErrorIndicator = base.Foreground(errorCol)
	theme.Focused.ErrorMessage = base.Foreground(errorCol)
	theme.Focused.SelectSelector = base.Foreground(primary).Bold(true)
	return theme
}

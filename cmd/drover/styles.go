package main

import "github.com/charmbracelet/lipgloss"

// Color Palette
// Single source of truth for CLI colors.
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // primary accent, errors
	mintGreen   = lipgloss.Color("#A8E6CF") // success states
	paleYellow  = lipgloss.Color("#FFF3B0") // in-progress, skipped
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	stepStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	dimStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	successStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	skipStyle = lipgloss.NewStyle().
			Foreground(paleYellow)

	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1)
)

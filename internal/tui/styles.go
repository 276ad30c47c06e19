package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/shiftcal/internal/constants"
)

var (
	accent  = lipgloss.Color(constants.ValidatedPalette.Color)
	accentL = lipgloss.Color(constants.ValidatedPalette.Color1)
	muted   = lipgloss.Color(constants.PendingPalette.Color)
	alert   = lipgloss.Color("#d64545")
	caution = lipgloss.Color("#e8a33d")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(accent).Padding(0, 1)
	subtleStyle  = lipgloss.NewStyle().Foreground(muted).Padding(0, 1)
	dangerStyle  = lipgloss.NewStyle().Bold(true).Foreground(alert)
	warningStyle = lipgloss.NewStyle().Italic(true).Foreground(caution)
	okStyle      = lipgloss.NewStyle().Foreground(accentL)
	docStyle     = lipgloss.NewStyle().Padding(1, 2)
)

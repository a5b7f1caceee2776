package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	colorPrimary = lipgloss.Color("#4285F4")
	colorAccent  = lipgloss.Color("#F538A0")
	colorOK      = lipgloss.Color("#34D399")
	colorValue   = lipgloss.Color("#FBBC04")
	colorWarn    = lipgloss.Color("#FF8A3D")
	colorErr     = lipgloss.Color("#EA4335")
	colorMuted   = lipgloss.Color("#A0A4B8")
	colorFaint   = lipgloss.Color("#5C6070")
	colorInk     = lipgloss.Color("#101322")
	colorPanel   = lipgloss.Color("#1B1F33")
)

var (
	logoStyle     = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Padding(1, 0, 0, 2)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorMuted).PaddingLeft(2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Background(colorPanel).
			Padding(1, 2)
	titleStyle = lipgloss.NewStyle().
			Background(colorAccent).
			Foreground(colorInk).
			Bold(true).
			Padding(0, 1)

	menuItemStyle   = lipgloss.NewStyle().Foreground(colorMuted).PaddingLeft(2)
	menuActiveStyle = menuItemStyle.Foreground(colorOK).Bold(true)

	labelStyle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(colorValue)
	successStyle = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorErr).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)

	logMessageStyle = lipgloss.NewStyle().Foreground(colorMuted)
	logErrorStyle   = lipgloss.NewStyle().Foreground(colorErr)

	spinnerStyle = lipgloss.NewStyle().Foreground(colorPrimary)
	helpStyle    = lipgloss.NewStyle().Foreground(colorFaint).Padding(1, 0, 0, 2)
)

// failurePrefixes start the log lines the downloader, driver and packer
// emit for items they could not process
var failurePrefixes = []string{"Error", "Could not", "Search for"}

func logLineStyle(line string) lipgloss.Style {
	for _, prefix := range failurePrefixes {
		if strings.HasPrefix(line, prefix) {
			return logErrorStyle
		}
	}
	return logMessageStyle
}

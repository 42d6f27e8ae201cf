package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success, acks
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors, naks
	WarningColor = lipgloss.Color("#FFA500") // Orange - diagnostics
	MutedColor   = lipgloss.Color("#626262") // Gray - timestamps, secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
	InfoColor    = lipgloss.Color("#5FAFFF") // Blue - sensor readings
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
	DefaultPadding   = 2   // Default padding inside boxes
)

// Header and result styles
var (
	HeaderTitleStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true).
				PaddingLeft(2)

	HeaderCommandStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	HeaderParamKeyStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	HeaderParamValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	ResultKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(15)

	ResultValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	TroubleshootingTitleStyle = lipgloss.NewStyle().
					Foreground(MutedColor).
					Bold(true)

	TroubleshootingItemStyle = lipgloss.NewStyle().
					Foreground(MutedColor)
)

// Monitor styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(PrimaryColor).
			Bold(true).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// KindStyles colours the kind column of the event log
	KindStyles = map[string]lipgloss.Style{
		"status":     lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true),
		"response":   lipgloss.NewStyle().Foreground(SuccessColor),
		"nak":        lipgloss.NewStyle().Foreground(ErrorColor),
		"lighting5":  lipgloss.NewStyle().Foreground(TextColor).Bold(true),
		"elec2":      lipgloss.NewStyle().Foreground(InfoColor),
		"security1":  lipgloss.NewStyle().Foreground(WarningColor).Bold(true),
		"diagnostic": lipgloss.NewStyle().Foreground(WarningColor),
		"sent":       lipgloss.NewStyle().Foreground(MutedColor),
		"error":      lipgloss.NewStyle().Foreground(ErrorColor).Bold(true),
	}
)

// Markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	WarningMarker = "⚠"
)

// kindStyle returns the style for an event log kind
func kindStyle(kind string) lipgloss.Style {
	if s, ok := KindStyles[kind]; ok {
		return s
	}
	return lipgloss.NewStyle().Foreground(TextColor)
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _ := GetTerminalSize()
	return width
}

// GetTerminalSize returns the current terminal width and height
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, 24 // Default fallback
	}
	return clampWidth(width), height
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// IsTerminal reports whether stdout is attached to a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// RenderHorizontalDivider creates a horizontal line of the specified width
func RenderHorizontalDivider(width int, char string) string {
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat(char, width))
}

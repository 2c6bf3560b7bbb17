// Package view renders the three terminal screens as plain strings.
package view

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7C3AED")
	BuyColor     = lipgloss.Color("#10B981")
	SellColor    = lipgloss.Color("#EF4444")
	NeutralColor = lipgloss.Color("#F9FAFB")
	MutedColor   = lipgloss.Color("#6B7280")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	BuyStyle = lipgloss.NewStyle().
			Foreground(BuyColor)

	SellStyle = lipgloss.NewStyle().
			Foreground(SellColor)

	NeutralStyle = lipgloss.NewStyle().
			Foreground(NeutralColor)

	FooterStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	PanelStyle = lipgloss.NewStyle().
			Padding(1, 2)
)

const (
	labelWidth = 18
	valueWidth = 26
	lineWidth  = labelWidth + valueWidth + 4
)

// ClearScreen resets the terminal before a full redraw.
const ClearScreen = "\x1bc"

func separator() string {
	return LabelStyle.Render(strings.Repeat("-", lineWidth))
}

// header renders one "label ....... value" line.
func header(label, value string, style lipgloss.Style) string {
	return LabelStyle.Render(padRight(label+":", labelWidth)) + style.Render(padLeft(value, valueWidth))
}

// trendStyle colours a value by its relation to a reference.
func trendStyle(cmp int) lipgloss.Style {
	switch {
	case cmp > 0:
		return BuyStyle
	case cmp < 0:
		return SellStyle
	default:
		return NeutralStyle
	}
}

// ratioStyle colours a ratio green at or above 1.
func ratioStyle(r float64) lipgloss.Style {
	if r >= 1.0 {
		return BuyStyle
	}
	return SellStyle
}

func formatRatio(r float64) string {
	return strconv.FormatFloat(r, 'f', 2, 64)
}

func padLeft(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return strings.Repeat(" ", n-w) + s
	}
	return s
}

func padRight(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}

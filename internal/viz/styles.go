package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2).
			Width(46)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

	StatusActive = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	StatusIdle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#888899"))
	StatusFrozen = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))
	StatusFault  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
)

// ProgressBar renders a bar of the given width filled to fraction, in color.
func ProgressBar(fraction float64, width int, color lipgloss.Color) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(width, filled))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(color).Render(bar)
}

// PowerBar renders a signed power in [-1, 1] as a bar growing from the
// center.
func PowerBar(power float64, width int) string {
	half := width / 2
	n := int(min(1, max(-1, power)) * float64(half))
	left := strings.Repeat("░", half)
	right := strings.Repeat("░", half)
	switch {
	case n > 0:
		right = strings.Repeat("█", n) + strings.Repeat("░", half-n)
	case n < 0:
		left = strings.Repeat("░", half+n) + strings.Repeat("█", -n)
	}
	return left + "│" + right
}

func Separator(width int) string {
	mid := width / 2
	return helpStyle.Render(strings.Repeat("─", max(0, mid-3)) + " ◆ " + strings.Repeat("─", max(0, width-mid-3)))
}

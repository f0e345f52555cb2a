// Package theme holds the terminal styles shared by the CLI and the
// text report.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/finmail/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// TitleStyle is used for report titles and command headers.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// SectionStyle labels a block of output such as "Summary".
var SectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)

var (
	Bold    = lipgloss.NewStyle().Bold(true)
	Muted   = lipgloss.NewStyle().Foreground(ColorGray)
	Success = lipgloss.NewStyle().Foreground(ColorGreen)
	Failure = lipgloss.NewStyle().Foreground(ColorRed)
	Money   = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
)

// TableHeaderStyle is applied to the header row of tables.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue).
	Padding(0, 1)

// TableCellStyle is the base style for table cells.
var TableCellStyle = lipgloss.NewStyle().Padding(0, 1)

// DetailPanelStyle wraps a message body.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// StatusStyle returns a color-coded style for an insight status.
func StatusStyle(status model.InsightStatus) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch status {
	case model.StatusNew:
		return base.Foreground(ColorBlue)
	case model.StatusPending:
		return base.Foreground(ColorYellow)
	case model.StatusPaid:
		return base.Foreground(ColorGreen)
	case model.StatusOverdue:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// TypeStyle returns a color-coded style for an insight type.
func TypeStyle(t model.InsightType) lipgloss.Style {
	base := lipgloss.NewStyle()

	switch t {
	case model.InsightBillDue:
		return base.Foreground(ColorOrange)
	case model.InsightPriceIncrease:
		return base.Foreground(ColorRed)
	case model.InsightSubscriptionRenewal:
		return base.Foreground(ColorMagenta)
	case model.InsightPaymentConfirmation:
		return base.Foreground(ColorGreen)
	case model.InsightInvestmentUpdate:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// Capitalize upper-cases the first letter, e.g. "paid" to "Paid".
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/finmail/internal/model"
	"github.com/nhle/finmail/internal/theme"
)

// ReportOptions controls the header of a text report.
type ReportOptions struct {
	// Owner is shown in the title when set.
	Owner string

	// DateFrom and DateTo echo the filter the insights were queried with.
	DateFrom *time.Time
	DateTo   *time.Time

	// Now anchors the upcoming-bills window. Zero means time.Now.
	Now time.Time
}

// Report writes a titled table of insights followed by summary totals.
func Report(w io.Writer, insights []model.Insight, opts ReportOptions) error {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder

	title := "Financial Insights Report"
	if opts.Owner != "" {
		title += " for " + opts.Owner
	}
	b.WriteString(theme.TitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(theme.Muted.Render("Generated " + now.Format("2006-01-02")))
	b.WriteString("\n")
	if opts.DateFrom != nil || opts.DateTo != nil {
		b.WriteString(dateRange(opts.DateFrom, opts.DateTo))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(insights) == 0 {
		b.WriteString(theme.Muted.Render("No insights found."))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(insightTable(insights).String())
	b.WriteString("\n\n")

	totals := Summary(insights, now)
	b.WriteString(theme.SectionStyle.Render("Summary Statistics"))
	b.WriteString("\n")
	writeTotal(&b, "Total Bills Amount:", totals.TotalBills)
	writeTotal(&b, "Total Amount Due:", totals.AmountDue)
	writeTotal(&b, "Upcoming Bills (Next 30 Days):", totals.Upcoming)

	_, err := io.WriteString(w, b.String())
	return err
}

func insightTable(insights []model.Insight) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("Date", "Type", "Description", "Amount", "Due Date", "Status")

	for _, in := range insights {
		amount := "-"
		if in.Amount != nil {
			amount = in.Amount.Dollars()
		}
		t.Row(
			in.CreatedAt.UTC().Format("2006-01-02"),
			in.Type.Label(),
			in.Description,
			amount,
			dateText(in.Date, "-"),
			theme.Capitalize(string(in.Status)),
		)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return theme.TableHeaderStyle
		}
		style := theme.TableCellStyle
		if row >= 0 && row < len(insights) {
			switch col {
			case 1:
				style = style.Inherit(theme.TypeStyle(insights[row].Type))
			case 3:
				style = style.Align(lipgloss.Right)
			case 5:
				style = style.Inherit(theme.StatusStyle(insights[row].Status))
			}
		}
		return style
	})
	return t
}

func dateRange(from, to *time.Time) string {
	start, end := "All", "Present"
	if from != nil {
		start = from.Format("2006-01-02")
	}
	if to != nil {
		end = to.Format("2006-01-02")
	}
	return fmt.Sprintf("Date Range: %s to %s", start, end)
}

func writeTotal(b *strings.Builder, label string, m model.Money) {
	fmt.Fprintf(b, "%-32s %s\n", label, theme.Money.Render(m.Dollars()))
}

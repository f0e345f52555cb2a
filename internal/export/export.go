// Package export renders stored insights as CSV, JSON or a formatted
// text report.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nhle/finmail/internal/model"
)

// Format names an export format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatReport Format = "report"
)

// ParseFormat matches a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatReport:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// createdLayout formats created_at in CSV and report output.
const createdLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"Date", "Type", "Description", "Amount", "Due Date", "Status", "Source"}

// CSV writes one row per insight under a header row. Nothing at all is
// written for an empty list. The Due Date column carries the insight's
// date whatever its kind.
func CSV(w io.Writer, insights []model.Insight) error {
	if len(insights) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, in := range insights {
		record := []string{
			in.CreatedAt.UTC().Format(createdLayout),
			string(in.Type),
			in.Description,
			amountText(in.Amount, ""),
			dateText(in.Date, ""),
			string(in.Status),
			in.Source.EmailSubject,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %s: %w", in.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// record is the JSON export shape of one insight.
type record struct {
	ID          string              `json:"id"`
	Type        model.InsightType   `json:"type"`
	Description string              `json:"description"`
	Amount      *model.Money        `json:"amount"`
	DueDate     *model.Date         `json:"due_date"`
	Status      model.InsightStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	Source      model.InsightSource `json:"source"`
}

// JSON writes a pretty-printed array. An empty list is written as [].
func JSON(w io.Writer, insights []model.Insight) error {
	records := make([]record, 0, len(insights))
	for _, in := range insights {
		records = append(records, record{
			ID:          in.ID,
			Type:        in.Type,
			Description: in.Description,
			Amount:      in.Amount,
			DueDate:     in.Date,
			Status:      in.Status,
			CreatedAt:   in.CreatedAt.UTC(),
			Source:      in.Source,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding insights: %w", err)
	}
	return nil
}

// Write renders insights in the given format.
func Write(w io.Writer, format Format, insights []model.Insight, opts ReportOptions) error {
	switch format {
	case FormatCSV:
		return CSV(w, insights)
	case FormatJSON:
		return JSON(w, insights)
	case FormatReport:
		return Report(w, insights, opts)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func amountText(m *model.Money, none string) string {
	if m == nil {
		return none
	}
	return m.String()
}

func dateText(d *model.Date, none string) string {
	if d == nil {
		return none
	}
	return d.String()
}

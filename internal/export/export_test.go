package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/finmail/internal/model"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func bill(id, amount string, due model.Date, status model.InsightStatus) model.Insight {
	return model.Insight{
		ID:          id,
		Type:        model.InsightBillDue,
		Description: "Bill or payment due",
		Amount:      model.Ptr(model.MustMoney(amount)),
		Date:        model.Ptr(due),
		Status:      status,
		Source:      model.InsightSource{EmailSubject: "Statement for " + id, From: "billing@example.com"},
		CreatedAt:   time.Date(2024, 2, 20, 8, 30, 0, 0, time.UTC),
	}
}

func sample() []model.Insight {
	return []model.Insight{
		bill("b1", "45.99", "2024-03-15", model.StatusNew),
		bill("b2", "100.00", "2024-05-01", model.StatusPending),
		bill("b3", "20.00", "2024-03-10", model.StatusPaid),
		{
			ID:          "r1",
			Type:        model.InsightSubscriptionRenewal,
			Description: "Subscription renewal",
			Amount:      model.Ptr(model.MustMoney("9.99")),
			Date:        model.Ptr(model.Date("2024-03-20")),
			Status:      model.StatusNew,
			Source:      model.InsightSource{EmailSubject: "Your plan renews, soon"},
			CreatedAt:   time.Date(2024, 2, 21, 8, 30, 0, 0, time.UTC),
		},
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sample()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, []string{"Date", "Type", "Description", "Amount", "Due Date", "Status", "Source"}, rows[0])
	assert.Equal(t, []string{
		"2024-02-20 08:30:00", "bill_due", "Bill or payment due", "45.99", "2024-03-15", "new", "Statement for b1",
	}, rows[1])
	// Renewal dates land in the Due Date column; commas survive quoting.
	assert.Equal(t, "2024-03-20", rows[4][4])
	assert.Equal(t, "Your plan renews, soon", rows[4][6])
}

func TestCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestCSVMissingOptionalFields(t *testing.T) {
	in := model.Insight{
		Type:        model.InsightInvestmentUpdate,
		Description: "Investment update",
		Status:      model.StatusNew,
		CreatedAt:   now,
	}

	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, []model.Insight{in}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[1][3])
	assert.Equal(t, "", rows[1][4])
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sample()[:1]))

	assert.True(t, strings.HasPrefix(buf.String(), "[\n  {"), "pretty printed")

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0]["id"])
	assert.Equal(t, "bill_due", got[0]["type"])
	assert.Equal(t, 45.99, got[0]["amount"])
	assert.Equal(t, "2024-03-15", got[0]["due_date"])
	assert.Equal(t, "new", got[0]["status"])
	assert.Equal(t, "2024-02-20T08:30:00Z", got[0]["created_at"])

	source, ok := got[0]["source"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Statement for b1", source["email_subject"])
}

func TestJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, nil))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestSummary(t *testing.T) {
	totals := Summary(sample(), now)

	assert.Equal(t, 3, totals.Bills)
	assert.Equal(t, "165.99", totals.TotalBills.String())
	// Paid bills are not due.
	assert.Equal(t, "145.99", totals.AmountDue.String())
	// b2 falls outside the 30-day window; the renewal is not a bill.
	assert.Equal(t, "45.99", totals.Upcoming.String())
}

func TestSummaryWindowIsExclusive(t *testing.T) {
	today := bill("t", "1.00", "2024-03-01", model.StatusNew)
	edge := bill("e", "2.00", "2024-03-31", model.StatusNew)
	inside := bill("i", "4.00", "2024-03-30", model.StatusNew)
	noAmount := bill("n", "0", "2024-03-05", model.StatusNew)
	noAmount.Amount = nil

	midnight := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	totals := Summary([]model.Insight{today, edge, inside, noAmount}, midnight)

	assert.Equal(t, "7.00", totals.AmountDue.String())
	assert.Equal(t, "4.00", totals.Upcoming.String())
	assert.Equal(t, 3, totals.Bills)
}

func TestReport(t *testing.T) {
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, sample(), ReportOptions{Owner: "me@example.com", DateFrom: &from, Now: now}))

	out := buf.String()
	assert.Contains(t, out, "Financial Insights Report for me@example.com")
	assert.Contains(t, out, "Date Range: 2024-02-01 to Present")
	assert.Contains(t, out, "Bill due")
	assert.Contains(t, out, "$45.99")
	assert.Contains(t, out, "Pending")
	assert.Contains(t, out, "Summary Statistics")
	assert.Contains(t, out, "$165.99")
	assert.Contains(t, out, "$145.99")
}

func TestReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, nil, ReportOptions{Now: now}))

	assert.Contains(t, buf.String(), "No insights found.")
	assert.NotContains(t, buf.String(), "Summary Statistics")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"JSON", FormatJSON, false},
		{" report ", FormatReport, false},
		{"", FormatCSV, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

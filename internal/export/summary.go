package export

import (
	"time"

	"github.com/nhle/finmail/internal/model"
)

// UpcomingWindow is how far ahead a bill counts as upcoming.
const UpcomingWindow = 30 * 24 * time.Hour

// Totals aggregates the bills in a set of insights.
type Totals struct {
	// TotalBills sums every bill_due amount.
	TotalBills model.Money `json:"total_bills"`

	// AmountDue sums bill_due amounts whose status is new or pending.
	AmountDue model.Money `json:"amount_due"`

	// Upcoming sums the part of AmountDue falling due strictly after
	// now and strictly before now plus UpcomingWindow.
	Upcoming model.Money `json:"upcoming"`

	Bills int `json:"bills"`
}

// Summary computes Totals as of now. Bills without an amount are
// ignored.
func Summary(insights []model.Insight, now time.Time) Totals {
	var t Totals
	horizon := now.Add(UpcomingWindow)

	for _, in := range insights {
		if in.Type != model.InsightBillDue || in.Amount == nil {
			continue
		}
		t.Bills++
		t.TotalBills += *in.Amount

		if !in.Status.Outstanding() && in.Status != "" {
			continue
		}
		t.AmountDue += *in.Amount

		if in.Date == nil {
			continue
		}
		due := in.Date.Time()
		if !due.IsZero() && due.After(now) && due.Before(horizon) {
			t.Upcoming += *in.Amount
		}
	}
	return t
}

package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// InsightType identifies the kind of financial signal an insight records.
type InsightType string

const (
	InsightBillDue             InsightType = "bill_due"
	InsightPriceIncrease       InsightType = "price_increase"
	InsightSubscriptionRenewal InsightType = "subscription_renewal"
	InsightPaymentConfirmation InsightType = "payment_confirmation"
	InsightInvestmentUpdate    InsightType = "investment_update"
)

// InsightTypes lists every insight type in classification order.
var InsightTypes = []InsightType{
	InsightBillDue,
	InsightPriceIncrease,
	InsightSubscriptionRenewal,
	InsightPaymentConfirmation,
	InsightInvestmentUpdate,
}

// Valid reports whether t is a known insight type.
func (t InsightType) Valid() bool {
	for _, known := range InsightTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DateField returns the wire name of the one date field an insight of
// this type may carry.
func (t InsightType) DateField() string {
	switch t {
	case InsightBillDue:
		return "due_date"
	case InsightPriceIncrease:
		return "effective_date"
	case InsightSubscriptionRenewal:
		return "renewal_date"
	case InsightPaymentConfirmation:
		return "payment_date"
	case InsightInvestmentUpdate:
		return "statement_date"
	default:
		return "date"
	}
}

// Label is a human-readable name, e.g. "Bill due".
func (t InsightType) Label() string {
	s := strings.ReplaceAll(string(t), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// InsightStatus tracks what the user has done about an insight.
type InsightStatus string

const (
	StatusNew     InsightStatus = "new"
	StatusPending InsightStatus = "pending"
	StatusPaid    InsightStatus = "paid"
	StatusOverdue InsightStatus = "overdue"
)

// Valid reports whether s is a known status.
func (s InsightStatus) Valid() bool {
	switch s {
	case StatusNew, StatusPending, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// Outstanding reports whether money is still owed for an insight in
// this status.
func (s InsightStatus) Outstanding() bool {
	return s == StatusNew || s == StatusPending
}

// InsightSource points back at the message an insight came from.
type InsightSource struct {
	EmailSubject string `json:"email_subject"`
	From         string `json:"from"`
}

// Insight is a structured financial fact derived from one email.
//
// An insight carries at most one date. Its meaning (due, effective,
// renewal, payment or statement date) follows from Type, so the single
// Date field cannot hold a date of the wrong kind.
type Insight struct {
	ID          string      `json:"id,omitempty"`
	UserID      string      `json:"-"`
	MessageID   string      `json:"-"`
	Type        InsightType `json:"type"`
	Description string      `json:"description"`

	Amount *Money `json:"amount,omitempty"`

	// Price increases only.
	OldAmount  *Money   `json:"old_amount,omitempty"`
	NewAmount  *Money   `json:"new_amount,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`

	// Investment updates only.
	PerformanceChange *float64 `json:"performance_change,omitempty"`
	TotalValue        *Money   `json:"total_value,omitempty"`

	Date *Date `json:"-"`

	Status    InsightStatus `json:"status"`
	Source    InsightSource `json:"source"`
	CreatedAt time.Time     `json:"created_at"`
}

// insightDates carries an insight's single date under the key its type
// implies. Only one field is ever set.
type insightDates struct {
	DueDate       *Date `json:"due_date,omitempty"`
	EffectiveDate *Date `json:"effective_date,omitempty"`
	RenewalDate   *Date `json:"renewal_date,omitempty"`
	PaymentDate   *Date `json:"payment_date,omitempty"`
	StatementDate *Date `json:"statement_date,omitempty"`
	Other         *Date `json:"date,omitempty"`
}

// MarshalJSON writes the insight's date under the key its type implies,
// after the common fields.
func (in Insight) MarshalJSON() ([]byte, error) {
	type plain Insight

	var dates insightDates
	switch in.Type {
	case InsightBillDue:
		dates.DueDate = in.Date
	case InsightPriceIncrease:
		dates.EffectiveDate = in.Date
	case InsightSubscriptionRenewal:
		dates.RenewalDate = in.Date
	case InsightPaymentConfirmation:
		dates.PaymentDate = in.Date
	case InsightInvestmentUpdate:
		dates.StatementDate = in.Date
	default:
		dates.Other = in.Date
	}

	return json.Marshal(struct {
		plain
		insightDates
	}{plain(in), dates})
}

// Validate checks the invariants an insight must satisfy before it is
// persisted.
func (in Insight) Validate() error {
	if !in.Type.Valid() {
		return fmt.Errorf("unknown insight type %q", in.Type)
	}
	if in.Status != "" && !in.Status.Valid() {
		return fmt.Errorf("unknown insight status %q", in.Status)
	}
	if in.Type != InsightPriceIncrease &&
		(in.OldAmount != nil || in.NewAmount != nil || in.Percentage != nil) {
		return fmt.Errorf("%s insight carries price-change fields", in.Type)
	}
	if in.Type != InsightInvestmentUpdate &&
		(in.PerformanceChange != nil || in.TotalValue != nil) {
		return fmt.Errorf("%s insight carries investment fields", in.Type)
	}
	return nil
}

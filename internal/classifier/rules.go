package classifier

import (
	"strings"

	"github.com/nhle/finmail/internal/model"
)

// Rule detects one insight type. The keyword gate runs first; Extract
// only sees messages that passed it.
type Rule struct {
	Type        model.InsightType
	Description string

	// Keywords are matched case-insensitively as substrings of the
	// subject or the body.
	Keywords []string

	// Extract fills the type-specific fields of in from the body text
	// and reports whether enough was found for the rule to fire.
	Extract func(text string, in *model.Insight) bool
}

// gate returns the first keyword found in subject or body, or "" when
// none matches. Both arguments must already be lower-cased.
func (r Rule) gate(subject, body string) string {
	for _, kw := range r.Keywords {
		kw = strings.ToLower(kw)
		if strings.Contains(subject, kw) || strings.Contains(body, kw) {
			return kw
		}
	}
	return ""
}

// DefaultRules returns the built-in rules in the order their insights
// are reported.
func DefaultRules() []Rule {
	return []Rule{
		{
			Type:        model.InsightBillDue,
			Description: "Bill or payment due",
			Keywords: []string{
				"bill", "invoice", "statement", "payment due", "amount due",
				"due date", "please pay", "utility bill", "electricity bill",
				"gas bill", "water bill", "phone bill", "credit card statement",
				"balance due", "minimum payment", "autopay", "payment reminder",
				"past due",
			},
			Extract: func(text string, in *model.Insight) bool {
				in.Date = dueDates.extract(text)
				in.Amount = extractAmount(text)
				return in.Date != nil || in.Amount != nil
			},
		},
		{
			Type:        model.InsightPriceIncrease,
			Description: "Price increase detected",
			Keywords: []string{
				"price increase", "rate increase", "price change", "new pricing",
				"price adjustment", "inflation adjustment", "fee increase",
				"raising our prices", "updating our pricing",
				"changes to your subscription", "changes to your plan",
			},
			Extract: func(text string, in *model.Insight) bool {
				in.Percentage = extractPercentage(text)
				in.OldAmount, in.NewAmount = extractPriceChange(text)
				in.Date = effectiveDates.extract(text)
				return in.Percentage != nil || (in.OldAmount != nil && in.NewAmount != nil)
			},
		},
		{
			Type:        model.InsightSubscriptionRenewal,
			Description: "Subscription renewal",
			Keywords: []string{
				"subscription", "membership", "renew", "renewal", "auto-renewal",
				"recurring", "will renew", "will be renewed", "will be charged",
				"will automatically renew", "subscription confirmation",
				"membership confirmation",
			},
			Extract: func(text string, in *model.Insight) bool {
				in.Date = renewalDates.extract(text)
				in.Amount = extractAmount(text)
				return in.Date != nil || in.Amount != nil
			},
		},
		{
			Type:        model.InsightPaymentConfirmation,
			Description: "Payment confirmation",
			Keywords: []string{
				"payment confirmation", "payment receipt", "payment successful",
				"payment processed", "thank you for your payment",
				"payment received", "transaction confirmation",
				"order confirmation", "receipt", "invoice paid",
				"payment completed",
			},
			Extract: func(text string, in *model.Insight) bool {
				in.Amount = extractAmount(text)
				if in.Amount == nil {
					return false
				}
				in.Date = paymentDates.extract(text)
				return true
			},
		},
		{
			Type:        model.InsightInvestmentUpdate,
			Description: "Investment update",
			Keywords: []string{
				"portfolio", "investment", "brokerage", "dividend", "holdings",
				"market value", "account value", "quarterly statement",
				"performance summary",
			},
			Extract: func(text string, in *model.Insight) bool {
				in.PerformanceChange = extractPerformance(text)
				in.TotalValue = extractAmount(text)
				in.Date = statementDates.extract(text)
				return in.PerformanceChange != nil || in.TotalValue != nil
			},
		},
	}
}

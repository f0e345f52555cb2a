package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nhle/finmail/internal/model"
)

const amountExpr = `(\d+(?:,\d{3})*(?:\.\d{2})?)`

// amountRules are tried in order. The first pattern with a usable match
// wins.
var amountRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:amount|total|payment|charge|fee|price)\b(?:\s+(?:due|of))?\s*:?\s*\$?` + amountExpr),
	regexp.MustCompile(`(?i)\$` + amountExpr + `\s+(?:amount|total|payment|charge|fee|price)\b`),
	regexp.MustCompile(`\$` + amountExpr),
	regexp.MustCompile(`(?i)` + amountExpr + `\s*(?:USD|dollars)\b`),
}

// extractAmount returns the first monetary figure found by amountRules.
func extractAmount(text string) *model.Money {
	for _, re := range amountRules {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2], m[3]
			if partOfDate(text, end) {
				continue
			}
			if amount, err := model.ParseMoney(text[start:end]); err == nil {
				return &amount
			}
		}
	}
	return nil
}

// partOfDate reports whether the number ending at end continues as a
// date such as 03/15/2024, so "amount due 03/15/2024" is not read as 3.00.
func partOfDate(text string, end int) bool {
	if end+1 >= len(text) {
		return false
	}
	switch text[end] {
	case '/', '-', '.':
		return text[end+1] >= '0' && text[end+1] <= '9'
	}
	return false
}

const (
	percentExpr = `([+-]?\d+(?:\.\d+)?)\s*(?:%|percent)`
	changeExpr  = `(\d+(?:,\d{3})*(?:\.\d+)?)`
)

// percentageRules find the size of a price change.
var percentageRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:increase|change|adjustment|raising|up)\s+(?:of|by)\s+(\d+(?:\.\d+)?)\s*(?:%|percent)`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:%|percent)\s+(?:increase|change|adjustment|higher|more)`),
}

// priceChange matches "from $X to $Y".
var priceChange = regexp.MustCompile(`(?i)from\s+\$?` + changeExpr + `\s+to\s+\$?` + changeExpr)

// performanceRules find a portfolio's percentage change.
var performanceRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:up|down|gained|lost|rose|fell|increased|decreased|changed?|returned)\s+(?:by\s+)?` + percentExpr),
	regexp.MustCompile(`(?i)` + percentExpr + `\s+(?:gain|loss|return|increase|decrease|change|growth|decline)`),
	regexp.MustCompile(`(?i)(?:performance|return|change)\s*:?\s*` + percentExpr),
}

// negativeWording marks a performance figure as a loss.
var negativeWording = regexp.MustCompile(`(?i)\b(?:decrease[sd]?|down|loss(?:es)?|lost|negative|declined?|fell)\b`)

func extractPercentage(text string) *float64 {
	m := firstMatch(percentageRules, text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

func extractPriceChange(text string) (from, to *model.Money) {
	m := priceChange.FindStringSubmatch(text)
	if m == nil {
		return nil, nil
	}
	old, errOld := model.ParseMoney(m[1])
	updated, errNew := model.ParseMoney(m[2])
	if errOld != nil || errNew != nil {
		return nil, nil
	}
	return &old, &updated
}

// extractPerformance returns a signed percentage change. An explicit sign
// is kept; otherwise the figure is negated when the text talks about a
// loss.
func extractPerformance(text string) *float64 {
	m := firstMatch(performanceRules, text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	if !strings.HasPrefix(m[1], "-") && !strings.HasPrefix(m[1], "+") && negativeWording.MatchString(text) {
		v = -v
	}
	return &v
}

func firstMatch(rules []*regexp.Regexp, text string) []string {
	for _, re := range rules {
		if m := re.FindStringSubmatch(text); m != nil {
			return m
		}
	}
	return nil
}

package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/finmail/internal/model"
)

// dateForm says how the three capture groups of a date pattern map to
// year, month and day.
type dateForm int

const (
	formISO       dateForm = iota // 2024-03-15
	formNumeric                   // 03/15/2024, month first
	formMonthDay                  // March 15, 2024
	formDayMonth                  // 15 March 2024
)

// Date literal bodies, appended to an anchor phrase.
var dateBodies = []struct {
	form dateForm
	expr string
}{
	{formISO, `(\d{4})-(\d{2})-(\d{2})\b`},
	{formNumeric, `(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})`},
	{formMonthDay, `([A-Za-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,\s*(\d{4})`},
	{formDayMonth, `(\d{1,2})(?:st|nd|rd|th)?\s+([A-Za-z]+)\.?\s+(\d{4})`},
}

type datePattern struct {
	re   *regexp.Regexp
	form dateForm
}

// dateRules is an ordered list of date patterns; the first one that
// matches decides the result.
type dateRules []datePattern

// anchoredDates builds date patterns that only match right after one of
// the anchor phrases. Patterns are ordered by date form first, then by
// anchor, so a numeric date near any anchor beats a spelled-out one.
func anchoredDates(anchors ...string) dateRules {
	var rules dateRules
	for _, body := range dateBodies {
		for _, anchor := range anchors {
			rules = append(rules, datePattern{
				re:   regexp.MustCompile(`(?i)` + anchor + body.expr),
				form: body.form,
			})
		}
	}
	return rules
}

// extract returns the date found by the first matching pattern. A match
// that does not form a real calendar date yields nil rather than falling
// through to later patterns.
func (rules dateRules) extract(text string) *model.Date {
	for _, p := range rules {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		d, ok := p.form.date(m[1], m[2], m[3])
		if !ok {
			return nil
		}
		return &d
	}
	return nil
}

func (f dateForm) date(a, b, c string) (model.Date, bool) {
	var year, day int
	var month time.Month
	var ok bool

	switch f {
	case formISO:
		year, month, day = atoi(a), time.Month(atoi(b)), atoi(c)
		ok = true
	case formNumeric:
		month, day, year = time.Month(atoi(a)), atoi(b), atoi(c)
		ok = true
	case formMonthDay:
		month, ok = monthByName(a)
		day, year = atoi(b), atoi(c)
	case formDayMonth:
		month, ok = monthByName(b)
		day, year = atoi(a), atoi(c)
	}
	if !ok {
		return "", false
	}
	return model.NewDate(year, month, day)
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

func monthByName(name string) (time.Month, bool) {
	m, ok := months[strings.ToLower(name)]
	return m, ok
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// Anchor phrases preceding each kind of date.
var (
	dueDates = anchoredDates(
		`due\s+(?:date|on|by)?\s*:?\s*`,
		`(?:due|pay)(?:\s+by|\s+before|\s+on)?\s+`,
	)
	effectiveDates = anchoredDates(
		`effective\s+(?:date|on|from)?\s*:?\s*`,
		`(?:starting|begins|beginning|commencing|from)\s+`,
	)
	renewalDates = anchoredDates(
		`(?:renew|renewal|renews|renewed|auto.?renew|automatically\s+renew)\s+(?:on|date)?\s*:?\s*`,
	)
	paymentDates = anchoredDates(
		`(?:payment|transaction|paid)\s+(?:date|on)?\s*:?\s*`,
	)
	statementDates = anchoredDates(
		`(?:statement\s+date|as\s+of|period\s+ending|for\s+the\s+period\s+ended)\s*:?\s*`,
	)
)

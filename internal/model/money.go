package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Money is an amount in cents. It always renders with two decimals.
type Money int64

// ParseMoney parses a decimal figure such as "1,234.5" or "45.99".
// Thousands separators are stripped and the value is rounded to cents.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if units < 0 || units > (1<<62)/100 {
		return 0, fmt.Errorf("amount %q out of range", s)
	}

	var cents int64
	if frac != "" {
		for _, r := range frac {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("parsing amount %q: bad fraction", s)
			}
		}
		// Round half up on the third decimal.
		padded := (frac + "000")[:3]
		thousandths, _ := strconv.ParseInt(padded, 10, 64)
		cents = (thousandths + 5) / 10
	}

	return Money(units*100 + cents), nil
}

// MustMoney is ParseMoney for literals in tests and tables.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Float returns the amount in currency units.
func (m Money) Float() float64 {
	return float64(m) / 100
}

// String formats the amount with exactly two decimals, e.g. "45.99".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Dollars formats the amount with a dollar sign and thousands
// separators, e.g. "$1,234.50".
func (m Money) Dollars() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(v/100), v%100)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMoney(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// DateLayout is the canonical date representation.
const DateLayout = "2006-01-02"

// Date is a calendar date in canonical YYYY-MM-DD form.
type Date string

// NewDate builds a Date, rejecting impossible calendar dates such as
// February 30.
func NewDate(year int, month time.Month, day int) (Date, bool) {
	if year < 1 || month < time.January || month > time.December || day < 1 {
		return "", false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return "", false
	}
	return Date(t.Format(DateLayout)), true
}

// ParseDate parses a canonical YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", s, err)
	}
	return Date(t.Format(DateLayout)), nil
}

// Time returns midnight UTC on the date. The zero time is returned for
// malformed values.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// String returns the canonical form.
func (d Date) String() string {
	return string(d)
}

// Ptr returns a pointer to v, for populating optional insight fields.
func Ptr[T any](v T) *T {
	return &v
}

package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Month is a calendar month with first-of-month semantics, stored as the
// number of months since January of year 0.
type Month int

const (
	// UnknownMonth marks a value that could not be parsed as a month.
	UnknownMonth Month = -1

	// MinMonth and MaxMonth bound every month the parser accepts.
	MinMonth Month = 12           // January 0001
	MaxMonth Month = 9999*12 + 11 // December 9999
)

// ErrUnparseableMonth is returned by ParseMonth for values no layout accepts.
var ErrUnparseableMonth = errors.New("unparseable month")

// monthLayouts are tried in order. Day-first slashed dates follow the UK
// convention of the source data.
var monthLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006",
	"2/1/2006",
	"Jan-2006",
	"Jan 2006",
	"January 2006",
	"January-2006",
	"200601",
}

// NewMonth builds a Month from a year and calendar month.
func NewMonth(year int, month time.Month) Month {
	return Month(year*12 + int(month) - 1)
}

// MonthOf truncates t to its calendar month.
func MonthOf(t time.Time) Month {
	return NewMonth(t.Year(), t.Month())
}

// ParseMonth parses s with the accepted month layouts.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownMonth, fmt.Errorf("%w: empty value", ErrUnparseableMonth)
	}
	for _, layout := range monthLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		m := MonthOf(t)
		if m < MinMonth || m > MaxMonth {
			break
		}
		return m, nil
	}
	return UnknownMonth, fmt.Errorf("%w: %q", ErrUnparseableMonth, s)
}

// MonthOrUnknown parses s and maps any failure to UnknownMonth.
func MonthOrUnknown(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		return UnknownMonth
	}
	return m
}

// IsKnown reports whether m is a real calendar month.
func (m Month) IsKnown() bool {
	return m >= MinMonth && m <= MaxMonth
}

// Year returns the calendar year of m.
func (m Month) Year() int {
	return int(m) / 12
}

// Month returns the calendar month of m.
func (m Month) Month() time.Month {
	return time.Month(int(m)%12 + 1)
}

// Time returns midnight UTC on the first day of m. Unknown months map to
// the zero time.
func (m Month) Time() time.Time {
	if !m.IsKnown() {
		return time.Time{}
	}
	return time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths shifts m by n months. Unknown months stay unknown.
func (m Month) AddMonths(n int) Month {
	if !m.IsKnown() {
		return m
	}
	return m + Month(n)
}

// String formats m as YYYY-MM.
func (m Month) String() string {
	if !m.IsKnown() {
		return "unknown"
	}
	return fmt.Sprintf("%04d-%02d", m.Year(), int(m.Month()))
}

// Label formats m the way the dashboard titles it, e.g. "Jan 2024".
func (m Month) Label() string {
	if !m.IsKnown() {
		return "Unknown"
	}
	return m.Time().Format("Jan 2006")
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Month) UnmarshalText(b []byte) error {
	if string(b) == "unknown" {
		*m = UnknownMonth
		return nil
	}
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// CompareMonths orders known months chronologically and places unknown
// months after every known one.
func CompareMonths(a, b Month) int {
	ak, bk := a.IsKnown(), b.IsKnown()
	switch {
	case !ak && !bk:
		return 0
	case !ak:
		return 1
	case !bk:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// DateRange is an inclusive month range.
type DateRange struct {
	From Month `json:"from"`
	To   Month `json:"to"`
}

// AllTime returns the range covering every known month.
func AllTime() DateRange {
	return DateRange{From: MinMonth, To: MaxMonth}
}

// Contains reports whether m lies inside r. Unknown months are never
// contained.
func (r DateRange) Contains(m Month) bool {
	return m.IsKnown() && r.From <= m && m <= r.To
}

// Validate checks that both bounds are known and ordered.
func (r DateRange) Validate() error {
	if !r.From.IsKnown() || !r.To.IsKnown() {
		return fmt.Errorf("date range bounds must be known months")
	}
	if r.From > r.To {
		return fmt.Errorf("date range from %s is after to %s", r.From, r.To)
	}
	return nil
}

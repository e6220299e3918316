package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month is a calendar year-month bucket, rendered as "2006-01".
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the bucket containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	y, m, ok := strings.Cut(s, "-")
	if !ok || len(y) != 4 || len(m) == 0 || len(m) > 2 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// MarshalText renders m as "YYYY-MM", so months read naturally in JSON.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Prev returns the previous calendar month.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// DaysIn returns the number of days in the month.
func (m Month) DaysIn() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay bounds day to [1, DaysIn]; it never overflows into the next month.
func (m Month) ClampDay(day int) int {
	if day < 1 {
		return 1
	}
	if last := m.DaysIn(); day > last {
		return last
	}
	return day
}

// Date returns the clamped calendar date for day in this month.
func (m Month) Date(day int) time.Time {
	return NewDate(m.Year, m.Month, m.ClampDay(day))
}

// Contains reports whether t falls in this month.
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// MonthOptions returns past months up to and including the current one, plus
// future months after it, in ascending order.
func MonthOptions(today time.Time, past, future int) []Month {
	cur := MonthOf(today)
	start := cur
	for i := 1; i < past; i++ {
		start = start.Prev()
	}
	end := cur
	for i := 0; i < future; i++ {
		end = end.Next()
	}
	var out []Month
	for m := start; !end.Before(m); m = m.Next() {
		out = append(out, m)
	}
	return out
}

package report

import (
	"fmt"
	"time"
)

// dayLayout is the storage format for snapshot dates.
const dayLayout = "2006-01-02"

// neverDay is the sentinel the snapshot joins fall back to when an
// actor never performed the relevant activity. It decodes to a nil
// cell, never to a real calendar day.
var neverDay = Day{Year: 1900, Month: 1, DayOfMonth: 1}

// Day is a single calendar day. The zero value is invalid; use
// ParseDay or NewDay.
type Day struct {
	Year       int
	Month      int // 1-based
	DayOfMonth int
}

// NewDay builds a Day from calendar components (1-based month).
func NewDay(year, month, dayOfMonth int) Day {
	return Day{Year: year, Month: month, DayOfMonth: dayOfMonth}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return Day{Year: t.Year(), Month: int(t.Month()), DayOfMonth: t.Day()}, nil
}

// String renders the storage form, YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.DayOfMonth)
}

// Compact renders YYYYMMDD, used for join alias names.
func (d Day) Compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.DayOfMonth)
}

// AddDays returns the day n calendar days later (n may be negative).
func (d Day) AddDays(n int) Day {
	t := d.time().AddDate(0, 0, n)
	return Day{Year: t.Year(), Month: int(t.Month()), DayOfMonth: t.Day()}
}

// Before reports whether d is strictly before other.
func (d Day) Before(other Day) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.DayOfMonth < other.DayOfMonth
}

// Equal reports calendar-day equality.
func (d Day) Equal(other Day) bool {
	return d.Year == other.Year && d.Month == other.Month && d.DayOfMonth == other.DayOfMonth
}

// DaysUntil returns the number of calendar days from d to other
// (negative if other precedes d).
func (d Day) DaysUntil(other Day) int {
	return int(other.time().Sub(d.time()) / (24 * time.Hour))
}

// IsZero reports whether d is the zero value.
func (d Day) IsZero() bool {
	return d == Day{}
}

// Triple encodes the day for wire transport as [year, month, day]
// with a zero-based month.
func (d Day) Triple() []int {
	return []int{d.Year, d.Month - 1, d.DayOfMonth}
}

// DayFromTriple decodes a [year, month(0-based), day] triple.
func DayFromTriple(t []int) (Day, error) {
	if len(t) != 3 {
		return Day{}, fmt.Errorf("date triple must have 3 elements, got %d", len(t))
	}
	return Day{Year: t[0], Month: t[1] + 1, DayOfMonth: t[2]}, nil
}

func (d Day) time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.DayOfMonth, 0, 0, 0, 0, time.UTC)
}

// MarshalJSON renders the day as its YYYY-MM-DD string form.
func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses the YYYY-MM-DD string form.
func (d *Day) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("day must be a %q string", dayLayout)
	}
	parsed, err := ParseDay(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

package engine

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date layout used on the wire and in the store.
const DateLayout = "2006-01-02"

// Date is a calendar date without a time of day, held at midnight UTC.
type Date struct {
	time.Time
}

// NewDate returns the date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date in the timestamp's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD calendar date", ErrInvalidDate, raw)
	}
	return Date{t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// IsBusinessDay reports whether the date falls Monday through Friday.
// Holidays are not considered.
func (d Date) IsBusinessDay() bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// MarshalJSON renders the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// BusinessDays maps 1-based close days to dates, in increasing order.
type BusinessDays []Date

// Date returns the date for a 1-based close day.
func (b BusinessDays) Date(day int) (Date, bool) {
	if day < 1 || day > len(b) {
		return Date{}, false
	}
	return b[day-1], true
}

// Last returns the final business day, if any.
func (b BusinessDays) Last() (Date, bool) {
	return b.Date(len(b))
}

// ComputeBusinessDays returns the n business days strictly after start.
// Weekends are skipped; n <= 0 yields an empty result.
func ComputeBusinessDays(start Date, n int) BusinessDays {
	if n <= 0 {
		return BusinessDays{}
	}

	days := make(BusinessDays, 0, n)
	current := start
	for len(days) < n {
		current = current.AddDays(1)
		if current.IsBusinessDay() {
			days = append(days, current)
		}
	}
	return days
}

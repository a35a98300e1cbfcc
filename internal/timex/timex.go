// Package timex works with civil calendar dates. All operations first coerce
// time.Time values to UTC so that a "day" always means a UTC calendar day,
// never a local wall-clock window.
package timex

import (
	"fmt"
	"time"
)

const ISODate = "2006-01-02"

// Date is a civil calendar date. It carries no time of day and no zone, which
// makes it safe as a map key and immune to DST arithmetic bugs.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	// normalize through time.Date so Feb 30 style inputs roll over the
	// same way the standard library does
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates ts to its UTC calendar day.
func DateOf(ts time.Time) Date {
	y, m, d := ts.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current UTC calendar day.
func Today() Date {
	return DateOf(time.Now())
}

func ParseDate(s string) (Date, error) {
	ts, err := time.Parse(ISODate, s)
	if err != nil {
		return Date{}, fmt.Errorf("timex: parse date %q: %w", s, err)
	}
	return DateOf(ts), nil
}

// Time returns the date as a UTC midnight instant.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.Time().Format(ISODate)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Before(o Date) bool {
	return d.Time().Before(o.Time())
}

func (d Date) After(o Date) bool {
	return d.Time().After(o.Time())
}

// DaysBetween returns the number of calendar days from a to b. Negative when
// b is before a.
func DaysBetween(a, b Date) int {
	return int(b.Time().Sub(a.Time()) / (24 * time.Hour))
}

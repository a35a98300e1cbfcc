package timex

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/jinzhu/now"
)

// ErrInvalidRange covers every malformed range request: inverted bounds,
// unknown named ranges, non-positive relative spans.
var ErrInvalidRange = errors.New("timex: invalid date range")

// Range is an inclusive pair of civil dates, Start <= End.
type Range struct {
	Start Date
	End   Date
}

// NewRange validates the bound ordering.
func NewRange(start, end Date) (Range, error) {
	if start.After(end) {
		return Range{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}
	return Range{Start: start, End: end}, nil
}

// Len is the number of calendar days spanned, inclusive of both bounds.
func (r Range) Len() int {
	return DaysBetween(r.Start, r.End) + 1
}

// Days materializes every calendar day from Start to End ascending.
func (r Range) Days() []Date {
	out := make([]Date, 0, r.Len())
	for d := range r.Each() {
		out = append(out, d)
	}
	return out
}

// Each iterates the days of the range in ascending order.
func (r Range) Each() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}
}

func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) String() string {
	return r.Start.String() + "/" + r.End.String()
}

// Request is a polymorphic range request: exactly one of the three forms is
// used. Explicit bounds win over Named, Named wins over Latest.
type Request struct {
	Start string // ISO date, paired with End
	End   string
	Named string // e.g. "last-month", "latest-20"
	// Latest means the most recent N days ending yesterday.
	Latest int
}

// Resolve turns a range request into concrete inclusive bounds, evaluated
// against today (the named and relative forms depend on the current date).
func Resolve(req Request, today Date) (Range, error) {
	switch {
	case req.Start != "" || req.End != "":
		start, err := ParseDate(req.Start)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
		end, err := ParseDate(req.End)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
		}
		return NewRange(start, end)
	case req.Named != "":
		return Named(req.Named, today)
	case req.Latest != 0:
		return Latest(req.Latest, today)
	}
	return Range{}, fmt.Errorf("%w: empty request", ErrInvalidRange)
}

// Latest resolves the most recent n days ending yesterday.
func Latest(n int, today Date) (Range, error) {
	if n <= 0 {
		return Range{}, fmt.Errorf("%w: latest-%d", ErrInvalidRange, n)
	}
	end := today.AddDays(-1)
	return Range{Start: end.AddDays(-(n - 1)), End: end}, nil
}

// Named resolves a special range shorthand against today. Supported names
// mirror the date picker presets: today, yesterday, last-week, this-month,
// last-month, and the latest-N family.
func Named(name string, today Date) (Range, error) {
	switch name {
	case "today":
		return Range{Start: today, End: today}, nil
	case "yesterday":
		y := today.AddDays(-1)
		return Range{Start: y, End: y}, nil
	case "last-week":
		start := DateOf(now.With(today.AddDays(-7).Time()).BeginningOfWeek())
		return Range{Start: start, End: start.AddDays(6)}, nil
	case "this-month":
		start := DateOf(now.With(today.Time()).BeginningOfMonth())
		end := today.AddDays(-1)
		if end.Before(start) {
			// first of the month, nothing to report yet
			return Range{}, fmt.Errorf("%w: %s has no elapsed days", ErrInvalidRange, name)
		}
		return Range{Start: start, End: end}, nil
	case "last-month":
		prev := now.With(today.Time()).BeginningOfMonth().AddDate(0, 0, -1)
		return Range{
			Start: DateOf(now.With(prev).BeginningOfMonth()),
			End:   DateOf(prev),
		}, nil
	}
	if n, ok := strings.CutPrefix(name, "latest-"); ok {
		days, err := strconv.Atoi(n)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, name)
		}
		return Latest(days, today)
	}
	if name == "latest" {
		return Latest(20, today)
	}
	return Range{}, fmt.Errorf("%w: unknown named range %q", ErrInvalidRange, name)
}

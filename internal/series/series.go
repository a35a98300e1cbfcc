// Package series holds the daily view-count series for a single entity and
// the arithmetic that reconciles many of them into one dataset.
package series

import (
	"github.com/wikistats/wikiviews/internal/timex"
)

// RawPoint is one day of data as returned by an upstream API. Days the
// upstream has not backfilled yet are simply absent from a Raw series.
type RawPoint struct {
	Date  timex.Date
	Views int64
}

// Raw is a possibly sparse, possibly unordered upstream series.
type Raw []RawPoint

// Point is one day of an aligned series. Missing marks days the upstream had
// no data for. A missing day is not a zero: zero is a measurement, missing
// means "not yet available".
type Point struct {
	Date    timex.Date
	Views   int64
	Missing bool
}

// Series is a gap-filled series for one entity, aligned to a range: Points[i]
// is exactly the i-th day of the range.
type Series struct {
	Entity  string
	Points  []Point
	Sum     int64
	Average float64
}

// Align produces the day-aligned series for raw over r. Days absent from raw
// come out as Missing; present days keep their value, including real zeros.
// No values are interpolated. Align is idempotent over its own output shape:
// aligning the dense point set again reproduces the same series.
//
// Sum counts only non-missing days. Average divides by the full range length,
// missing days included, so an incomplete range reads as a visibly low
// average rather than a quietly optimistic one.
func Align(entity string, raw Raw, r timex.Range) Series {
	byDate := make(map[timex.Date]int64, len(raw))
	for _, p := range raw {
		byDate[p.Date] = p.Views
	}
	s := Series{
		Entity: entity,
		Points: make([]Point, 0, r.Len()),
	}
	for day := range r.Each() {
		views, ok := byDate[day]
		if !ok {
			s.Points = append(s.Points, Point{Date: day, Missing: true})
			continue
		}
		s.Points = append(s.Points, Point{Date: day, Views: views})
		s.Sum += views
	}
	s.Average = float64(s.Sum) / float64(r.Len())
	return s
}

// MissingDates lists the days of the series the upstream had no data for.
func (s Series) MissingDates() []timex.Date {
	var out []timex.Date
	for _, p := range s.Points {
		if p.Missing {
			out = append(out, p.Date)
		}
	}
	return out
}

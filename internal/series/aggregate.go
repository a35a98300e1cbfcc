package series

import (
	"github.com/wikistats/wikiviews/internal/timex"
)

// Aggregate is the reconciled dataset for one query: every entity series, the
// element-wise total, grand totals, and the days with incomplete data. This
// is the sole render input for charts, legends and tables.
type Aggregate struct {
	Range    timex.Range
	Entities []Series
	// Total is the element-wise sum across entities. Its points follow the
	// missing-day rule of Combine.
	Total        Series
	GrandSum     int64
	GrandAverage float64
	// IncompleteDates is the union across entities of days with no data,
	// ascending. Surfaced for "data not yet available" messaging.
	IncompleteDates []timex.Date
}

// Combine folds N aligned series into one Aggregate. Entity order is
// preserved as given; sorting for display happens elsewhere.
//
// For the total series, a missing day on one entity counts as zero so that a
// sibling's real measurement still shows. Only when every entity is missing a
// day is the combined day itself missing: "all sources silent" and "some
// zero, some missing" must stay distinguishable.
func Combine(list []Series, r timex.Range) *Aggregate {
	agg := &Aggregate{
		Range:    r,
		Entities: list,
	}
	days := r.Days()
	total := Series{
		Entity: "total",
		Points: make([]Point, len(days)),
	}
	incomplete := make(map[timex.Date]struct{})
	for i, day := range days {
		var sum int64
		allMissing := len(list) > 0
		for _, s := range list {
			p := s.Points[i]
			if p.Missing {
				incomplete[day] = struct{}{}
				continue
			}
			allMissing = false
			sum += p.Views
		}
		total.Points[i] = Point{Date: day, Views: sum, Missing: allMissing}
		if !allMissing {
			total.Sum += sum
		}
	}
	total.Average = float64(total.Sum) / float64(r.Len())
	agg.Total = total

	for _, s := range list {
		agg.GrandSum += s.Sum
	}
	agg.GrandAverage = float64(agg.GrandSum) / float64(r.Len())

	for _, day := range days {
		if _, ok := incomplete[day]; ok {
			agg.IncompleteDates = append(agg.IncompleteDates, day)
		}
	}
	return agg
}

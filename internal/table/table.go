// Package table turns aggregated entity series into display rows: stable
// sorting on a chosen column plus a synthetic totals row.
package table

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wikistats/wikiviews/internal/series"
)

// Row is one table line for an entity. The extra columns beyond views are
// optional, populated per app (pageviews carries edit metadata, redirectviews
// a section fragment).
type Row struct {
	Label   string
	Sum     int64
	Average float64

	Section  string
	Edits    int64
	Editors  int64
	Size     int64
	Watchers int64
	// Protection is the edit protection level, empty for none.
	Protection string
}

type Field string

const (
	ByTitle    Field = "title"
	ByViews    Field = "views"
	ByAverage  Field = "average"
	BySection  Field = "section"
	ByEdits    Field = "edits"
	ByEditors  Field = "editors"
	BySize     Field = "size"
	ByWatchers Field = "watchers"
)

type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Rows builds the table rows from an aggregate, preserving entity order.
func Rows(agg *series.Aggregate) []Row {
	out := make([]Row, 0, len(agg.Entities))
	for _, s := range agg.Entities {
		out = append(out, Row{
			Label:   s.Entity,
			Sum:     s.Sum,
			Average: s.Average,
		})
	}
	return out
}

// Sort orders rows by field. Numeric fields compare numerically; the title
// column compares byte-ordinal on the label, no locale collation. The sort is
// stable so toggling direction is visibly symmetric.
func Sort(rows []Row, field Field, dir Direction) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if dir == Descending {
			a, b = b, a
		}
		switch field {
		case ByTitle:
			return strings.Compare(a.Label, b.Label) < 0
		case BySection:
			return strings.Compare(a.Section, b.Section) < 0
		case ByAverage:
			return a.Average < b.Average
		case ByEdits:
			return a.Edits < b.Edits
		case ByEditors:
			return a.Editors < b.Editors
		case BySize:
			return a.Size < b.Size
		case ByWatchers:
			return a.Watchers < b.Watchers
		default:
			return a.Sum < b.Sum
		}
	})
}

// Totals builds the synthetic summary row: column sums, the rounded per-day
// average, and a label carrying the entity count. It is appended by the
// caller, never sorted into position.
func Totals(rows []Row) Row {
	total := Row{
		Label: fmt.Sprintf("%d entities", len(rows)),
	}
	protected := 0
	for _, r := range rows {
		total.Sum += r.Sum
		total.Average += r.Average
		total.Edits += r.Edits
		total.Editors += r.Editors
		total.Size += r.Size
		total.Watchers += r.Watchers
		if r.Protection != "" {
			protected++
		}
	}
	total.Average = math.Round(total.Average)
	if protected > 0 {
		total.Protection = fmt.Sprintf("%d protected", protected)
	}
	return total
}

package table

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sample() []Row {
	return []Row{
		{Label: "Cat", Sum: 300, Average: 100},
		{Label: "Aardvark", Sum: 120, Average: 40},
		{Label: "Dog", Sum: 300, Average: 100},
		{Label: "Bee", Sum: 90, Average: 30},
	}
}

func labels(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Label
	}
	return out
}

func TestSortByTitle(t *testing.T) {
	rows := sample()
	Sort(rows, ByTitle, Ascending)
	require.Equal(t, []string{"Aardvark", "Bee", "Cat", "Dog"}, labels(rows))
	Sort(rows, ByTitle, Descending)
	require.Equal(t, []string{"Dog", "Cat", "Bee", "Aardvark"}, labels(rows))
}

func TestSortByViewsStable(t *testing.T) {
	rows := sample()
	Sort(rows, ByViews, Descending)
	// Cat and Dog tie on views; their prior relative order survives
	require.Equal(t, []string{"Cat", "Dog", "Aardvark", "Bee"}, labels(rows))

	Sort(rows, ByViews, Ascending)
	require.Equal(t, []string{"Bee", "Aardvark", "Cat", "Dog"}, labels(rows))
}

func TestToggleSymmetry(t *testing.T) {
	rows := sample()
	Sort(rows, ByViews, Descending)
	down := labels(rows)
	Sort(rows, ByViews, Ascending)
	Sort(rows, ByViews, Descending)
	require.Equal(t, down, labels(rows))
}

func TestTotals(t *testing.T) {
	rows := []Row{
		{Label: "Cat", Sum: 30, Average: 10, Edits: 4, Watchers: 7, Protection: "sysop"},
		{Label: "Dog", Sum: 12, Average: 4.4, Edits: 1, Watchers: 3},
	}
	total := Totals(rows)
	require.Equal(t, "2 entities", total.Label)
	require.Equal(t, int64(42), total.Sum)
	require.Equal(t, float64(14), total.Average) // 14.4 rounded
	require.Equal(t, int64(5), total.Edits)
	require.Equal(t, int64(10), total.Watchers)
	require.Equal(t, "1 protected", total.Protection)
}

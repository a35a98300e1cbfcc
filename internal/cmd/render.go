package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/wikistats/wikiviews/internal/config"
	"github.com/wikistats/wikiviews/internal/query"
	"github.com/wikistats/wikiviews/internal/table"
	"github.com/wikistats/wikiviews/internal/wikimedia"
)

func render(w io.Writer, res *query.Result, o *config.Options, infos map[string]wikimedia.PageInfo) error {
	if o.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	rows := table.Rows(res.Aggregate)
	for i := range rows {
		if frag, ok := res.Fragments[rows[i].Label]; ok {
			rows[i].Section = frag
		}
		if info, ok := infos[rows[i].Label]; ok {
			rows[i].Size = info.Length
			rows[i].Watchers = info.Watchers
			rows[i].Protection = info.Protection
		}
	}
	dir := table.Descending
	if o.Direction == "asc" {
		dir = table.Ascending
	}
	table.Sort(rows, table.Field(o.Sort), dir)
	totals := table.Totals(rows)

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	if len(infos) > 0 {
		fmt.Fprintf(tw, "#\t%s\tviews\tdaily average\tsize\twatchers\tprotection\n", res.Query.App)
		for i, r := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%.0f\t%d\t%d\t%s\n",
				i+1, wikimedia.DisplayTitle(r.Label), r.Sum, r.Average, r.Size, r.Watchers, r.Protection)
		}
		fmt.Fprintf(tw, "\t%s\t%d\t%.0f\t%d\t%d\t%s\n",
			totals.Label, totals.Sum, totals.Average, totals.Size, totals.Watchers, totals.Protection)
	} else {
		fmt.Fprintf(tw, "#\t%s\tviews\tdaily average\n", res.Query.App)
		for i, r := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%.0f\n", i+1, wikimedia.DisplayTitle(r.Label), r.Sum, r.Average)
		}
		fmt.Fprintf(tw, "\t%s\t%d\t%.0f\n", totals.Label, totals.Sum, totals.Average)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if res.CacheHit {
		fmt.Fprintln(w, "served from cache")
	}
	if len(res.IncompleteDates) > 0 {
		days := make([]string, 0, len(res.IncompleteDates))
		for _, d := range res.IncompleteDates {
			days = append(days, d.String())
		}
		fmt.Fprintf(w, "no data is available yet for: %s\n", strings.Join(days, ", "))
	}
	for _, f := range res.Failed {
		fmt.Fprintf(w, "failed: %s: %v\n", wikimedia.DisplayTitle(f.Entity), f.Err)
	}
	return nil
}

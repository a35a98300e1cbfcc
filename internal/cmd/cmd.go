// Package cmd wires the four analysis apps behind one CLI.
package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/wikistats/wikiviews/internal/config"
	"github.com/wikistats/wikiviews/internal/fetch"
	"github.com/wikistats/wikiviews/internal/limiter"
	"github.com/wikistats/wikiviews/internal/log"
	"github.com/wikistats/wikiviews/internal/qcache"
	"github.com/wikistats/wikiviews/internal/query"
	"github.com/wikistats/wikiviews/internal/timex"
	"github.com/wikistats/wikiviews/internal/wikimedia"
)

func App() *cli.Command {
	return &cli.Command{
		Name:  "wikiviews",
		Usage: "fetch and aggregate Wikimedia view statistics",
		Commands: []*cli.Command{
			appCommand(query.Pageviews, "analyze daily pageviews for one or more articles", "ARTICLE..."),
			appCommand(query.Siteviews, "analyze daily views for one or more whole sites", "SITE..."),
			appCommand(query.Mediaviews, "analyze daily requests for one or more media files", "FILE..."),
			appCommand(query.Redirectviews, "analyze pageviews of a page plus all of its redirects", "PAGE"),
		},
	}
}

func appCommand(app query.App, usage, args string) *cli.Command {
	o := config.Defaults()
	return &cli.Command{
		Name:      string(app),
		Usage:     usage,
		ArgsUsage: args,
		Flags:     config.Flags(o),
		Action: func(ctx context.Context, c *cli.Command) error {
			log.SetLevel(o.LogLevel)
			return run(ctx, c, app, o)
		},
	}
}

func run(ctx context.Context, c *cli.Command, app query.App, o *config.Options) error {
	client := wikimedia.New()
	client.RestBase = o.RestBase
	client.UserAgent = o.UserAgent

	cache, err := qcache.New(o.CacheTTL)
	if err != nil {
		return err
	}
	defer cache.Close()

	lim := limiter.New(o.Throttle)
	defer lim.Close()

	runner := &query.Runner{
		Client: client,
		Cache:  cache,
		Fetcher: &fetch.Fetcher{
			Limiter:     lim,
			MaxAttempts: int(o.MaxAttempts),
		},
		OnProgress: func(completed, total int) {
			log.Get().Debug().
				Int("completed", completed).
				Int("total", total).
				Msg("fetch progress")
		},
	}

	rng := timex.Request{Named: o.RangeName}
	if o.Start != "" || o.End != "" {
		rng = timex.Request{Start: o.Start, End: o.End}
	}
	res, err := runner.Run(ctx, query.Request{
		App:      app,
		Project:  o.Project,
		Platform: o.Platform,
		Agent:    o.Agent,
		Source:   o.Source,
		Entities: c.Args().Slice(),
		Range:    rng,
	})
	if err != nil {
		return err
	}

	// pageviews tables carry page metadata columns when the action API
	// cooperates; a failure here never fails the query
	var infos map[string]wikimedia.PageInfo
	if app == query.Pageviews && !o.JSON {
		names := make([]string, 0, len(res.Entities))
		for _, s := range res.Entities {
			names = append(names, s.Entity)
		}
		infos, err = client.PageInfos(ctx, o.Project, names)
		if err != nil {
			log.Get().Debug().Err(err).Msg("page info lookup failed")
			infos = nil
		}
	}
	return render(os.Stdout, res, o, infos)
}

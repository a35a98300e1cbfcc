package config

import (
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wikistats/wikiviews/internal/qcache"
	"github.com/wikistats/wikiviews/internal/wikimedia"
)

// DefaultThrottle is the historical pause between upstream API dispatches.
const DefaultThrottle = 100 * time.Millisecond

type Options struct {
	Project  string
	Platform string
	Agent    string
	Source   string

	Start     string
	End       string
	RangeName string

	Throttle    time.Duration
	MaxAttempts int64
	CacheTTL    time.Duration

	RestBase  string
	UserAgent string

	Sort      string
	Direction string
	JSON      bool
	LogLevel  string
}

func Defaults() *Options {
	return &Options{
		Project:     "en.wikipedia",
		Platform:    "all-access",
		Agent:       "user",
		RangeName:   "latest-20",
		Throttle:    DefaultThrottle,
		MaxAttempts: 3,
		CacheTTL:    qcache.DefaultTTL,
		RestBase:    wikimedia.DefaultRestBase,
		Sort:        "views",
		Direction:   "desc",
		LogLevel:    "info",
	}
}

func Flags(o *Options) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Category:    "query",
			Name:        "project",
			Usage:       "wiki project, e.g. en.wikipedia",
			Value:       "en.wikipedia",
			Destination: &o.Project,
			Sources:     cli.EnvVars("WIKIVIEWS_PROJECT"),
		},
		&cli.StringFlag{
			Category:    "query",
			Name:        "platform",
			Usage:       "access platform (all-access, desktop, mobile-app, mobile-web)",
			Value:       "all-access",
			Destination: &o.Platform,
			Sources:     cli.EnvVars("WIKIVIEWS_PLATFORM"),
		},
		&cli.StringFlag{
			Category:    "query",
			Name:        "agent",
			Usage:       "agent type (all-agents, user, spider, automated)",
			Value:       "user",
			Destination: &o.Agent,
			Sources:     cli.EnvVars("WIKIVIEWS_AGENT"),
		},
		&cli.StringFlag{
			Category:    "query",
			Name:        "source",
			Usage:       "metric source, e.g. unique-devices for siteviews",
			Destination: &o.Source,
			Sources:     cli.EnvVars("WIKIVIEWS_SOURCE"),
		},
		&cli.StringFlag{
			Category:    "range",
			Name:        "start",
			Usage:       "range start, YYYY-MM-DD",
			Destination: &o.Start,
		},
		&cli.StringFlag{
			Category:    "range",
			Name:        "end",
			Usage:       "range end, YYYY-MM-DD",
			Destination: &o.End,
		},
		&cli.StringFlag{
			Category:    "range",
			Name:        "range",
			Usage:       "named range (yesterday, last-week, this-month, last-month, latest-N)",
			Value:       "latest-20",
			Destination: &o.RangeName,
		},
		&cli.DurationFlag{
			Category:    "fetch",
			Name:        "throttle",
			Usage:       "minimum interval between upstream API dispatches",
			Value:       DefaultThrottle,
			Destination: &o.Throttle,
			Sources:     cli.EnvVars("WIKIVIEWS_THROTTLE"),
		},
		&cli.IntFlag{
			Category:    "fetch",
			Name:        "max-attempts",
			Usage:       "total attempts per entity on transient upstream failures",
			Value:       3,
			Destination: &o.MaxAttempts,
			Sources:     cli.EnvVars("WIKIVIEWS_MAX_ATTEMPTS"),
		},
		&cli.DurationFlag{
			Category:    "fetch",
			Name:        "cache-ttl",
			Usage:       "how long clean query results stay cached",
			Value:       qcache.DefaultTTL,
			Destination: &o.CacheTTL,
			Sources:     cli.EnvVars("WIKIVIEWS_CACHE_TTL"),
		},
		&cli.StringFlag{
			Category:    "fetch",
			Name:        "rest-base",
			Usage:       "Wikimedia REST API base URL",
			Value:       wikimedia.DefaultRestBase,
			Destination: &o.RestBase,
			Sources:     cli.EnvVars("WIKIVIEWS_REST_BASE"),
		},
		&cli.StringFlag{
			Category:    "fetch",
			Name:        "user-agent",
			Usage:       "User-Agent header for upstream calls",
			Destination: &o.UserAgent,
			Sources:     cli.EnvVars("WIKIVIEWS_USER_AGENT"),
		},
		&cli.StringFlag{
			Category:    "output",
			Name:        "sort",
			Usage:       "table sort column (title, views, average, section, edits, editors, size, watchers)",
			Value:       "views",
			Destination: &o.Sort,
		},
		&cli.StringFlag{
			Category:    "output",
			Name:        "direction",
			Usage:       "sort direction (asc, desc)",
			Value:       "desc",
			Destination: &o.Direction,
		},
		&cli.BoolFlag{
			Category:    "output",
			Name:        "json",
			Usage:       "emit the aggregate as JSON instead of a table",
			Destination: &o.JSON,
		},
		&cli.StringFlag{
			Category:    "core",
			Name:        "log-level",
			Usage:       "log level (trace,debug,info,warn,error)",
			Value:       "info",
			Destination: &o.LogLevel,
			Sources:     cli.EnvVars("WIKIVIEWS_LOG_LEVEL"),
		},
	}
}

// Package query runs one end-to-end query: resolve the date range, consult
// the result cache, fan out per-entity fetches, gap-fill and aggregate, and
// cache the result when every entity succeeded.
package query

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/wikistats/wikiviews/internal/fetch"
	"github.com/wikistats/wikiviews/internal/log"
	"github.com/wikistats/wikiviews/internal/qcache"
	"github.com/wikistats/wikiviews/internal/series"
	"github.com/wikistats/wikiviews/internal/system"
	"github.com/wikistats/wikiviews/internal/timex"
	"github.com/wikistats/wikiviews/internal/wikimedia"
)

type App string

const (
	Pageviews     App = "pageviews"
	Siteviews     App = "siteviews"
	Mediaviews    App = "mediaviews"
	Redirectviews App = "redirectviews"
)

// SourceUniqueDevices selects the unique devices metric for siteviews
// instead of raw pageviews.
const SourceUniqueDevices = "unique-devices"

var (
	// ErrSuperseded marks a query whose result arrived after a newer query
	// started. The caller drops it silently.
	ErrSuperseded = errors.New("query: superseded by a newer query")
	// ErrAllFailed is the query-level failure when no entity produced data.
	ErrAllFailed = errors.New("query: all entities failed")
	// ErrNoEntities rejects a query with an empty entity list.
	ErrNoEntities = errors.New("query: no entities requested")
)

// Request is one user-triggered query.
type Request struct {
	App      App
	Project  string
	Platform string
	Agent    string
	Source   string
	Entities []string
	Range    timex.Request
}

// Result is what the UI layer renders.
type Result struct {
	ID    ulid.ULID
	Query qcache.Query
	*series.Aggregate
	// Failed lists entities that reached a terminal failure; the result is
	// still usable for the entities that succeeded.
	Failed []fetch.EntityError
	// CacheHit tells the UI it can render instantly.
	CacheHit bool
	// Sections counts redirect entities targeting a section fragment
	// (redirectviews only).
	Sections int
	// Fragments maps entity to its redirect section fragment
	// (redirectviews only).
	Fragments map[string]string
}

type Runner struct {
	Client  *wikimedia.Client
	Cache   *qcache.Cache
	Fetcher *fetch.Fetcher
	// Today pins "today" for named range resolution; nil means the real
	// clock.
	Today func() timex.Date
	// OnProgress observes fetch progress for the active query.
	OnProgress fetch.Progress

	gen   Generations
	group singleflight.Group

	mu         sync.Mutex
	cancelPrev context.CancelFunc
}

// Run executes req. Starting a new query supersedes any in-flight one: the
// older query's context is canceled and its late result, if any, is reported
// as ErrSuperseded instead of being delivered.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	// token issue and cancel swap are one atomic step: the newest token
	// always owns the registered cancel, so a run that lost the race can
	// never cancel a newer one
	r.mu.Lock()
	gen := r.gen.Next()
	if r.cancelPrev != nil {
		r.cancelPrev()
	}
	r.cancelPrev = cancel
	r.mu.Unlock()

	res, err := r.run(ctx, req)
	if !r.gen.Live(gen) {
		return nil, ErrSuperseded
	}
	return res, err
}

func (r *Runner) run(ctx context.Context, req Request) (*Result, error) {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.New(rand.NewSource(time.Now().UnixNano())))
	lg := log.Get().With().
		Str("component", "query").
		Str("query", id.String()).
		Str("app", string(req.App)).Logger()

	today := timex.Today()
	if r.Today != nil {
		today = r.Today()
	}
	rng, err := timex.Resolve(req.Range, today)
	if err != nil {
		return nil, err
	}

	entities := dedupe(req.Entities)
	fragments := map[string]string{}
	sections := 0
	if req.App == Redirectviews {
		if len(entities) != 1 {
			return nil, fmt.Errorf("query: redirectviews takes exactly one source page, got %d", len(entities))
		}
		redirects, err := r.Client.Redirects(ctx, req.Project, entities[0])
		if err != nil {
			return nil, fmt.Errorf("query: expanding redirects: %w", err)
		}
		entities = entities[:0]
		for _, red := range redirects {
			name := wikimedia.NormalizeTitle(red.Title)
			entities = append(entities, name)
			if red.Fragment != "" {
				fragments[name] = red.Fragment
				sections++
			}
		}
		entities = dedupe(entities)
	}
	if len(entities) == 0 {
		return nil, ErrNoEntities
	}

	q := qcache.Query{
		App:      string(req.App),
		Project:  req.Project,
		Platform: req.Platform,
		Agent:    req.Agent,
		Source:   req.Source,
		Entities: entities,
		Range:    rng,
	}
	if agg, ok := r.Cache.Get(q); ok {
		system.CacheHit.Inc()
		lg.Debug().Msg("cache hit")
		return &Result{
			ID:        id,
			Query:     q,
			Aggregate: agg,
			CacheHit:  true,
			Sections:  sections,
			Fragments: fragments,
		}, nil
	}
	system.CacheMiss.Inc()

	// collapse concurrent identical queries into one fetch
	v, err, _ := r.group.Do(fmt.Sprintf("%x", q.Fingerprint()), func() (any, error) {
		return r.fetchAndCombine(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*Result)
	out := *res
	out.ID = id
	out.Sections = sections
	out.Fragments = fragments
	if len(out.IncompleteDates) > 0 {
		lg.Debug().Int("days", len(out.IncompleteDates)).Msg("result has incomplete dates")
	}
	return &out, nil
}

func (r *Runner) fetchAndCombine(ctx context.Context, q qcache.Query) (*Result, error) {
	f := *r.Fetcher
	f.OnProgress = r.OnProgress
	outcome := f.FetchAll(ctx, q.Entities, q.Range, r.fetchFunc(q))
	if outcome.AllFailed() {
		return nil, fmt.Errorf("%w: %v", ErrAllFailed, outcome.Failed[0].Err)
	}

	// align in request order, keyed by entity id; completion order of the
	// underlying requests means nothing
	aligned := make([]series.Series, 0, len(outcome.Succeeded))
	for _, entity := range q.Entities {
		raw, ok := outcome.Succeeded[entity]
		if !ok {
			continue
		}
		aligned = append(aligned, series.Align(entity, raw, q.Range))
	}
	agg := series.Combine(aligned, q.Range)

	// a query that saw any failure is never cached: a later retry might
	// produce a better answer
	if len(outcome.Failed) == 0 {
		r.Cache.Put(q, agg)
	}
	return &Result{
		Query:     q,
		Aggregate: agg,
		Failed:    outcome.Failed,
	}, nil
}

func (r *Runner) fetchFunc(q qcache.Query) fetch.Func {
	switch App(q.App) {
	case Siteviews:
		if q.Source == SourceUniqueDevices {
			site := accessSite(q.Platform)
			return func(ctx context.Context, entity string, rng timex.Range) (series.Raw, error) {
				return r.Client.UniqueDevices(ctx, entity, site, rng)
			}
		}
		return func(ctx context.Context, entity string, rng timex.Range) (series.Raw, error) {
			return r.Client.Siteviews(ctx, entity, q.Platform, q.Agent, rng)
		}
	case Mediaviews:
		return func(ctx context.Context, entity string, rng timex.Range) (series.Raw, error) {
			return r.Client.Mediarequests(ctx, "all-referers", q.Agent, entity, rng)
		}
	default:
		return func(ctx context.Context, entity string, rng timex.Range) (series.Raw, error) {
			return r.Client.PageviewsPerArticle(ctx, q.Project, q.Platform, q.Agent, entity, rng)
		}
	}
}

// accessSite maps a pageview platform onto the unique-devices access-site
// domain, which only knows all-sites, desktop-site and mobile-site. Values
// already in that domain pass through; anything unrecognized falls back to
// all-sites, the upstream default.
func accessSite(platform string) string {
	switch platform {
	case "all-sites", "desktop-site", "mobile-site":
		return platform
	case "desktop":
		return "desktop-site"
	case "mobile-app", "mobile-web":
		return "mobile-site"
	default:
		return "all-sites"
	}
}

// dedupe canonicalizes entity names and drops duplicates, preserving first
// occurrence order.
func dedupe(entities []string) []string {
	seen := make(map[string]struct{}, len(entities))
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		name := wikimedia.NormalizeTitle(e)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

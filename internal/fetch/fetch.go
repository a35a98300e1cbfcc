// Package fetch orchestrates one upstream request per entity through the
// shared dispatch limiter, retrying transient failures and collecting
// whatever succeeded. One entity failing never aborts its siblings.
package fetch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/wikistats/wikiviews/internal/limiter"
	"github.com/wikistats/wikiviews/internal/log"
	"github.com/wikistats/wikiviews/internal/series"
	"github.com/wikistats/wikiviews/internal/system"
	"github.com/wikistats/wikiviews/internal/timex"
	"github.com/wikistats/wikiviews/internal/wikimedia"
)

// DefaultMaxAttempts matches the historical cap of the tools: the initial
// request plus two retries.
const DefaultMaxAttempts = 3

// Func fetches the raw daily series for one entity.
type Func func(ctx context.Context, entity string, r timex.Range) (series.Raw, error)

// Progress observes the fan-in barrier: completed requests out of total
// issued. Total grows whenever a retry is scheduled.
type Progress func(completed, total int)

type EntityError struct {
	Entity string
	Err    error
}

func (e EntityError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Entity string `json:"entity"`
		Error  string `json:"error"`
	}{Entity: e.Entity, Error: e.Err.Error()})
}

// Outcome is the partial-failure-tolerant result of one orchestration.
// Succeeded is keyed by entity id; completion order of the underlying
// requests is meaningless.
type Outcome struct {
	Succeeded map[string]series.Raw
	Failed    []EntityError
}

// AllFailed reports whether not a single entity produced data.
func (o *Outcome) AllFailed() bool {
	return len(o.Succeeded) == 0 && len(o.Failed) > 0
}

type Fetcher struct {
	Limiter *limiter.Limiter
	// MaxAttempts is the total attempt cap per entity, zero meaning
	// DefaultMaxAttempts.
	MaxAttempts int
	// Retryable classifies errors; nil means wikimedia.IsRetryable.
	Retryable func(error) bool
	// NewBackoff builds the per-entity retry delay policy; nil means
	// exponential backoff.
	NewBackoff func() backoff.BackOff
	OnProgress Progress
}

// retryState tracks one entity across resubmissions. It lives only for the
// duration of a FetchAll call.
type retryState struct {
	attempts int
	delay    backoff.BackOff
}

type result struct {
	entity string
	raw    series.Raw
	err    error
}

// FetchAll issues fn once per entity through the limiter and resolves once
// every entity reached a terminal state: success, terminal error, or retries
// exhausted. Retries re-enter the limiter queue, so they never bypass
// throttling.
func (f *Fetcher) FetchAll(ctx context.Context, entities []string, r timex.Range, fn Func) *Outcome {
	maxAttempts := f.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryable := f.Retryable
	if retryable == nil {
		retryable = wikimedia.IsRetryable
	}
	newBackoff := f.NewBackoff
	if newBackoff == nil {
		newBackoff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	}

	results := make(chan result, len(entities))
	submit := func(entity string) {
		f.Limiter.Schedule(ctx, func(ctx context.Context) {
			system.ApiRequests.Inc()
			raw, err := fn(ctx, entity, r)
			select {
			case results <- result{entity: entity, raw: raw, err: err}:
			case <-ctx.Done():
			}
		})
	}

	out := &Outcome{Succeeded: make(map[string]series.Raw, len(entities))}
	states := make(map[string]*retryState, len(entities))
	for _, e := range entities {
		states[e] = &retryState{attempts: 1, delay: newBackoff()}
		submit(e)
	}

	total := len(entities)
	completed := 0
	progress := func() {
		if f.OnProgress != nil {
			f.OnProgress(completed, total)
		}
	}
	fail := func(entity string, err error) {
		system.ApiFailures.Inc()
		out.Failed = append(out.Failed, EntityError{Entity: entity, Err: err})
	}

	for completed < total {
		select {
		case res := <-results:
			completed++
			st := states[res.entity]
			switch {
			case res.err == nil:
				out.Succeeded[res.entity] = res.raw
			case retryable(res.err) && st.attempts < maxAttempts:
				st.attempts++
				total++
				system.ApiRetries.Inc()
				log.Get().Debug().
					Str("component", "fetch").
					Str("entity", res.entity).
					Int("attempt", st.attempts).
					Msg("retrying after transient upstream failure")
				f.resubmit(ctx, st.delay.NextBackOff(), res.entity, submit)
			default:
				fail(res.entity, res.err)
			}
			progress()
		case <-ctx.Done():
			// everything still in flight is terminal now
			for entity := range states {
				if _, ok := out.Succeeded[entity]; ok {
					continue
				}
				if failed(out, entity) {
					continue
				}
				fail(entity, ctx.Err())
			}
			return out
		}
	}
	return out
}

// resubmit re-enters the limiter queue after the retry delay elapses, without
// blocking the collector.
func (f *Fetcher) resubmit(ctx context.Context, delay time.Duration, entity string, submit func(string)) {
	if delay <= 0 {
		// backoff.Stop lands here too: the attempt cap is the real bound
		submit(entity)
		return
	}
	timer := time.AfterFunc(delay, func() { submit(entity) })
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			timer.Stop()
		}()
	}
}

func failed(o *Outcome, entity string) bool {
	for _, f := range o.Failed {
		if f.Entity == entity {
			return true
		}
	}
	return false
}

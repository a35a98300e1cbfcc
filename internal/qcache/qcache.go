// Package qcache caches aggregated query results for a short window so that
// repeating a query does not repeat its network round-trips.
package qcache

import (
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto"
	"github.com/wikistats/wikiviews/internal/series"
	"github.com/wikistats/wikiviews/internal/timex"
	"github.com/wikistats/wikiviews/internal/wikimedia"
)

// DefaultTTL is the historical ten minute local cache window of the tools.
const DefaultTTL = 10 * time.Minute

// Query carries exactly the parameters that affect what data a query returns.
// Display-only state (sort field, direction, chart vs table) has no field
// here, so changing it can never cause a cache miss.
type Query struct {
	App      string
	Project  string
	Platform string
	Agent    string
	// Source distinguishes metric families on the same entities, e.g.
	// siteviews pageviews vs unique devices.
	Source   string
	Entities []string
	Range    timex.Range
}

// Fingerprint hashes the canonical encoding of the query. Entity names are
// canonicalized first, so "Cat Dog" and "Cat_Dog" collide on purpose.
func (q Query) Fingerprint() uint64 {
	h := xxhash.New()
	sep := []byte{0}
	for _, part := range []string{q.App, q.Project, q.Platform, q.Agent, q.Source, q.Range.String()} {
		h.WriteString(part)
		h.Write(sep)
	}
	for _, e := range q.Entities {
		h.WriteString(wikimedia.NormalizeTitle(e))
		h.Write(sep)
	}
	return h.Sum64()
}

type Cache struct {
	store *ristretto.Cache
	ttl   time.Duration
}

// New opens a cache holding whole query results. ttl <= 0 selects
// DefaultTTL.
func New(ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 12,
		MaxCost:     1 << 8,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{store: store, ttl: ttl}, nil
}

func (c *Cache) Close() {
	c.store.Close()
}

// Get returns the cached aggregate for q, or absent on miss or after the
// entry's TTL elapsed.
func (c *Cache) Get(q Query) (*series.Aggregate, bool) {
	v, ok := c.store.Get(q.Fingerprint())
	if !ok {
		return nil, false
	}
	return v.(*series.Aggregate), true
}

// Put overwrites the entry for q unconditionally. Callers only cache results
// of queries with zero failed entities; a partial result might improve on
// retry and must never stick.
func (c *Cache) Put(q Query, v *series.Aggregate) {
	c.store.SetWithTTL(q.Fingerprint(), v, 1, c.ttl)
	// make the write visible to an immediately following Get
	c.store.Wait()
}

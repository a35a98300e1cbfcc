package query

import "sync/atomic"

// Generations hands out monotonically increasing query generation tokens.
// Only the most recently issued token is live; anything older belongs to a
// superseded query and its results must be dropped, never merged.
type Generations struct {
	n atomic.Uint64
}

// Next issues a new token, superseding all previous ones.
func (g *Generations) Next() uint64 {
	return g.n.Add(1)
}

// Live reports whether token is still the current generation.
func (g *Generations) Live(token uint64) bool {
	return g.n.Load() == token
}

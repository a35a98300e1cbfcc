// Package limiter serializes task dispatch so that consecutive task starts
// are at least a configured interval apart. Upstream API quotas are global
// per client, so this is a single queue, not a per-entity one.
package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter dispatches queued tasks in submission order, pacing starts with a
// token bucket of one. Completion order is up to the tasks themselves: each
// one runs on its own goroutine once dispatched.
type Limiter struct {
	pace *rate.Limiter

	mu     sync.Mutex
	queue  []task
	closed bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type task struct {
	ctx context.Context
	fn  func(context.Context)
}

// New starts a limiter whose dispatches are at least minInterval apart. A
// non-positive interval disables pacing but keeps the FIFO ordering.
func New(minInterval time.Duration) *Limiter {
	lim := rate.NewLimiter(rate.Inf, 1)
	if minInterval > 0 {
		lim = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Limiter{
		pace:   lim,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go l.dispatch()
	return l
}

// Schedule enqueues fn without blocking, even when dispatch is delayed. fn
// runs with ctx once its turn comes; fn is responsible for honoring ctx
// cancellation. Scheduling after Close drops the task.
func (l *Limiter) Schedule(ctx context.Context, fn func(context.Context)) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, task{ctx: ctx, fn: fn})
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Limiter) dispatch() {
	defer close(l.done)
	for {
		t, ok := l.next()
		if !ok {
			select {
			case <-l.wake:
				continue
			case <-l.ctx.Done():
				return
			}
		}
		if err := l.pace.Wait(l.ctx); err != nil {
			return
		}
		go t.fn(t.ctx)
	}
}

func (l *Limiter) next() (task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return task{}, false
	}
	t := l.queue[0]
	l.queue = l.queue[1:]
	return t, true
}

// Close stops the dispatcher. Queued tasks that have not been dispatched are
// dropped; tasks already started run to completion.
func (l *Limiter) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cancel()
	<-l.done
}

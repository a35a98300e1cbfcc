package limiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatchSpacing(t *testing.T) {
	const interval = 50 * time.Millisecond
	l := New(interval)
	defer l.Close()

	var (
		mu     sync.Mutex
		starts []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		l.Schedule(context.Background(), func(context.Context) {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	require.Len(t, starts, 5)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		// small tolerance for timer coarseness
		require.GreaterOrEqual(t, gap, interval-5*time.Millisecond,
			"dispatch %d started %v after previous", i, gap)
	}
}

func TestFIFOOrder(t *testing.T) {
	// interval comfortably larger than the time a task needs to record
	// itself, so recording order matches dispatch order
	l := New(20 * time.Millisecond)
	defer l.Close()

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		l.Schedule(context.Background(), func(context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, order)
}

func TestScheduleNeverBlocks(t *testing.T) {
	l := New(time.Hour) // effectively frozen after the first dispatch
	defer l.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			l.Schedule(context.Background(), func(context.Context) {})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Schedule blocked on a saturated queue")
	}
}

func TestScheduleAfterCloseDrops(t *testing.T) {
	l := New(0)
	l.Close()
	ran := make(chan struct{})
	l.Schedule(context.Background(), func(context.Context) { close(ran) })
	select {
	case <-ran:
		t.Fatal("task ran after Close")
	case <-time.After(50 * time.Millisecond):
	}
}

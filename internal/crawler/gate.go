package crawler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate enforces a minimum interval between request starts.
//
// The first Wait returns immediately. A zero interval disables waiting.
// Gate is safe for concurrent use; one Gate is shared by all workers.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	limiter  *rate.Limiter
}

// NewGate returns a Gate with the given interval.
func NewGate(interval time.Duration) *Gate {
	g := &Gate{}
	g.set(interval)
	return g
}

func (g *Gate) set(interval time.Duration) {
	if interval <= 0 {
		g.interval = 0
		g.limiter = nil
		return
	}
	g.interval = interval
	g.limiter = rate.NewLimiter(rate.Every(interval), 1)
}

// Wait blocks until the next request may start or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return ctx.Err()
	}
	g.mu.Lock()
	limiter := g.limiter
	g.mu.Unlock()

	if limiter == nil {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

// Interval returns the current minimum interval.
func (g *Gate) Interval() time.Duration {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interval
}

// Raise lengthens the interval to at least interval. It never shortens it.
func (g *Gate) Raise(interval time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if interval <= g.interval {
		return
	}
	if g.limiter == nil {
		g.set(interval)
		return
	}
	g.interval = interval
	g.limiter.SetLimit(rate.Every(interval))
}

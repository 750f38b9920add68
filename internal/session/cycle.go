package session

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the time between frame ticks.
const DefaultInterval = 50 * time.Millisecond

// TickFunc processes one frame. The context is cancelled when the cycle
// stops.
type TickFunc func(ctx context.Context)

// Cycle runs a TickFunc on a fixed interval. At most one tick runs at a
// time: a tick that comes due while the previous one is still running is
// skipped and counted.
type Cycle struct {
	interval time.Duration
	tick     TickFunc

	mu     sync.Mutex
	cancel context.CancelFunc

	inFlight atomic.Bool
	loops    atomic.Int32
	ticks    atomic.Int64
	skipped  atomic.Int64
}

// NewCycle creates a stopped cycle. Non-positive intervals use
// DefaultInterval.
func NewCycle(interval time.Duration, tick TickFunc) *Cycle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Cycle{
		interval: interval,
		tick:     tick,
	}
}

// Start begins ticking. A cycle that is already running is cancelled and
// replaced, so there is never more than one active timer.
func (c *Cycle) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.loops.Add(1)
	go c.run(ctx)
}

// Stop cancels the timer. It does not wait for an in-flight tick.
func (c *Cycle) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Running reports whether Start has been called without a matching Stop.
func (c *Cycle) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Interval returns the tick period.
func (c *Cycle) Interval() time.Duration {
	return c.interval
}

// Loops returns the number of timer loops still alive.
func (c *Cycle) Loops() int {
	return int(c.loops.Load())
}

// Ticks returns the number of ticks that ran.
func (c *Cycle) Ticks() int64 {
	return c.ticks.Load()
}

// Skipped returns the number of ticks dropped because one was in flight.
func (c *Cycle) Skipped() int64 {
	return c.skipped.Load()
}

func (c *Cycle) run(ctx context.Context) {
	defer c.loops.Add(-1)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.inFlight.CompareAndSwap(false, true) {
				c.skipped.Add(1)
				continue
			}
			c.ticks.Add(1)
			go c.runTick(ctx)
		}
	}
}

func (c *Cycle) runTick(ctx context.Context) {
	defer c.inFlight.Store(false)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in frame tick: %v\n%s", r, debug.Stack())
		}
	}()

	c.tick(ctx)
}

package interaction

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/shiftcal/internal/constants"
)

// AutoScroller repeatedly invokes a nudge callback while a direction is set.
type AutoScroller struct {
	interval time.Duration
	nudge    func(Direction)

	mu     sync.Mutex
	dir    Direction
	cancel context.CancelFunc
}

// NewAutoScroller returns a stopped scroller. A zero interval uses the default.
func NewAutoScroller(interval time.Duration, nudge func(Direction)) *AutoScroller {
	if interval <= 0 {
		interval = constants.AutoScrollInterval
	}
	return &AutoScroller{interval: interval, nudge: nudge}
}

// Set changes the active direction. ScrollNone stops the ticker; setting the
// already active direction is a no-op.
func (a *AutoScroller) Set(ctx context.Context, dir Direction) {
	a.mu.Lock()
	if dir == a.dir {
		a.mu.Unlock()
		return
	}
	a.stopLocked()
	a.dir = dir
	if dir == ScrollNone {
		a.mu.Unlock()
		return
	}

	tickCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	go func() {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				if tickCtx.Err() == nil {
					a.nudge(dir)
				}
			}
		}
	}()
}

// Stop halts the ticker. A nudge already in flight may still complete, so
// the callback must tolerate arriving after the gesture ended.
func (a *AutoScroller) Stop() {
	a.mu.Lock()
	a.stopLocked()
	a.dir = ScrollNone
	a.mu.Unlock()
}

// Direction returns the active direction.
func (a *AutoScroller) Direction() Direction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dir
}

func (a *AutoScroller) stopLocked() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	a.cancel = nil
}

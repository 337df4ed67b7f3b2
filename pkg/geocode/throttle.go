package geocode

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Throttle enforces a minimum interval between consecutive calls. Callers
// queue on the mutex, so concurrent workers sharing one Throttle are
// serialized and each waits its turn.
type Throttle struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	interval time.Duration
	last     time.Time
}

// NewThrottle creates a Throttle. A nil clock means the real clock.
func NewThrottle(interval time.Duration, clock clockwork.Clock) *Throttle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Throttle{clock: clock, interval: interval}
}

// Wait blocks until interval has passed since the previous call was let
// through, then records the current time as the new previous call.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interval > 0 && !t.last.IsZero() {
		if wait := t.last.Add(t.interval).Sub(t.clock.Now()); wait > 0 {
			timer := t.clock.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.Chan():
			}
		}
	}
	t.last = t.clock.Now()
	return nil
}

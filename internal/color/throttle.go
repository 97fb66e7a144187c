package color

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/normanking/cortexmascot/internal/scheduler"
)

// DefaultSyncInterval bounds outbound color syncs to about 2 Hz
const DefaultSyncInterval = 500 * time.Millisecond

// Throttle limits outbound sync notifications. It is evaluated against the
// scheduler clock so virtual time drives it in tests.
type Throttle struct {
	clock   scheduler.Clock
	limiter *rate.Limiter
}

// NewThrottle allows one sync per interval
func NewThrottle(clock scheduler.Clock, interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Throttle{
		clock:   clock,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Allow reports whether a sync may go out now. Final syncs always pass and do
// not consume the budget.
func (t *Throttle) Allow(final bool) bool {
	if final {
		return true
	}
	return t.limiter.AllowN(t.clock.Now(), 1)
}

package gesture

import (
	"sync"
	"time"

	"github.com/ayusman/zengarden/internal/timeutil"
)

// Per-gesture trigger cooldowns.
const (
	GrabCooldown    = 200 * time.Millisecond
	ReleaseCooldown = 200 * time.Millisecond
	MagicCooldown   = 300 * time.Millisecond
	WindCooldown    = 500 * time.Millisecond
)

// Throttle wraps a trigger so it runs at most once per cooldown window.
// Calls inside the window are dropped, never queued or deferred.
type Throttle struct {
	cooldown time.Duration
	clock    timeutil.Clock
	fn       func()

	mu    sync.Mutex
	last  time.Time
	fired bool
}

// NewThrottle wraps fn with the given cooldown. A nil clock uses the wall clock.
func NewThrottle(cooldown time.Duration, clock timeutil.Clock, fn func()) *Throttle {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Throttle{
		cooldown: cooldown,
		clock:    clock,
		fn:       fn,
	}
}

// Fire runs the wrapped trigger unless the last accepted call is less than
// one cooldown ago. It reports whether the trigger ran.
func (t *Throttle) Fire() bool {
	now := t.clock.Now()

	t.mu.Lock()
	if t.fired && now.Sub(t.last) < t.cooldown {
		t.mu.Unlock()
		return false
	}
	t.last = now
	t.fired = true
	t.mu.Unlock()

	if t.fn != nil {
		t.fn()
	}
	return true
}

// Cooldown returns the throttle window.
func (t *Throttle) Cooldown() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cooldown
}

// SetCooldown changes the window. The time of the last accepted call is
// kept, so a call that would be dropped under both windows stays dropped.
func (t *Throttle) SetCooldown(cooldown time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cooldown = cooldown
}

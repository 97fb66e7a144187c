package scheduler

import (
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when an exclusive animation is already running
var ErrBusy = errors.New("exclusive animation already running")

// Guard admits at most one exclusive animation at a time. Each admission arms
// a safety release on the owning manager so a lost completion path can never
// leave the guard held; cancelling that manager releases the guard too.
type Guard struct {
	m *Manager

	mu     sync.Mutex
	busy   bool
	owner  string
	safety Token
	epoch  uint64
}

// NewGuard creates a busy guard whose safety releases live on m
func NewGuard(m *Manager) *Guard {
	return &Guard{m: m}
}

// TryBegin claims the guard for owner. The returned release must be called
// when the animation finishes; it is idempotent and ignores stale claims.
func (g *Guard) TryBegin(owner string, expected time.Duration) (func(), error) {
	g.mu.Lock()
	if g.busyLocked() {
		g.mu.Unlock()
		return nil, ErrBusy
	}
	g.epoch++
	epoch := g.epoch
	g.busy = true
	g.owner = owner
	g.mu.Unlock()

	release := func() { g.release(epoch) }
	tok := g.m.After("guard-safety", SafetyBound(expected), release)

	g.mu.Lock()
	if g.epoch == epoch {
		g.safety = tok
	}
	g.mu.Unlock()
	return release, nil
}

func (g *Guard) release(epoch uint64) {
	g.mu.Lock()
	if g.epoch != epoch || !g.busy {
		g.mu.Unlock()
		return
	}
	g.busy = false
	g.owner = ""
	tok := g.safety
	g.safety = 0
	g.mu.Unlock()

	g.m.Cancel(tok)
}

// Busy reports whether an exclusive animation holds the guard
func (g *Guard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busyLocked()
}

// Owner returns the name of the current holder, or ""
func (g *Guard) Owner() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.busyLocked() {
		return ""
	}
	return g.owner
}

// busyLocked treats a claim whose safety task has vanished (the manager was
// cancelled wholesale) as released.
func (g *Guard) busyLocked() bool {
	if !g.busy {
		return false
	}
	if g.safety != 0 && !g.m.Live(g.safety) {
		g.busy = false
		g.owner = ""
		g.safety = 0
		return false
	}
	return true
}

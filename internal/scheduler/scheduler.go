package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexmascot/internal/metrics"
)

// Token identifies one registered task
type Token uint64

// Loop serializes every engine operation and timer callback. Public
// operations enter through Do; callbacks armed by a Manager acquire the same
// lock before running, so at most one piece of engine logic runs at a time.
type Loop struct {
	clock    Clock
	log      zerolog.Logger
	instance string

	run sync.Mutex

	idMu sync.Mutex
	next Token
}

// NewLoop creates a run loop on the given clock
func NewLoop(clock Clock, logger zerolog.Logger) *Loop {
	if clock == nil {
		clock = RealClock()
	}
	return &Loop{
		clock:    clock,
		log:      logger.With().Str("component", "scheduler").Logger(),
		instance: uuid.NewString()[:8],
	}
}

// SetInstance names the loop in metrics so several engines in one process
// report separate series. Call it before NewManager.
func (l *Loop) SetInstance(name string) {
	if name != "" {
		l.instance = name
	}
}

// Instance returns the metrics instance label
func (l *Loop) Instance() string {
	return l.instance
}

// Clock returns the loop's time source
func (l *Loop) Clock() Clock {
	return l.clock
}

// Now returns the loop clock's current time
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Do runs fn on the loop. It must not be called from inside a scheduled
// callback; callbacks already hold the loop.
func (l *Loop) Do(fn func()) {
	l.run.Lock()
	defer l.run.Unlock()
	l.invoke("do", fn)
}

// invoke runs fn and recovers a panic so one failed callback never blocks
// unrelated ones.
func (l *Loop) invoke(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.TaskPanics.WithLabelValues(name).Inc()
			l.log.Error().
				Str("task", name).
				Str("panic", fmt.Sprint(r)).
				Msg("Scheduled task panicked")
		}
	}()
	fn()
}

func (l *Loop) nextToken() Token {
	l.idMu.Lock()
	defer l.idMu.Unlock()
	l.next++
	return l.next
}

type task struct {
	id       Token
	category string
	interval time.Duration
	timer    Timer
	fn       func()
}

// Manager owns a set of live tasks. Every delayed or repeating callback is
// registered under a token when armed and removed when it completes or is
// cancelled.
type Manager struct {
	loop *Loop
	name string

	mu    sync.Mutex
	tasks map[Token]*task
}

// NewManager creates a task registry bound to the loop
func (l *Loop) NewManager(name string) *Manager {
	return &Manager{
		loop:  l,
		name:  name,
		tasks: make(map[Token]*task),
	}
}

func (m *Manager) report(count float64) {
	metrics.LiveTasks.WithLabelValues(m.loop.instance, m.name).Set(count)
}

// Forget drops the manager's metric series once it is no longer used
func (m *Manager) Forget() {
	metrics.LiveTasks.DeleteLabelValues(m.loop.instance, m.name)
}

// Name returns the manager name used in logs and metrics
func (m *Manager) Name() string {
	return m.name
}

// Loop returns the loop the manager runs on
func (m *Manager) Loop() *Loop {
	return m.loop
}

// After runs fn once, d from now
func (m *Manager) After(category string, d time.Duration, fn func()) Token {
	return m.arm(category, d, 0, fn)
}

// Every runs fn repeatedly with the given interval until cancelled
func (m *Manager) Every(category string, interval time.Duration, fn func()) Token {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return m.arm(category, interval, interval, fn)
}

func (m *Manager) arm(category string, d, interval time.Duration, fn func()) Token {
	t := &task{
		id:       m.loop.nextToken(),
		category: category,
		interval: interval,
		fn:       fn,
	}

	m.mu.Lock()
	m.tasks[t.id] = t
	t.timer = m.loop.clock.AfterFunc(d, func() { m.fire(t.id) })
	count := len(m.tasks)
	m.mu.Unlock()

	m.report(float64(count))
	return t.id
}

func (m *Manager) fire(id Token) {
	m.loop.run.Lock()
	defer m.loop.run.Unlock()

	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if t.interval == 0 {
		delete(m.tasks, id)
	}
	count := len(m.tasks)
	m.mu.Unlock()
	m.report(float64(count))

	m.loop.invoke(m.name+"/"+t.category, t.fn)

	if t.interval == 0 {
		return
	}
	m.mu.Lock()
	if _, live := m.tasks[id]; live {
		t.timer = m.loop.clock.AfterFunc(t.interval, func() { m.fire(id) })
	}
	m.mu.Unlock()
}

// Cancel removes a single task; it reports whether the task was live
func (m *Manager) Cancel(id Token) bool {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if ok {
		delete(m.tasks, id)
		t.timer.Stop()
	}
	count := len(m.tasks)
	m.mu.Unlock()

	if ok {
		m.report(float64(count))
	}
	return ok
}

// CancelCategory removes every task in category and returns how many were live
func (m *Manager) CancelCategory(category string) int {
	m.mu.Lock()
	n := 0
	for id, t := range m.tasks {
		if t.category != category {
			continue
		}
		delete(m.tasks, id)
		t.timer.Stop()
		n++
	}
	count := len(m.tasks)
	m.mu.Unlock()

	m.report(float64(count))
	return n
}

// CancelAll empties the registry. Safe to call at any time, including from
// inside a running callback.
func (m *Manager) CancelAll() int {
	m.mu.Lock()
	n := len(m.tasks)
	for id, t := range m.tasks {
		delete(m.tasks, id)
		t.timer.Stop()
	}
	m.mu.Unlock()

	m.report(0)
	return n
}

// Live reports whether the token is still registered
func (m *Manager) Live(id Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[id]
	return ok
}

// Active reports whether any task in category is registered
func (m *Manager) Active(category string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.category == category {
			return true
		}
	}
	return false
}

// Len returns the number of registered tasks
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Tokens returns the registered tokens in creation order
func (m *Manager) Tokens() []Token {
	m.mu.Lock()
	ids := make([]Token, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SafetyBound returns the companion-timeout for a task expected to finish
// within expected. It is always strictly longer than expected.
func SafetyBound(expected time.Duration) time.Duration {
	margin := expected / 2
	if margin < 500*time.Millisecond {
		margin = 500 * time.Millisecond
	}
	return expected + margin
}

// Animate runs step on every tick until it returns true. A companion safety
// task ends the animation if it has not completed within SafetyBound(expected).
// done receives true on normal completion and false on a safety stop.
func (m *Manager) Animate(category string, tick, expected time.Duration, step func(elapsed time.Duration) bool, done func(completed bool)) Token {
	start := m.loop.clock.Now()

	var tickTok, safetyTok Token
	finished := false
	finish := func(completed bool) {
		if finished {
			return
		}
		finished = true
		m.Cancel(tickTok)
		m.Cancel(safetyTok)
		if done != nil {
			done(completed)
		}
	}

	tickTok = m.Every(category, tick, func() {
		if step(m.loop.clock.Now().Sub(start)) {
			finish(true)
		}
	})
	safetyTok = m.After(category, SafetyBound(expected), func() {
		m.loop.log.Debug().
			Str("manager", m.name).
			Str("category", category).
			Dur("expected", expected).
			Msg("Animation stopped by safety timeout")
		finish(false)
	})
	return tickTok
}

// Package avatar is the expression state machine. The Engine owns the single
// Visual, serializes every operation and timer callback on one loop, and
// wires the detector, gesture tracker, color cycler, state sync and position
// store together.
package avatar

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexmascot/internal/bus"
	"github.com/normanking/cortexmascot/internal/color"
	"github.com/normanking/cortexmascot/internal/emotion"
	"github.com/normanking/cortexmascot/internal/expression"
	"github.com/normanking/cortexmascot/internal/gesture"
	"github.com/normanking/cortexmascot/internal/scheduler"
	"github.com/normanking/cortexmascot/internal/statesync"
	"github.com/normanking/cortexmascot/internal/store"
)

var (
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("avatar engine closed")

	// ErrSuppressed is returned when a higher-priority expression owns the face
	ErrSuppressed = errors.New("expression suppressed")

	ErrUnknownBehavior = errors.New("unknown behavior")
)

// Source says who asked for an expression; it decides priority
type Source string

const (
	SourceAuto    Source = "auto"    // emotion schedule from text
	SourceGesture Source = "gesture" // pointer reaction
	SourceAPI     Source = "api"     // explicit caller request
)

// Options configure an Engine
type Options struct {
	// Name labels the engine's metrics; empty generates one
	Name     string
	Clock    scheduler.Clock
	Rand     *rand.Rand
	Logger   zerolog.Logger
	Detector *emotion.Detector
	Palette  color.Palette
	Color    color.Options
	Sync     statesync.Sender
	Store    store.Store

	DefaultPosition expression.Point
	Bounds          expression.Point // area autonomous movement stays inside

	DefaultEmotionDuration time.Duration
	GestureDuration        time.Duration
	MessageDebounce        time.Duration
	ToolPollInterval       time.Duration
	ToolMaxDuration        time.Duration

	Blink         bool
	IdleBehaviors bool
	Autonomous    bool
}

// DefaultOptions returns the standard timings with every ambient loop enabled
func DefaultOptions() Options {
	return Options{
		Logger:                 zerolog.Nop(),
		Palette:                color.DefaultPalette(),
		Color:                  color.DefaultOptions(),
		DefaultPosition:        expression.Point{X: 40, Y: 40},
		Bounds:                 expression.Point{X: 1280, Y: 720},
		DefaultEmotionDuration: 3 * time.Second,
		GestureDuration:        2500 * time.Millisecond,
		MessageDebounce:        2 * time.Second,
		ToolPollInterval:       500 * time.Millisecond,
		ToolMaxDuration:        15 * time.Second,
		Blink:                  true,
		IdleBehaviors:          true,
		Autonomous:             true,
	}
}

// Engine is one avatar instance
type Engine struct {
	loop     *scheduler.Loop
	anim     *scheduler.Manager // expression-scoped; SetState cancels it
	ambient  *scheduler.Manager // survives state changes; Close cancels it
	guard    *scheduler.Guard
	log      zerolog.Logger
	opts     Options
	rng      *rand.Rand
	detector *emotion.Detector
	tracker  *gesture.Tracker
	colors   *color.Cycler
	sync     statesync.Sender
	store    store.Store

	// owned by the loop
	visual       expression.Visual
	base         expression.State
	talking      bool
	searching    bool
	closed       bool
	started      bool
	lastText     string
	gestureUntil time.Time
	toolProbe    func() bool
	toolActive   bool
	moveRelease  func()
	events       *bus.EventBus

	snapMu   sync.RWMutex
	snapshot expression.Visual

	obsMu     sync.RWMutex
	observers []func(expression.Visual)

	positions *positionWriter
}

// New creates an engine. The saved position is restored from the store when
// both coordinates are present; ambient loops wait for Start.
func New(opts Options) (*Engine, error) {
	if opts.Clock == nil {
		opts.Clock = scheduler.RealClock()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Palette == nil {
		opts.Palette = color.DefaultPalette()
	}
	if opts.Sync == nil {
		opts.Sync = statesync.Discard{}
	}
	if opts.DefaultEmotionDuration <= 0 {
		opts.DefaultEmotionDuration = 3 * time.Second
	}
	if opts.GestureDuration <= 0 {
		opts.GestureDuration = 2500 * time.Millisecond
	}
	if opts.MessageDebounce <= 0 {
		opts.MessageDebounce = 2 * time.Second
	}
	if opts.ToolPollInterval <= 0 {
		opts.ToolPollInterval = 500 * time.Millisecond
	}
	if opts.ToolMaxDuration <= 0 {
		opts.ToolMaxDuration = 15 * time.Second
	}
	if opts.Detector == nil {
		d, err := emotion.NewDetector(emotion.DefaultDictionary(), emotion.Options{
			Throttle: emotion.DefaultThrottle,
			Rand:     rand.New(rand.NewSource(opts.Rand.Int63())),
		}, opts.Logger)
		if err != nil {
			return nil, err
		}
		opts.Detector = d
	}

	loop := scheduler.NewLoop(opts.Clock, opts.Logger)
	loop.SetInstance(opts.Name)
	e := &Engine{
		loop:     loop,
		anim:     loop.NewManager("animations"),
		ambient:  loop.NewManager("ambient"),
		log:      opts.Logger.With().Str("component", "engine").Logger(),
		opts:     opts,
		rng:      opts.Rand,
		detector: opts.Detector,
		tracker:  gesture.NewTracker(rand.New(rand.NewSource(opts.Rand.Int63()))),
		sync:     opts.Sync,
		store:    opts.Store,
		base:     expression.StateIdle,
	}
	e.positions = newPositionWriter(opts.Store, e.log)
	e.guard = scheduler.NewGuard(e.ambient)

	cycler, err := color.NewCycler(e.ambient, opts.Palette, opts.Color,
		rand.New(rand.NewSource(opts.Rand.Int63())), opts.Logger,
		e.applyColors, e.syncColors)
	if err != nil {
		return nil, err
	}
	e.colors = cycler

	e.visual = expression.NewVisual(e.restorePosition(), cycler.Colors())
	e.publish()
	return e, nil
}

func (e *Engine) restorePosition() expression.Point {
	if e.store == nil {
		return e.opts.DefaultPosition
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	p, ok, err := store.LoadPosition(ctx, e.store)
	if err != nil {
		e.log.Warn().Err(err).Msg("Saved position unavailable, using default anchor")
		return e.opts.DefaultPosition
	}
	if !ok {
		return e.opts.DefaultPosition
	}
	e.log.Debug().Float64("x", p.X).Float64("y", p.Y).Msg("Position restored")
	return p
}

// Start arms the ambient loops: blink, idle behaviors, autonomous movement,
// color cycling and tool polling.
func (e *Engine) Start() error {
	return e.do(func() error {
		if e.started {
			return nil
		}
		e.started = true
		if e.opts.Blink {
			e.scheduleBlink()
		}
		if e.opts.IdleBehaviors {
			e.ambient.Every("behavior-roll", behaviorRollInterval, e.rollBehavior)
		}
		if e.opts.Autonomous {
			e.ambient.Every("movement-roll", movementRollInterval, e.rollMovement)
		}
		e.colors.Start()
		if e.toolProbe != nil {
			e.startToolPoll()
		}
		e.log.Info().Msg("Avatar engine started")
		return nil
	})
}

// Close cancels every scheduled task and waits for pending position writes.
// Further operations return ErrClosed.
func (e *Engine) Close() error {
	err := e.do(func() error {
		e.closed = true
		e.anim.CancelAll()
		e.ambient.CancelAll()
		e.tracker.Cancel()
		e.log.Info().Msg("Avatar engine closed")
		return nil
	})
	e.positions.Wait()
	if err == nil {
		e.anim.Forget()
		e.ambient.Forget()
	}
	return err
}

// Snapshot returns a copy of the current visual. Safe from any goroutine,
// including render observers.
func (e *Engine) Snapshot() expression.Visual {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snapshot
}

// OnRender registers an observer called with a copy of the visual after every
// change. Observers run on the engine loop and must not block or call back
// into the engine.
func (e *Engine) OnRender(fn func(expression.Visual)) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observers = append(e.observers, fn)
}

// Live returns the number of scheduled tasks, expression-scoped and ambient
func (e *Engine) Live() (animations, ambient int) {
	return e.anim.Len(), e.ambient.Len()
}

// Loop exposes the engine's run loop, mainly so tests can drive virtual time
func (e *Engine) Loop() *scheduler.Loop {
	return e.loop
}

// do runs fn on the loop unless the engine is closed
func (e *Engine) do(fn func() error) error {
	var err error
	e.loop.Do(func() {
		if e.closed {
			err = ErrClosed
			return
		}
		err = fn()
	})
	return err
}

// publish copies the visual for Snapshot and hands it to observers
func (e *Engine) publish() {
	v := e.visual

	e.snapMu.Lock()
	e.snapshot = v
	e.snapMu.Unlock()

	e.obsMu.RLock()
	observers := make([]func(expression.Visual), len(e.observers))
	copy(observers, e.observers)
	e.obsMu.RUnlock()

	for _, fn := range observers {
		fn(v)
	}
}

func (e *Engine) applyColors(s color.Set) {
	e.visual.Colors = s
	e.publish()
}

func (e *Engine) syncColors(s color.Set) {
	e.sync.Send(statesync.Update{Body: s.Body.Hex(), Face: s.Face.Hex()})
}

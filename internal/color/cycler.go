package color

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexmascot/internal/metrics"
	"github.com/normanking/cortexmascot/internal/scheduler"
)

// Mode selects how colors advance
type Mode string

const (
	ModeReactive      Mode = "reactive"
	ModeDeterministic Mode = "deterministic"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeReactive, ModeDeterministic:
		return Mode(s), nil
	case "":
		return ModeReactive, nil
	}
	return "", fmt.Errorf("unknown color mode %q", s)
}

// Options tune the cycler
type Options struct {
	Mode         Mode
	Heartbeat    time.Duration // reactive roll interval
	Chance       float64       // reactive roll probability
	MinDuration  time.Duration
	MaxDuration  time.Duration
	Tick         time.Duration // interpolation cadence
	Hold         time.Duration // deterministic hold per entry
	Transition   time.Duration // deterministic transition length
	SyncInterval time.Duration
}

// DefaultOptions returns the standard ambient timings
func DefaultOptions() Options {
	return Options{
		Mode:         ModeReactive,
		Heartbeat:    5 * time.Second,
		Chance:       0.15,
		MinDuration:  500 * time.Millisecond,
		MaxDuration:  10 * time.Second,
		Tick:         16 * time.Millisecond,
		Hold:         20 * time.Second,
		Transition:   4 * time.Second,
		SyncInterval: DefaultSyncInterval,
	}
}

const categoryTransition = "color-transition"

// Cycler owns the avatar's ambient color identity. Its scheduled work lives on
// a manager that state changes never cancel, so transitions persist across
// expression states. Methods other than the accessors run on the loop.
type Cycler struct {
	m       *scheduler.Manager
	palette Palette
	opts    Options
	rng     *rand.Rand
	log     zerolog.Logger

	throttle *Throttle
	onChange func(Set)
	onSync   func(Set)

	mu        sync.Mutex
	current   int
	target    int
	active    bool
	progress  float64
	from      Set
	colors    Set
	heartbeat scheduler.Token
	anim      scheduler.Token
	lastPhase Phase
}

// NewCycler creates a cycler on m. onChange receives every interpolated color;
// onSync receives the throttled subset meant for external collaborators.
func NewCycler(m *scheduler.Manager, palette Palette, opts Options, rng *rand.Rand, logger zerolog.Logger, onChange, onSync func(Set)) (*Cycler, error) {
	if err := palette.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Tick <= 0 {
		opts.Tick = 16 * time.Millisecond
	}
	if opts.MaxDuration < opts.MinDuration {
		opts.MaxDuration = opts.MinDuration
	}
	return &Cycler{
		m:        m,
		palette:  palette,
		opts:     opts,
		rng:      rng,
		log:      logger.With().Str("component", "color").Logger(),
		throttle: NewThrottle(m.Loop().Clock(), opts.SyncInterval),
		onChange: onChange,
		onSync:   onSync,
		colors:   palette[0],
	}, nil
}

// Start arms the heartbeat (reactive) or the wall-clock tick (deterministic)
func (c *Cycler) Start() {
	c.mu.Lock()
	if c.heartbeat != 0 && c.m.Live(c.heartbeat) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	var tok scheduler.Token
	if c.opts.Mode == ModeDeterministic {
		tok = c.m.Every("color-cycle", c.opts.Tick, c.tickDeterministic)
		c.tickDeterministic()
	} else {
		tok = c.m.Every("color-heartbeat", c.opts.Heartbeat, c.Heartbeat)
	}

	c.mu.Lock()
	c.heartbeat = tok
	c.mu.Unlock()
	c.log.Debug().Str("mode", string(c.opts.Mode)).Msg("Color cycle started")
}

// Stop cancels the heartbeat and any in-flight transition
func (c *Cycler) Stop() {
	c.mu.Lock()
	hb, anim := c.heartbeat, c.anim
	c.heartbeat, c.anim = 0, 0
	c.active = false
	c.mu.Unlock()

	c.m.Cancel(hb)
	if anim != 0 {
		c.m.CancelCategory(categoryTransition)
	}
}

// Heartbeat is one reactive roll: with the configured chance, and only when
// no transition is active, start a transition to a different entry.
func (c *Cycler) Heartbeat() {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return
	}
	if c.rng.Float64() >= c.opts.Chance {
		c.mu.Unlock()
		return
	}
	target := c.rng.Intn(len(c.palette) - 1)
	if target >= c.current {
		target++
	}
	span := c.opts.MaxDuration - c.opts.MinDuration
	d := c.opts.MinDuration
	if span > 0 {
		d += time.Duration(c.rng.Int63n(int64(span) + 1))
	}
	c.mu.Unlock()

	if err := c.Begin(target, d); err != nil {
		c.log.Warn().Err(err).Msg("Color transition not started")
	}
}

// Begin interpolates from the current color to palette[target] over d. A
// transition already in flight is replaced.
func (c *Cycler) Begin(target int, d time.Duration) error {
	if target < 0 || target >= len(c.palette) {
		return fmt.Errorf("palette index %d out of range [0,%d)", target, len(c.palette))
	}
	if d <= 0 {
		d = c.opts.Tick
	}
	c.m.CancelCategory(categoryTransition)

	c.mu.Lock()
	c.from = c.colors
	c.target = target
	c.active = true
	c.progress = 0
	c.mu.Unlock()

	metrics.ColorTransitions.WithLabelValues(string(ModeReactive)).Inc()
	c.log.Debug().
		Int("from", c.CurrentIndex()).
		Int("to", target).
		Dur("duration", d).
		Msg("Color transition started")

	tok := c.m.Animate(categoryTransition, c.opts.Tick, d,
		func(elapsed time.Duration) bool {
			p := float64(elapsed) / float64(d)
			if p > 1 {
				p = 1
			}
			c.Step(p)
			return p >= 1
		},
		func(completed bool) {
			if !completed {
				c.Step(1)
			}
		},
	)

	c.mu.Lock()
	c.anim = tok
	c.mu.Unlock()
	return nil
}

// Step moves the active transition to progress in [0,1]. Progress 1 makes the
// target current and clears the transition.
func (c *Cycler) Step(progress float64) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	if progress < 0 {
		progress = 0
	}
	final := progress >= 1
	if final {
		progress = 1
	}
	c.progress = progress
	c.colors = c.from.Lerp(c.palette[c.target], progress)
	if final {
		c.current = c.target
		c.active = false
		c.anim = 0
	}
	colors := c.colors
	c.mu.Unlock()

	c.emit(colors, final)
}

func (c *Cycler) tickDeterministic() {
	cycle := Cycle{Palette: c.palette, Hold: c.opts.Hold, Transition: c.opts.Transition}
	phase := cycle.At(c.m.Loop().Now())

	c.mu.Lock()
	prev := c.lastPhase
	c.lastPhase = phase
	changed := phase.Colors != c.colors
	c.colors = phase.Colors
	c.current = phase.From
	c.target = phase.To
	c.progress = phase.Progress
	c.active = phase.Transitioning()
	c.mu.Unlock()

	if phase.Transitioning() && !prev.Transitioning() {
		metrics.ColorTransitions.WithLabelValues(string(ModeDeterministic)).Inc()
	}
	// the tick that lands on the hold after a transition is the 100% sync
	final := prev.Transitioning() && !phase.Transitioning()
	if changed || final {
		c.emit(phase.Colors, final)
	}
}

func (c *Cycler) emit(colors Set, final bool) {
	if c.onChange != nil {
		c.onChange(colors)
	}
	if c.onSync != nil && c.throttle.Allow(final) {
		c.onSync(colors)
	}
}

// Colors returns the color currently shown
func (c *Cycler) Colors() Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.colors
}

// CurrentIndex returns the palette entry last completed
func (c *Cycler) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// TargetIndex returns the entry the active transition heads to
func (c *Cycler) TargetIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Active reports whether a transition is in flight
func (c *Cycler) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Progress returns the active transition's progress
func (c *Cycler) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

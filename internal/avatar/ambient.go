package avatar

import (
	"time"

	"github.com/normanking/cortexmascot/internal/expression"
)

const (
	blinkMin      = 3 * time.Second
	blinkSpread   = 3 * time.Second
	blinkDuration = 150 * time.Millisecond

	behaviorRollInterval = 4 * time.Second
	behaviorChance       = 0.3

	movementRollInterval = 12 * time.Second
	movementChance       = 0.25
	movementDuration     = 2 * time.Second
	movementMargin       = 80.0

	categoryBlink    = "blink"
	categoryBehavior = "behavior"
	categoryMovement = "movement"
)

// Behavior is one idle flourish
type Behavior struct {
	Name     string
	Duration time.Duration
}

// Behaviors is the idle flourish set, picked uniformly
var Behaviors = []Behavior{
	{Name: "look-around", Duration: 1200 * time.Millisecond},
	{Name: "bounce", Duration: 600 * time.Millisecond},
	{Name: "wiggle", Duration: 800 * time.Millisecond},
	{Name: "rotate3d", Duration: time.Second},
	{Name: "arm-wave", Duration: 1500 * time.Millisecond},
}

func (e *Engine) scheduleBlink() {
	wait := blinkMin + time.Duration(e.rng.Int63n(int64(blinkSpread)))
	e.ambient.After(categoryBlink, wait, func() {
		e.visual.Blinking = true
		e.publish()
		e.ambient.After(categoryBlink, blinkDuration, func() {
			e.visual.Blinking = false
			e.publish()
			e.scheduleBlink()
		})
	})
}

// idle reports whether the avatar is free for an ambient flourish
func (e *Engine) idle() bool {
	return e.base == expression.StateIdle &&
		e.visual.State == expression.StateIdle &&
		!e.searching &&
		!e.tracker.Dragging()
}

func (e *Engine) rollBehavior() {
	if !e.idle() || e.rng.Float64() >= behaviorChance {
		return
	}
	b := Behaviors[e.rng.Intn(len(Behaviors))]
	if err := e.playBehavior(b); err != nil {
		e.log.Debug().Err(err).Str("behavior", b.Name).Msg("Idle behavior skipped")
	}
}

// PlayBehavior runs an idle flourish now if no exclusive animation is running
func (e *Engine) PlayBehavior(name string) error {
	for _, b := range Behaviors {
		if b.Name == name {
			return e.do(func() error { return e.playBehavior(b) })
		}
	}
	return ErrUnknownBehavior
}

func (e *Engine) playBehavior(b Behavior) error {
	release, err := e.guard.TryBegin(b.Name, b.Duration)
	if err != nil {
		return err
	}
	e.visual.Behavior = b.Name
	e.publish()
	e.ambient.After(categoryBehavior, b.Duration, func() {
		e.visual.Behavior = ""
		e.publish()
		release()
	})
	return nil
}

func (e *Engine) rollMovement() {
	if e.tracker.Dragging() || e.searching || e.rng.Float64() >= movementChance {
		return
	}
	target := expression.Point{
		X: movementMargin + e.rng.Float64()*maxf(e.opts.Bounds.X-2*movementMargin, 0),
		Y: movementMargin + e.rng.Float64()*maxf(e.opts.Bounds.Y-2*movementMargin, 0),
	}
	if err := e.moveTo(target); err != nil {
		e.log.Debug().Err(err).Msg("Autonomous move skipped")
	}
}

// MoveTo glides the avatar to p. Returns scheduler.ErrBusy when an exclusive
// animation is running and is ignored while dragging.
func (e *Engine) MoveTo(p expression.Point) error {
	return e.do(func() error {
		if e.tracker.Dragging() {
			return ErrSuppressed
		}
		return e.moveTo(p)
	})
}

func (e *Engine) moveTo(target expression.Point) error {
	release, err := e.guard.TryBegin("move", movementDuration)
	if err != nil {
		return err
	}
	e.moveRelease = release
	from := e.visual.Position
	e.ambient.Animate(categoryMovement, frameInterval, movementDuration, func(elapsed time.Duration) bool {
		p := easeInOut(progress(elapsed, movementDuration))
		e.visual.Position = expression.Point{
			X: from.X + (target.X-from.X)*p,
			Y: from.Y + (target.Y-from.Y)*p,
		}
		e.publish()
		return p >= 1
	}, func(completed bool) {
		if !completed {
			e.visual.Position = target
			e.publish()
		}
		e.stopMovement()
	})
	return nil
}

// stopMovement ends an autonomous move where it is and frees the guard
func (e *Engine) stopMovement() {
	e.ambient.CancelCategory(categoryMovement)
	if e.moveRelease != nil {
		e.moveRelease()
		e.moveRelease = nil
	}
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

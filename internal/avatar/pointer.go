package avatar

import (
	"math"
	"time"

	"github.com/normanking/cortexmascot/internal/expression"
	"github.com/normanking/cortexmascot/internal/gesture"
)

const (
	frameInterval  = 16 * time.Millisecond
	springDuration = 300 * time.Millisecond
	floatResume    = 800 * time.Millisecond
	spinDuration   = 600 * time.Millisecond
	gazeReach      = 200.0 // px at which the gaze saturates

	categoryDragFeedback = "drag-feedback"
	categoryFloat        = "float-resume"
	categorySpin         = "flourish"
)

// PointerPress starts a press at p
func (e *Engine) PointerPress(p expression.Point) error {
	return e.do(func() error {
		e.tracker.Press(p, e.visual.Position, e.loop.Now())
		return nil
	})
}

// PointerMove feeds a pointer move. Once the press becomes a drag the avatar
// follows the pointer with a squish that tracks velocity.
func (e *Engine) PointerMove(p expression.Point) error {
	return e.do(func() error {
		m := e.tracker.Move(p, e.loop.Now())
		if !m.Dragging {
			return nil
		}
		if m.Started {
			e.beginDrag()
		}
		tf := m.Squish
		tf.RotateY = e.visual.Transform.RotateY
		e.visual.Transform = tf
		e.visual.Position = m.Position
		e.publish()
		if m.Reaction != nil {
			e.react(*m.Reaction)
		}
		return nil
	})
}

// PointerRelease ends the press. A drag springs back and persists its final
// position; a press that never moved is a poke.
func (e *Engine) PointerRelease(p expression.Point) error {
	return e.do(func() error {
		rel := e.tracker.Release(p, e.loop.Now())
		if rel.WasDrag {
			e.endDrag(rel.Position)
			return nil
		}
		if rel.Reaction != nil {
			e.react(*rel.Reaction)
		}
		return nil
	})
}

// PointerDouble handles a double press
func (e *Engine) PointerDouble() error {
	return e.do(func() error {
		if e.tracker.Dragging() {
			e.endDrag(e.visual.Position)
		}
		e.react(e.tracker.Double())
		return nil
	})
}

// PointerHover points the eyes at p. Ignored while dragging.
func (e *Engine) PointerHover(p expression.Point) error {
	return e.do(func() error {
		if e.tracker.Dragging() {
			return nil
		}
		e.visual.Gaze = expression.Point{
			X: clamp((p.X-e.visual.Position.X)/gazeReach, -1, 1),
			Y: clamp((p.Y-e.visual.Position.Y)/gazeReach, -1, 1),
		}
		e.publish()
		return nil
	})
}

func (e *Engine) beginDrag() {
	e.stopMovement()
	e.ambient.CancelCategory(categoryDragFeedback)
	e.ambient.CancelCategory(categoryFloat)
	e.visual.Dragging = true
	e.visual.Floating = false
	e.visual.Gaze = expression.Point{}
	e.log.Debug().Msg("Drag started")
}

func (e *Engine) endDrag(pos expression.Point) {
	e.visual.Dragging = false
	e.visual.Position = pos
	e.publish()

	from := e.visual.Transform
	to := expression.NeutralTransform()
	e.ambient.CancelCategory(categoryDragFeedback)
	e.ambient.Animate(categoryDragFeedback, frameInterval, springDuration, func(elapsed time.Duration) bool {
		p := progress(elapsed, springDuration)
		e.visual.Transform = lerpTransform(from, to, easeOut(p), e.visual.Transform.RotateY)
		e.publish()
		return p >= 1
	}, func(bool) {
		rest := to
		rest.RotateY = e.visual.Transform.RotateY
		e.visual.Transform = rest
		e.publish()
	})

	e.ambient.CancelCategory(categoryFloat)
	e.ambient.After(categoryFloat, floatResume, func() {
		if e.tracker.Dragging() {
			return
		}
		e.visual.Floating = true
		e.publish()
	})

	e.positions.Save(pos)
	e.log.Debug().Float64("x", pos.X).Float64("y", pos.Y).Msg("Drag ended")
}

// react shows a gesture reaction and its optional spin
func (e *Engine) react(r gesture.Reaction) {
	if err := e.showEmotion(r.Expression, e.opts.GestureDuration, SourceGesture); err != nil {
		e.log.Debug().Err(err).Str("cause", string(r.Cause)).Msg("Gesture reaction suppressed")
		return
	}
	if r.Spin {
		e.spin()
	}
}

// spin turns the body a full revolution around its vertical axis
func (e *Engine) spin() {
	e.ambient.CancelCategory(categorySpin)
	e.ambient.Animate(categorySpin, frameInterval, spinDuration, func(elapsed time.Duration) bool {
		p := progress(elapsed, spinDuration)
		e.visual.Transform.RotateY = 360 * easeInOut(p)
		e.publish()
		return p >= 1
	}, func(bool) {
		e.visual.Transform.RotateY = 0
		e.publish()
	})
}

func progress(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	return clamp(float64(elapsed)/float64(total), 0, 1)
}

func easeOut(p float64) float64 {
	return 1 - math.Pow(1-p, 3)
}

func easeInOut(p float64) float64 {
	if p < 0.5 {
		return 4 * p * p * p
	}
	return 1 - math.Pow(-2*p+2, 3)/2
}

// lerpTransform blends every component except RotateY, which belongs to the
// spin and is passed through.
func lerpTransform(from, to expression.Transform, t, rotateY float64) expression.Transform {
	lerp := func(a, b float64) float64 { return a + (b-a)*t }
	return expression.Transform{
		Rotate:     lerp(from.Rotate, to.Rotate),
		RotateY:    rotateY,
		ScaleX:     lerp(from.ScaleX, to.ScaleX),
		ScaleY:     lerp(from.ScaleY, to.ScaleY),
		TranslateY: lerp(from.TranslateY, to.TranslateY),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

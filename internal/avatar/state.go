package avatar

import (
	"fmt"
	"strings"
	"time"

	"github.com/normanking/cortexmascot/internal/bus"
	"github.com/normanking/cortexmascot/internal/emotion"
	"github.com/normanking/cortexmascot/internal/expression"
	"github.com/normanking/cortexmascot/internal/metrics"
	"github.com/normanking/cortexmascot/internal/statesync"
)

const (
	mouthInterval = 120 * time.Millisecond

	categoryEmotion = "emotion"
	categoryCycle   = "emotion-cycle"
	categoryMouth   = "mouth"
)

// Voice statuses understood by Voice. start and speaking are synonyms, as
// are end and stopped.
const (
	VoiceStart    = "start"
	VoiceSpeaking = "speaking"
	VoiceEnd      = "end"
	VoiceStopped  = "stopped"
	VoiceThinking = "thinking"
)

// SetState cancels every expression-scoped animation and renders s. Talking
// starts the mouth animation; leaving talking closes the mouth.
func (e *Engine) SetState(s expression.State) error {
	if _, ok := expression.Lookup(s); !ok {
		metrics.RejectedExpressions.WithLabelValues("unknown").Inc()
		e.log.Warn().Str("state", string(s)).Msg("Unknown state rejected")
		return fmt.Errorf("%w: %q", expression.ErrUnknownExpression, s)
	}
	return e.do(func() error {
		e.setState(s)
		return nil
	})
}

// State returns the base state the engine reverts to after an expression
func (e *Engine) State() expression.State {
	var s expression.State
	e.loop.Do(func() { s = e.base })
	return s
}

func (e *Engine) setState(s expression.State) {
	e.anim.CancelAll()

	e.talking = s == expression.StateTalking
	e.visual.Talking = e.talking
	if s.IsBase() {
		e.base = s
	}

	e.renderCurrent(s, false)
	if e.talking {
		e.anim.Every(categoryMouth, mouthInterval, e.animateMouth)
	}

	talking := e.talking
	e.sync.Send(statesync.Update{Expression: string(s), Talking: &talking})
	e.announce(bus.EventTypeStateChanged, map[string]any{"state": string(s), "talking": talking})
	e.log.Debug().Str("state", string(s)).Bool("searching", e.searching).Msg("State changed")
}

// renderCurrent renders s unless the searching overlay owns the face
func (e *Engine) renderCurrent(s expression.State, keepMouth bool) {
	if e.searching {
		s = expression.Searching.State()
		keepMouth = keepMouth || e.talking
	}
	expression.Render(expression.MustLookup(s), &e.visual, keepMouth)
	e.publish()
}

func (e *Engine) animateMouth() {
	e.visual.Mouth = expression.TalkingMouth(e.rng.Intn(expression.TalkingFrames()))
	e.publish()
}

// ShowEmotion shows id for d, then reverts to the base state. A zero d uses
// the default duration.
func (e *Engine) ShowEmotion(id expression.ID, d time.Duration) error {
	return e.showEmotionSource(id, d, SourceAPI)
}

func (e *Engine) showEmotionSource(id expression.ID, d time.Duration, source Source) error {
	if !id.Valid() {
		metrics.RejectedExpressions.WithLabelValues("unknown").Inc()
		e.log.Warn().Str("expression", string(id)).Str("source", string(source)).Msg("Unknown expression rejected")
		return fmt.Errorf("%w: %q", expression.ErrUnknownExpression, id)
	}
	return e.do(func() error {
		return e.showEmotion(id, d, source)
	})
}

// showEmotion runs on the loop. Searching beats everything except an
// explicit request; a gesture face beats the emotion cycle.
func (e *Engine) showEmotion(id expression.ID, d time.Duration, source Source) error {
	if e.searching && id != expression.Searching {
		metrics.RejectedExpressions.WithLabelValues("searching").Inc()
		return ErrSuppressed
	}
	now := e.loop.Now()
	if source == SourceAuto && now.Before(e.gestureUntil) {
		metrics.RejectedExpressions.WithLabelValues("gesture").Inc()
		return ErrSuppressed
	}
	if d <= 0 {
		d = e.opts.DefaultEmotionDuration
	}
	if source == SourceGesture {
		e.anim.CancelCategory(categoryCycle)
		e.gestureUntil = now.Add(d)
	}

	e.anim.CancelCategory(categoryEmotion)
	expression.Render(expression.MustLookup(id.State()), &e.visual, e.talking)
	e.publish()
	e.anim.After(categoryEmotion, d, e.revert)

	metrics.Reactions.WithLabelValues(string(source), string(id)).Inc()
	e.sync.Send(statesync.Update{Expression: string(id)})
	e.announce(bus.EventTypeExpressionShown, map[string]any{"expression": string(id), "source": string(source)})
	e.log.Debug().
		Str("expression", string(id)).
		Str("source", string(source)).
		Dur("duration", d).
		Msg("Expression shown")
	return nil
}

func (e *Engine) revert() {
	e.renderCurrent(e.base, e.talking)
	e.sync.Send(statesync.Update{Expression: string(e.base)})
}

// PlaySchedule replaces any running emotion cycle with items. Each item shows
// at its delay from now.
func (e *Engine) PlaySchedule(items []emotion.Item) error {
	for _, it := range items {
		if !it.Emotion.Valid() {
			metrics.RejectedExpressions.WithLabelValues("unknown").Inc()
			return fmt.Errorf("%w: %q", expression.ErrUnknownExpression, it.Emotion)
		}
	}
	return e.do(func() error {
		return e.playSchedule(items)
	})
}

func (e *Engine) playSchedule(items []emotion.Item) error {
	if e.searching {
		metrics.RejectedExpressions.WithLabelValues("searching").Inc()
		return ErrSuppressed
	}
	e.anim.CancelCategory(categoryCycle)
	for _, it := range items {
		it := it
		e.anim.After(categoryCycle, it.Delay, func() {
			if err := e.showEmotion(it.Emotion, it.Duration, SourceAuto); err != nil {
				e.log.Debug().Err(err).Str("expression", string(it.Emotion)).Msg("Scheduled expression skipped")
			}
		})
	}
	return nil
}

// Voice applies a voice status: start switches to talking, thinking to
// thinking, stopped returns to idle and re-analyzes the last message.
func (e *Engine) Voice(status string) error {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case VoiceStart, VoiceSpeaking, "started":
		return e.do(func() error {
			e.setState(expression.StateTalking)
			return nil
		})
	case VoiceThinking:
		return e.do(func() error {
			e.setState(expression.StateThinking)
			return nil
		})
	case VoiceEnd, VoiceStopped:
		return e.do(func() error {
			e.setState(expression.StateIdle)
			e.analyze()
			return nil
		})
	default:
		return fmt.Errorf("unknown voice status %q", status)
	}
}

package avatar

import (
	"github.com/normanking/cortexmascot/internal/expression"
	"github.com/normanking/cortexmascot/internal/statesync"
)

const (
	categoryDebounce  = "message-debounce"
	categoryToolPoll  = "tool-poll"
	categorySearchCap = "searching-clear"
)

// MessageUpdated records the latest assistant text. Analysis runs once the
// text has been stable for the debounce interval.
func (e *Engine) MessageUpdated(text string) error {
	return e.do(func() error {
		e.lastText = text
		e.ambient.CancelCategory(categoryDebounce)
		e.ambient.After(categoryDebounce, e.opts.MessageDebounce, e.analyze)
		return nil
	})
}

// analyze runs the detector over the last text and plays the schedule it
// produces. Runs on the loop.
func (e *Engine) analyze() {
	e.ambient.CancelCategory(categoryDebounce)
	if e.lastText == "" {
		return
	}
	res := e.detector.Analyze(e.lastText)
	if res == nil {
		return
	}
	if err := e.playSchedule(res.Schedule); err != nil {
		e.log.Debug().Err(err).Str("dominant", string(res.Dominant)).Msg("Emotion schedule not played")
		return
	}
	e.log.Debug().
		Str("dominant", string(res.Dominant)).
		Int("items", len(res.Schedule)).
		Msg("Emotion schedule started")
}

// SetToolProbe installs a function polled for tool activity. Polling starts
// with the engine, or immediately when the engine is already running.
func (e *Engine) SetToolProbe(probe func() bool) error {
	return e.do(func() error {
		e.toolProbe = probe
		e.ambient.CancelCategory(categoryToolPoll)
		if e.started && probe != nil {
			e.startToolPoll()
		}
		return nil
	})
}

func (e *Engine) startToolPoll() {
	e.ambient.Every(categoryToolPoll, e.opts.ToolPollInterval, func() {
		if e.toolProbe == nil {
			return
		}
		e.toolActivity(e.toolProbe())
	})
}

// ToolActivity reports tool activity directly, bypassing the probe
func (e *Engine) ToolActivity(active bool) error {
	return e.do(func() error {
		e.toolActivity(active)
		return nil
	})
}

// Searching reports whether the searching overlay is shown
func (e *Engine) Searching() bool {
	var s bool
	e.loop.Do(func() { s = e.searching })
	return s
}

// toolActivity acts on edges only. A session that outlives ToolMaxDuration is
// force-cleared and stays cleared until the activity drops and rises again.
func (e *Engine) toolActivity(active bool) {
	if active == e.toolActive {
		return
	}
	e.toolActive = active
	if active {
		e.startSearching()
		return
	}
	e.stopSearching()
}

func (e *Engine) startSearching() {
	if e.searching {
		return
	}
	e.searching = true
	e.anim.CancelCategory(categoryCycle)
	e.anim.CancelCategory(categoryEmotion)

	e.renderCurrent(e.base, e.talking)
	e.ambient.After(categorySearchCap, e.opts.ToolMaxDuration, func() {
		e.log.Debug().Dur("after", e.opts.ToolMaxDuration).Msg("Searching overlay force-cleared")
		e.stopSearching()
	})

	e.sync.Send(statesync.Update{Expression: string(expression.Searching)})
	e.log.Debug().Msg("Searching started")
}

func (e *Engine) stopSearching() {
	e.ambient.CancelCategory(categorySearchCap)
	if !e.searching {
		return
	}
	e.searching = false
	e.renderCurrent(e.base, e.talking)
	e.sync.Send(statesync.Update{Expression: string(e.base)})
	e.log.Debug().Msg("Searching ended")
}


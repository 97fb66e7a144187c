package avatar

import (
	"github.com/normanking/cortexmascot/internal/bus"
	"github.com/normanking/cortexmascot/internal/expression"
)

// Attach subscribes the engine to inbound events on b and announces state
// changes and shown expressions on it. The returned func detaches.
func (e *Engine) Attach(b *bus.EventBus) func() {
	e.loop.Do(func() { e.events = b })

	unsubs := []func(){
		b.Subscribe(bus.EventTypeVoiceStatus, func(ev bus.Event) {
			e.logInbound(ev, e.Voice(ev.String("status")))
		}),
		b.Subscribe(bus.EventTypeMessageUpdated, func(ev bus.Event) {
			e.logInbound(ev, e.MessageUpdated(ev.String("text")))
		}),
		b.Subscribe(bus.EventTypeToolActivity, func(ev bus.Event) {
			e.logInbound(ev, e.ToolActivity(ev.Bool("active")))
		}),
		b.Subscribe(bus.EventTypeHover, func(ev bus.Event) {
			e.logInbound(ev, e.PointerHover(eventPoint(ev)))
		}),
		b.Subscribe(bus.EventTypePointer, func(ev bus.Event) {
			e.logInbound(ev, e.pointerEvent(ev))
		}),
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
		e.loop.Do(func() {
			if e.events == b {
				e.events = nil
			}
		})
	}
}

func (e *Engine) pointerEvent(ev bus.Event) error {
	p := eventPoint(ev)
	switch ev.String("action") {
	case "press":
		return e.PointerPress(p)
	case "move":
		return e.PointerMove(p)
	case "release":
		return e.PointerRelease(p)
	case "double":
		return e.PointerDouble()
	}
	return nil
}

func (e *Engine) logInbound(ev bus.Event, err error) {
	if err != nil {
		e.log.Debug().Err(err).Str("event", string(ev.Type)).Msg("Inbound event not applied")
	}
}

func eventPoint(ev bus.Event) expression.Point {
	return expression.Point{X: ev.Float("x"), Y: ev.Float("y")}
}

// announce publishes an outbound event when a bus is attached. Runs on the loop.
func (e *Engine) announce(t bus.EventType, data map[string]any) {
	if e.events == nil {
		return
	}
	e.events.Publish(bus.Event{Type: t, Data: data})
}

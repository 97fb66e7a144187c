package color

import (
	"time"
)

// Cycle is the wall-clock synchronized palette cycle. Every renderer that
// shares the palette and timings computes the same color for the same instant.
type Cycle struct {
	Palette    Palette
	Hold       time.Duration
	Transition time.Duration
}

// Phase is where a Cycle stands at one instant
type Phase struct {
	From     int     `json:"from"`
	To       int     `json:"to"`
	Progress float64 `json:"progress"`
	Colors   Set     `json:"colors"`
}

// Transitioning reports whether the phase is between two entries
func (p Phase) Transitioning() bool {
	return p.From != p.To
}

// At computes the phase for now as a pure function of
// now mod (hold+transition)*len(palette).
func (c Cycle) At(now time.Time) Phase {
	n := int64(len(c.Palette))
	if n == 0 {
		return Phase{}
	}
	hold := c.Hold.Milliseconds()
	trans := c.Transition.Milliseconds()
	period := hold + trans
	if period <= 0 || n == 1 {
		return Phase{Colors: c.Palette[0]}
	}

	t := now.UnixMilli() % (period * n)
	if t < 0 {
		t += period * n
	}
	idx := int(t / period)
	within := t % period

	if within < hold {
		return Phase{From: idx, To: idx, Colors: c.Palette[idx]}
	}
	next := (idx + 1) % int(n)
	progress := float64(within-hold) / float64(trans)
	return Phase{
		From:     idx,
		To:       next,
		Progress: progress,
		Colors:   c.Palette[idx].Lerp(c.Palette[next], progress),
	}
}

// Package gesture classifies raw pointer input into drags, shakes and pokes
// and picks the avatar's reaction to each. It holds no timers; the engine
// drives it from its loop and schedules the visual follow-up.
package gesture

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/normanking/cortexmascot/internal/expression"
)

// Cause names what triggered a reaction
type Cause string

const (
	CauseGrab   Cause = "grab"
	CauseShake  Cause = "shake"
	CausePoke   Cause = "poke"
	CauseDouble Cause = "double"
)

// Reaction is an expression the avatar should show in response to a gesture
type Reaction struct {
	Expression expression.ID
	Spin       bool // rotation flourish
	Cause      Cause
	Level      int // poke escalation level or shake band
}

const (
	// DragThreshold is how far the pointer must travel before a press becomes a drag
	DragThreshold = 5.0
	// ReversalMinDelta is the smallest per-move delta that can register a reversal
	ReversalMinDelta = 3.0
	// StreakLength is how many reversals after a reaction re-arm the shake bands
	StreakLength = 6

	midBandReversals  = 4
	highBandReversals = 8
)

var (
	grabFaces    = []expression.ID{expression.Surprised, expression.Laughing, expression.Excited, expression.Confused}
	midShakeFace = []expression.ID{expression.Confused, expression.Surprised, expression.Laughing}
)

// Session is the state of one press, from pointer down to pointer up
type Session struct {
	ID        string
	Press     expression.Point
	Offset    expression.Point // pointer minus avatar position at press
	Last      expression.Point
	LastAt    time.Time
	Velocity  expression.Point // px per second
	Dragging  bool
	Reversals int

	signX, signY int
	reactedBand  int
	lastReactAt  int
}

// Move is the outcome of one pointer move
type Move struct {
	// Started is set on the move that turned the press into a drag
	Started  bool
	Dragging bool
	Position expression.Point
	Squish   expression.Transform
	Reaction *Reaction
}

// Release is the outcome of pointer up
type Release struct {
	WasDrag  bool
	Position expression.Point
	Reaction *Reaction
}

// Tracker turns pointer events into gestures. It is not safe for concurrent
// use.
type Tracker struct {
	rng     *rand.Rand
	session *Session
	pokes   PokeCounter
}

// NewTracker creates a tracker drawing its random choices from rng
func NewTracker(rng *rand.Rand) *Tracker {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Tracker{rng: rng}
}

// Session returns a copy of the active session, if any
func (t *Tracker) Session() (Session, bool) {
	if t.session == nil {
		return Session{}, false
	}
	return *t.session, true
}

// Dragging reports whether a drag is in progress
func (t *Tracker) Dragging() bool {
	return t.session != nil && t.session.Dragging
}

// Press opens a session for a pointer down at p over an avatar at avatar
func (t *Tracker) Press(p, avatar expression.Point, at time.Time) Session {
	t.session = &Session{
		ID:     uuid.NewString(),
		Press:  p,
		Offset: expression.Point{X: p.X - avatar.X, Y: p.Y - avatar.Y},
		Last:   p,
		LastAt: at,
	}
	return *t.session
}

// Move feeds a pointer move. Before the drag threshold is crossed nothing
// happens; afterwards every move yields a position and squish and may carry a
// grab or shake reaction.
func (t *Tracker) Move(p expression.Point, at time.Time) Move {
	s := t.session
	if s == nil {
		return Move{}
	}

	var out Move
	if !s.Dragging {
		if math.Hypot(p.X-s.Press.X, p.Y-s.Press.Y) <= DragThreshold {
			return Move{}
		}
		s.Dragging = true
		out.Started = true
		out.Reaction = &Reaction{
			Expression: grabFaces[t.rng.Intn(len(grabFaces))],
			Cause:      CauseGrab,
		}
	}

	dx := p.X - s.Last.X
	dy := p.Y - s.Last.Y
	if dt := at.Sub(s.LastAt).Seconds(); dt > 0 {
		s.Velocity = expression.Point{X: dx / dt, Y: dy / dt}
	}
	s.Last = p
	s.LastAt = at

	reversed := trackReversal(&s.signX, dx)
	if trackReversal(&s.signY, dy) {
		reversed = true
	}
	if reversed {
		s.Reversals++
		if r := t.shakeReaction(s); r != nil && out.Reaction == nil {
			out.Reaction = r
		}
	}

	out.Dragging = true
	out.Position = expression.Point{X: p.X - s.Offset.X, Y: p.Y - s.Offset.Y}
	out.Squish = Squish(dx, dy)
	return out
}

// Release closes the session. A press that never became a drag is a poke.
func (t *Tracker) Release(p expression.Point, at time.Time) Release {
	s := t.session
	t.session = nil
	if s == nil {
		return Release{}
	}
	if s.Dragging {
		return Release{
			WasDrag:  true,
			Position: expression.Point{X: s.Last.X - s.Offset.X, Y: s.Last.Y - s.Offset.Y},
		}
	}
	r := t.Poke(at)
	return Release{Reaction: &r}
}

// Poke registers a poke and picks its reaction
func (t *Tracker) Poke(at time.Time) Reaction {
	count, rapid := t.pokes.Register(at)
	return PokeReaction(Level(count, rapid), t.rng)
}

// Double handles a double press: an excited spin
func (t *Tracker) Double() Reaction {
	t.session = nil
	return Reaction{Expression: expression.Excited, Spin: true, Cause: CauseDouble}
}

// Cancel drops the active session without classifying it
func (t *Tracker) Cancel() {
	t.session = nil
}

// shakeReaction fires at most once per band per streak. A streak re-arms once
// StreakLength reversals have passed since its last reaction.
func (t *Tracker) shakeReaction(s *Session) *Reaction {
	if s.reactedBand > 0 && s.Reversals-s.lastReactAt >= StreakLength {
		s.reactedBand = 0
	}

	band := 0
	switch {
	case s.Reversals >= highBandReversals:
		band = 2
	case s.Reversals >= midBandReversals:
		band = 1
	}
	if band <= s.reactedBand {
		return nil
	}
	s.reactedBand = band
	s.lastReactAt = s.Reversals

	if band == 1 {
		return &Reaction{
			Expression: midShakeFace[t.rng.Intn(len(midShakeFace))],
			Cause:      CauseShake,
			Level:      band,
		}
	}
	face := expression.Angry
	if t.rng.Float64() < 0.6 {
		face = expression.Laughing
	}
	return &Reaction{Expression: face, Spin: true, Cause: CauseShake, Level: band}
}

// trackReversal updates the last movement sign on one axis and reports a
// direction flip. Deltas below ReversalMinDelta are jitter and ignored.
func trackReversal(sign *int, delta float64) bool {
	if math.Abs(delta) < ReversalMinDelta {
		return false
	}
	next := 1
	if delta < 0 {
		next = -1
	}
	flipped := *sign != 0 && next != *sign
	*sign = next
	return flipped
}

// Squish maps a per-move delta onto a bounded rotate/scale transform
func Squish(dx, dy float64) expression.Transform {
	stretchX := clamp(math.Abs(dx)*0.01, 0, 0.2)
	stretchY := clamp(math.Abs(dy)*0.01, 0, 0.2)
	return expression.Transform{
		Rotate: clamp(dx*0.5, -12, 12),
		ScaleX: 1 + stretchX - stretchY/2,
		ScaleY: 1 + stretchY - stretchX/2,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

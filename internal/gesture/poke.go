package gesture

import (
	"math/rand"
	"time"

	"github.com/normanking/cortexmascot/internal/expression"
)

const (
	// PokeWindow is the inactivity after which the poke count starts over
	PokeWindow = 8 * time.Second
	// RapidWindow is how close a poke must follow the previous to count as rapid
	RapidWindow = 1500 * time.Millisecond

	snapChance = 0.08
)

// PokeCounter tracks the two poke signals: total pokes since the last
// inactivity gap and the current run of rapid pokes.
type PokeCounter struct {
	count int
	rapid int
	last  time.Time
}

// Register records a poke at and returns the updated counters
func (c *PokeCounter) Register(at time.Time) (count, rapid int) {
	if c.last.IsZero() || at.Sub(c.last) > PokeWindow {
		c.count = 0
		c.rapid = 0
	} else if at.Sub(c.last) <= RapidWindow {
		c.rapid++
	} else {
		c.rapid = 0
	}
	c.count++
	c.last = at
	return c.count, c.rapid
}

// Reset clears both counters
func (c *PokeCounter) Reset() {
	*c = PokeCounter{}
}

// Level maps the two counters onto one escalation level in [1,4]. Each
// counter implies a tier on its own; the higher one wins.
func Level(count, rapid int) int {
	byCount := 1
	switch {
	case count >= 7:
		byCount = 4
	case count >= 5:
		byCount = 3
	case count >= 3:
		byCount = 2
	}

	byRapid := 1
	switch {
	case rapid >= 4:
		byRapid = 4
	case rapid >= 2:
		byRapid = 3
	case rapid >= 1:
		byRapid = 2
	}

	if byRapid > byCount {
		return byRapid
	}
	return byCount
}

type tier struct {
	faces    []expression.ID
	laughing float64
	spin     bool
}

var tiers = [...]tier{
	1: {faces: []expression.ID{expression.Happy, expression.Smiling, expression.Laughing}},
	2: {faces: []expression.ID{expression.Skeptical, expression.Confused}, laughing: 0.25},
	3: {faces: []expression.ID{expression.Angry}, laughing: 0.25},
	4: {faces: []expression.ID{expression.Angry}, laughing: 0.15, spin: true},
}

// PokeReaction picks the reaction for an escalation level. An occasional snap
// shows angry whatever the level.
func PokeReaction(level int, rng *rand.Rand) Reaction {
	if level < 1 {
		level = 1
	}
	if level > 4 {
		level = 4
	}
	if rng.Float64() < snapChance {
		return Reaction{Expression: expression.Angry, Cause: CausePoke, Level: level}
	}

	t := tiers[level]
	if t.laughing > 0 && rng.Float64() < t.laughing {
		return Reaction{Expression: expression.Laughing, Cause: CausePoke, Level: level}
	}
	return Reaction{
		Expression: t.faces[rng.Intn(len(t.faces))],
		Spin:       t.spin,
		Cause:      CausePoke,
		Level:      level,
	}
}

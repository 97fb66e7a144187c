// Package expression defines the avatar's closed set of states and
// expressions, the immutable definition table that describes how each one
// looks, and the Render function that applies a definition to the visual
// target.
package expression

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownExpression is returned for identifiers outside the closed set
var ErrUnknownExpression = errors.New("unknown expression")

// State is the avatar's active visual state: a base state or an expression
type State string

// Base states
const (
	StateIdle     State = "idle"
	StateTalking  State = "talking"
	StateThinking State = "thinking"
)

// ID identifies one expression in the closed set
type ID string

const (
	Happy     ID = "happy"
	Smiling   ID = "smiling"
	Surprised ID = "surprised"
	Confused  ID = "confused"
	Angry     ID = "angry"
	Sad       ID = "sad"
	Laughing  ID = "laughing"
	Skeptical ID = "skeptical"
	Sleepy    ID = "sleepy"
	Excited   ID = "excited"
	Searching ID = "searching"
)

var allIDs = []ID{
	Happy, Smiling, Surprised, Confused, Angry, Sad,
	Laughing, Skeptical, Sleepy, Excited, Searching,
}

// All returns every expression identifier in declaration order
func All() []ID {
	out := make([]ID, len(allIDs))
	copy(out, allIDs)
	return out
}

// State converts the expression into the State it renders as
func (id ID) State() State {
	return State(id)
}

// Valid reports whether id is in the closed set
func (id ID) Valid() bool {
	_, ok := table[State(id)]
	return ok && !State(id).IsBase()
}

// ParseID validates an expression name
func ParseID(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownExpression, s)
	}
	return id, nil
}

// IsBase reports whether s is idle, talking or thinking
func (s State) IsBase() bool {
	return s == StateIdle || s == StateTalking || s == StateThinking
}

// ParseState validates a state name
func ParseState(s string) (State, error) {
	st := State(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := table[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownExpression, s)
	}
	return st, nil
}

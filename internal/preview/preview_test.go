package preview

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexmascot/internal/color"
	"github.com/normanking/cortexmascot/internal/expression"
)

type fakeController struct {
	visual expression.Visual
	calls  []string
	err    error
}

func (f *fakeController) Snapshot() expression.Visual { return f.visual }

func (f *fakeController) SetState(s expression.State) error {
	f.calls = append(f.calls, "state:"+string(s))
	return f.err
}

func (f *fakeController) ShowEmotion(id expression.ID, _ time.Duration) error {
	f.calls = append(f.calls, "emotion:"+string(id))
	return f.err
}

func (f *fakeController) MessageUpdated(string) error {
	f.calls = append(f.calls, "message")
	return f.err
}

func (f *fakeController) ToolActivity(active bool) error {
	if active {
		f.calls = append(f.calls, "tool:on")
	} else {
		f.calls = append(f.calls, "tool:off")
	}
	return f.err
}

func (f *fakeController) PointerPress(expression.Point) error {
	f.calls = append(f.calls, "press")
	return f.err
}

func (f *fakeController) PointerRelease(expression.Point) error {
	f.calls = append(f.calls, "release")
	return f.err
}

func (f *fakeController) PointerDouble() error {
	f.calls = append(f.calls, "double")
	return f.err
}

func (f *fakeController) PlayBehavior(name string) error {
	f.calls = append(f.calls, "behavior:"+name)
	return f.err
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newModel() (Model, *fakeController) {
	ctl := &fakeController{visual: expression.NewVisual(expression.Point{X: 10, Y: 20}, color.DefaultPalette()[0])}
	return New(ctl, NewFrames(4)), ctl
}

func TestKeysDriveController(t *testing.T) {
	m, ctl := newModel()
	for _, k := range []string{"t", "t", "k", "s", "s", "m", "p", "d", "b", "0", "9"} {
		next, _ := m.Update(keyPress(k))
		m = next.(Model)
	}
	assert.Equal(t, []string{
		"state:talking", "state:idle", "state:thinking",
		"tool:on", "tool:off", "message",
		"press", "release", "double", "behavior:bounce",
		"emotion:happy", "emotion:excited",
	}, ctl.calls)
}

func TestQuit(t *testing.T) {
	m, _ := newModel()
	_, cmd := m.Update(keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestErrorsShowInStatus(t *testing.T) {
	m, ctl := newModel()
	ctl.err = errors.New("expression suppressed")
	next, _ := m.Update(keyPress("3"))
	assert.Contains(t, next.(Model).View(), "error: expression suppressed")
}

func TestFrameMsgUpdatesView(t *testing.T) {
	m, _ := newModel()
	v := m.visual
	v.State = expression.Sleepy.State()
	v.Behavior = "wiggle"

	next, cmd := m.Update(FrameMsg{Visual: v})
	require.NotNil(t, cmd, "keeps waiting for frames")
	out := next.(Model).View()
	assert.Contains(t, out, "sleepy")
	assert.Contains(t, out, "wiggle")
	assert.Contains(t, out, "10,20")
	assert.Contains(t, out, "expression", "short help lists the bindings")
}

func TestFrames_DropWhenFull(t *testing.T) {
	f := NewFrames(1)
	a := expression.Visual{State: expression.StateIdle}
	b := expression.Visual{State: expression.StateTalking}
	f.Observe(a)
	f.Observe(b)

	msg := f.wait()()
	assert.Equal(t, FrameMsg{Visual: a}, msg)
}

func TestFace(t *testing.T) {
	v := expression.NewVisual(expression.Point{}, color.DefaultPalette()[0])
	assert.Contains(t, Face(v), "o   o")

	v.Blinking = true
	assert.Contains(t, Face(v), "-   -")

	v.Blinking = false
	expression.Render(expression.MustLookup(expression.Surprised.State()), &v, false)
	assert.Contains(t, Face(v), "O   O")
}

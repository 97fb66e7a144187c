// Package preview is a terminal view of a live engine. Keys drive the same
// operations a host would; every rendered frame is redrawn with lipgloss.
package preview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/normanking/cortexmascot/internal/expression"
)

// Controller is the engine surface the preview drives
type Controller interface {
	Snapshot() expression.Visual
	SetState(s expression.State) error
	ShowEmotion(id expression.ID, d time.Duration) error
	MessageUpdated(text string) error
	ToolActivity(active bool) error
	PointerPress(p expression.Point) error
	PointerRelease(p expression.Point) error
	PointerDouble() error
	PlayBehavior(name string) error
}

// FrameMsg carries a visual rendered by the engine
type FrameMsg struct {
	Visual expression.Visual
}

// Frames adapts the engine's render observer to a channel the preview reads.
// Frames are dropped, never queued behind a slow terminal.
type Frames struct {
	ch chan expression.Visual
}

// NewFrames creates a frame channel with room for size pending frames
func NewFrames(size int) *Frames {
	if size < 1 {
		size = 1
	}
	return &Frames{ch: make(chan expression.Visual, size)}
}

// Observe is registered with the engine's OnRender
func (f *Frames) Observe(v expression.Visual) {
	select {
	case f.ch <- v:
	default:
	}
}

func (f *Frames) wait() tea.Cmd {
	return func() tea.Msg {
		return FrameMsg{Visual: <-f.ch}
	}
}

var sampleMessages = []string{
	"wow that's amazing, I can't believe it, this is incredible!",
	"haha that's hilarious, lol, you really made me laugh",
	"hmm I'm not sure, that seems a bit confusing to me",
	"thank you so much, I really appreciate your help today",
}

// Model is the bubbletea model
type Model struct {
	ctl     Controller
	frames  *Frames
	keys    KeyMap
	help    help.Model
	visual  expression.Visual
	talking bool
	tool    bool
	sample  int
	status  string
	width   int
}

// New creates a preview model
func New(ctl Controller, frames *Frames) Model {
	return Model{
		ctl:    ctl,
		frames: frames,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		visual: ctl.Snapshot(),
		width:  60,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.frames.wait()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FrameMsg:
		m.visual = msg.Visual
		return m, m.frames.wait()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Talk):
		m.talking = !m.talking
		state := expression.StateIdle
		if m.talking {
			state = expression.StateTalking
		}
		err = m.ctl.SetState(state)
	case key.Matches(msg, m.keys.Think):
		err = m.ctl.SetState(expression.StateThinking)
	case key.Matches(msg, m.keys.Search):
		m.tool = !m.tool
		err = m.ctl.ToolActivity(m.tool)
	case key.Matches(msg, m.keys.Message):
		text := sampleMessages[m.sample%len(sampleMessages)]
		m.sample++
		err = m.ctl.MessageUpdated(text)
		m.status = "message: " + text
	case key.Matches(msg, m.keys.Poke):
		pos := m.visual.Position
		if err = m.ctl.PointerPress(pos); err == nil {
			err = m.ctl.PointerRelease(pos)
		}
	case key.Matches(msg, m.keys.Double):
		err = m.ctl.PointerDouble()
	case key.Matches(msg, m.keys.Bounce):
		err = m.ctl.PlayBehavior("bounce")
	case key.Matches(msg, m.keys.Expression):
		ids := expression.All()
		if n := int(msg.String()[0] - '0'); n < len(ids) {
			err = m.ctl.ShowEmotion(ids[n], 0)
		}
	}
	if err != nil {
		m.status = "error: " + err.Error()
	}
	m.visual = m.ctl.Snapshot()
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7dd3fc"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
)

// View implements tea.Model.
func (m Model) View() string {
	v := m.visual
	face := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(v.Colors.Face.Hex())).
		Background(lipgloss.Color(v.Colors.Body.Hex())).
		Foreground(lipgloss.Color("#0f172a")).
		Padding(1, 4).
		Align(lipgloss.Center).
		Render(Face(v))

	var b strings.Builder
	b.WriteString(titleStyle.Render("cortexmascot preview"))
	b.WriteString("\n\n")
	b.WriteString(face)
	b.WriteString("\n\n")
	b.WriteString(m.field("state", string(v.State)))
	b.WriteString(m.field("position", fmt.Sprintf("%.0f,%.0f", v.Position.X, v.Position.Y)))
	b.WriteString(m.field("colors", v.Colors.Body.Hex()+" / "+v.Colors.Face.Hex()))
	if v.Behavior != "" {
		b.WriteString(m.field("behavior", v.Behavior))
	}
	if m.status != "" {
		b.WriteString(m.field("last", truncate(m.status, m.width-10)))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m Model) field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-9s", label)) + " " + value + "\n"
}

var eyeGlyphs = map[string]string{
	"eyes-open":         "o   o",
	"eyes-up":           "°   °",
	"eyes-happy":        "^   ^",
	"eyes-soft":         "◡   ◡",
	"eyes-wide":         "O   O",
	"eyes-uneven":       "o   O",
	"eyes-narrow":       ">   <",
	"eyes-droop":        "╥   ╥",
	"eyes-closed-happy": "^   ^",
	"eyes-squint":       "¬   ¬",
	"eyes-half":         "_   _",
	"eyes-sparkle":      "*   *",
	"eyes-scan":         "◉   ◉",
}

var mouthGlyphs = map[expression.State]string{
	"happy":     " \\_/ ",
	"smiling":   "  ‿  ",
	"laughing":  " \\D/ ",
	"excited":   "  D  ",
	"surprised": "  O  ",
	"sad":       "  ︵ ",
	"angry":     " /‾\\ ",
	"confused":  "  ~  ",
	"skeptical": "  ─. ",
	"sleepy":    "  ᵒ  ",
	"searching": "  .  ",
}

// Face draws the visual as three lines of text
func Face(v expression.Visual) string {
	eyes, ok := eyeGlyphs[v.EyeClass]
	if !ok {
		eyes = "o   o"
	}
	if v.Blinking {
		eyes = "-   -"
	}

	mouth, ok := mouthGlyphs[v.State]
	if !ok {
		mouth = "  —  "
	}
	if v.Talking && v.Mouth != expression.RestMouth() {
		mouth = "  o  "
	}

	brows := "     "
	if v.BrowClass != "" && v.BrowClass != "brows-rest" {
		brows = " ` ´ "
	}
	return strings.Join([]string{brows, eyes, mouth}, "\n")
}

func truncate(s string, n int) string {
	if n <= 3 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

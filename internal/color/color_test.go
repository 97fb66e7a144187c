package color

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexmascot/internal/scheduler"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	changes []Set
	syncs   []Set
}

func newTestCycler(t *testing.T, opts Options) (*scheduler.ManualClock, *Cycler, *recorder) {
	t.Helper()
	clock := scheduler.NewManualClock(epoch)
	loop := scheduler.NewLoop(clock, zerolog.Nop())
	rec := &recorder{}
	c, err := NewCycler(loop.NewManager("ambient"), DefaultPalette(), opts, rand.New(rand.NewSource(7)), zerolog.Nop(),
		func(s Set) { rec.changes = append(rec.changes, s) },
		func(s Set) { rec.syncs = append(rec.syncs, s) },
	)
	require.NoError(t, err)
	return clock, c, rec
}

func TestRGB_HexRoundTrip(t *testing.T) {
	c, err := ParseHex("#6c5ce7")
	require.NoError(t, err)
	assert.Equal(t, RGB{0x6c, 0x5c, 0xe7}, c)
	assert.Equal(t, "#6c5ce7", c.Hex())

	_, err = ParseHex("#12345")
	assert.Error(t, err)
}

func TestRGB_LerpEndpoints(t *testing.T) {
	a := RGB{0, 0, 0}
	b := RGB{200, 100, 50}
	assert.Equal(t, a, a.Lerp(b, 0))
	assert.Equal(t, b, a.Lerp(b, 1))
	assert.Equal(t, RGB{100, 50, 25}, a.Lerp(b, 0.5))
}

func TestParsePalette(t *testing.T) {
	p, err := ParsePalette([]string{"#000000,#ffffff", "ff0000,00ff00"})
	require.NoError(t, err)
	assert.Len(t, p, 2)

	_, err = ParsePalette([]string{"#000000,#ffffff"})
	assert.Error(t, err, "single entry palette cannot cycle")

	_, err = ParsePalette([]string{"#000000"})
	assert.Error(t, err)
}

func TestCycler_StepToCompletionCommitsTarget(t *testing.T) {
	_, c, rec := newTestCycler(t, DefaultOptions())

	require.NoError(t, c.Begin(3, 2*time.Second))
	assert.True(t, c.Active())
	assert.Equal(t, 3, c.TargetIndex())

	c.Step(0.5)
	assert.True(t, c.Active())
	assert.Equal(t, 0, c.CurrentIndex())

	c.Step(1.0)
	assert.False(t, c.Active())
	assert.Equal(t, 3, c.CurrentIndex())
	assert.Equal(t, DefaultPalette()[3], c.Colors())
	assert.Equal(t, DefaultPalette()[3], rec.changes[len(rec.changes)-1])
	assert.Equal(t, DefaultPalette()[3], rec.syncs[len(rec.syncs)-1], "final sync always sent")
}

func TestCycler_BeginRejectsOutOfRange(t *testing.T) {
	_, c, _ := newTestCycler(t, DefaultOptions())
	assert.Error(t, c.Begin(99, time.Second))
	assert.False(t, c.Active())
}

func TestCycler_AnimatedTransitionThrottlesSync(t *testing.T) {
	clock, c, rec := newTestCycler(t, DefaultOptions())

	require.NoError(t, c.Begin(1, 2*time.Second))
	clock.Advance(2100 * time.Millisecond)

	assert.False(t, c.Active())
	assert.Equal(t, 1, c.CurrentIndex())
	// ~125 frames at 16ms, but syncs are bounded to about one per 500ms
	assert.Greater(t, len(rec.changes), 100)
	assert.LessOrEqual(t, len(rec.syncs), 6)
	assert.GreaterOrEqual(t, len(rec.syncs), 2)
	assert.Equal(t, DefaultPalette()[1], rec.syncs[len(rec.syncs)-1])
}

func TestCycler_HeartbeatPicksDifferentEntry(t *testing.T) {
	opts := DefaultOptions()
	opts.Chance = 1
	clock, c, _ := newTestCycler(t, opts)

	c.Start()
	clock.Advance(5 * time.Second)
	require.True(t, c.Active())
	assert.NotEqual(t, c.CurrentIndex(), c.TargetIndex())

	// a roll while active never starts a second transition
	target := c.TargetIndex()
	c.Heartbeat()
	assert.Equal(t, target, c.TargetIndex())

	c.m.CancelCategory("color-heartbeat")
	clock.Advance(11 * time.Second)
	assert.False(t, c.Active())
	assert.Equal(t, target, c.CurrentIndex())
}

func TestCycler_HeartbeatZeroChanceNeverTransitions(t *testing.T) {
	opts := DefaultOptions()
	opts.Chance = 0
	clock, c, rec := newTestCycler(t, opts)

	c.Start()
	clock.Advance(time.Minute)
	assert.False(t, c.Active())
	assert.Empty(t, rec.changes)
}

func TestCycler_StopCancelsTransition(t *testing.T) {
	clock, c, _ := newTestCycler(t, DefaultOptions())
	c.Start()
	require.NoError(t, c.Begin(2, time.Second))

	c.Stop()
	assert.False(t, c.Active())
	assert.Equal(t, 0, c.m.Len())
	clock.Advance(2 * time.Second)
	assert.Equal(t, 0, c.CurrentIndex())
}

func TestCycle_AtIsPureFunctionOfTime(t *testing.T) {
	cycle := Cycle{Palette: DefaultPalette(), Hold: 2 * time.Second, Transition: time.Second}
	base := time.UnixMilli(0).UTC()

	hold := cycle.At(base.Add(500 * time.Millisecond))
	assert.False(t, hold.Transitioning())
	assert.Equal(t, 0, hold.From)
	assert.Equal(t, DefaultPalette()[0], hold.Colors)

	mid := cycle.At(base.Add(2500 * time.Millisecond))
	assert.True(t, mid.Transitioning())
	assert.Equal(t, 0, mid.From)
	assert.Equal(t, 1, mid.To)
	assert.InDelta(t, 0.5, mid.Progress, 1e-9)

	// the last entry wraps to the first
	last := cycle.At(base.Add(4*3*time.Second + 2500*time.Millisecond))
	assert.Equal(t, 4, last.From)
	assert.Equal(t, 0, last.To)

	// one full period later the phase is identical
	full := time.Duration(len(cycle.Palette)) * 3 * time.Second
	assert.Equal(t, mid, cycle.At(base.Add(2500*time.Millisecond+full)))
}

func TestCycler_DeterministicSendsFinalSync(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = ModeDeterministic
	opts.Hold = 2 * time.Second
	opts.Transition = time.Second
	clock, c, rec := newTestCycler(t, opts)

	c.Start()
	// epoch is aligned to the cycle start; run through the first transition
	clock.Advance(3100 * time.Millisecond)

	require.NotEmpty(t, rec.syncs)
	phase := Cycle{Palette: DefaultPalette(), Hold: opts.Hold, Transition: opts.Transition}.At(clock.Now())
	assert.Equal(t, phase.Colors, c.Colors())
	assert.Equal(t, phase.Colors, rec.syncs[len(rec.syncs)-1])
}

func TestThrottle_FinalAlwaysAllowed(t *testing.T) {
	clock := scheduler.NewManualClock(epoch)
	th := NewThrottle(clock, 500*time.Millisecond)

	assert.True(t, th.Allow(false))
	assert.False(t, th.Allow(false))
	assert.True(t, th.Allow(true))

	clock.Advance(500 * time.Millisecond)
	assert.True(t, th.Allow(false))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeReactive, m)

	_, err = ParseMode("rainbow")
	assert.Error(t, err)
}

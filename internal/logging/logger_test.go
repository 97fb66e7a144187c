package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, level LogLevel) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(&Config{
		LogDir:     t.TempDir(),
		Level:      level,
		MaxHistory: 3,
		Output:     &buf,
	})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, &buf
}

func TestComponentLoggersFeedHistory(t *testing.T) {
	l, buf := newTestLogger(t, LevelDebug)

	lg := l.Component("engine")
	lg.Info().Str("state", "happy").Int("ms", 2000).Msg("Expression shown")

	hist := l.GetHistory(1)
	require.Len(t, hist, 1)
	assert.Equal(t, "info", hist[0].Level)
	assert.Equal(t, "engine", hist[0].Component)
	assert.Equal(t, "Expression shown", hist[0].Message)
	assert.Equal(t, "ms=2000, state=happy", hist[0].Data)

	assert.Contains(t, buf.String(), `"component":"engine"`)
}

func TestHistoryIsBounded(t *testing.T) {
	l, _ := newTestLogger(t, LevelDebug)
	for i := 0; i < 10; i++ {
		lg := l.Component("x")
		lg.Info().Int("i", i).Msg("tick")
	}
	hist := l.GetHistory(0)
	require.Len(t, hist, 3)
	assert.Equal(t, "i=9", hist[2].Data)
}

func TestLevelFiltersHistory(t *testing.T) {
	l, _ := newTestLogger(t, LevelWarn)
	before := len(l.GetHistory(0))

	lg := l.Component("x")
	lg.Debug().Msg("hidden")
	lg = l.Component("x")
	lg.Warn().Msg("shown")

	hist := l.GetHistory(0)
	assert.Len(t, hist, before+1)
	assert.Equal(t, "shown", hist[len(hist)-1].Message)
}

func TestSetOnLog(t *testing.T) {
	l, _ := newTestLogger(t, LevelDebug)
	var got []LogEntry
	l.SetOnLog(func(e LogEntry) { got = append(got, e) })

	lg := l.Component("server")
	lg.Error().Msg("boom")
	require.Len(t, got, 1)
	assert.Equal(t, "error", got[0].Level)
}

func TestLogFileWritten(t *testing.T) {
	l, _ := newTestLogger(t, LevelInfo)
	lg := l.Component("store")
	lg.Info().Msg("Position store opened")

	data, err := os.ReadFile(l.GetLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Position store opened")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", ParseLevel("DEBUG").String())
	assert.Equal(t, "info", ParseLevel("verbose").String())
}

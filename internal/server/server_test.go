package server

import (
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexmascot/internal/avatar"
	"github.com/normanking/cortexmascot/internal/bus"
	"github.com/normanking/cortexmascot/internal/expression"
	"github.com/normanking/cortexmascot/internal/logging"
	"github.com/normanking/cortexmascot/internal/scheduler"
	"github.com/normanking/cortexmascot/internal/statesync"
)

type fakeLogs []logging.LogEntry

func (f fakeLogs) GetHistory(limit int) []logging.LogEntry {
	if limit <= 0 || limit > len(f) {
		limit = len(f)
	}
	return f[len(f)-limit:]
}

type fixture struct {
	engine *avatar.Engine
	clock  *scheduler.ManualClock
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := scheduler.NewManualClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	opts := avatar.DefaultOptions()
	opts.Clock = clock
	opts.Rand = rand.New(rand.NewSource(1))
	opts.Blink = false
	opts.IdleBehaviors = false
	opts.Autonomous = false

	e, err := avatar.New(opts)
	require.NoError(t, err)

	b := bus.NewEventBus()
	hub := statesync.NewHub(b, zerolog.Nop())
	e.OnRender(func(v expression.Visual) { hub.Broadcast(v) })
	detach := e.Attach(b)

	logs := fakeLogs{
		{Level: "info", Component: "engine", Message: "Avatar engine started"},
		{Level: "debug", Component: "engine", Message: "State changed"},
	}
	s := New("127.0.0.1:0", "test", e, hub, logs, zerolog.Nop())
	srv := httptest.NewServer(s.Handler())

	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		detach()
		_ = e.Close()
	})
	return &fixture{engine: e, clock: clock, srv: srv}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/api/v1/avatar/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)

	resp, err = http.Post(f.srv.URL+"/api/v1/avatar/health", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCurrent(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/api/v1/avatar/current")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var v expression.Visual
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, expression.StateIdle, v.State)
	assert.True(t, v.Floating)
}

func TestExpression(t *testing.T) {
	f := newFixture(t)
	post := func(body string) int {
		resp, err := http.Post(f.srv.URL+"/api/v1/avatar/expression", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusAccepted, post(`{"expression":"Happy","durationMs":1000}`))
	assert.Equal(t, expression.Happy.State(), f.engine.Snapshot().State)

	f.clock.Advance(time.Second)
	assert.Equal(t, expression.StateIdle, f.engine.Snapshot().State)

	assert.Equal(t, http.StatusBadRequest, post(`{"expression":"ecstatic"}`))
	assert.Equal(t, http.StatusBadRequest, post(`not json`))

	require.NoError(t, f.engine.ToolActivity(true))
	assert.Equal(t, http.StatusConflict, post(`{"expression":"sad"}`))
}

func TestLogs(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/api/v1/logs?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Entries []logging.LogEntry `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "State changed", body.Entries[0].Message)

	resp2, err := http.Get(f.srv.URL + "/api/v1/logs?limit=abc")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.ShowEmotion(expression.Sleepy, time.Second))

	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `cortexmascot_reactions_total{expression="sleepy",source="api"}`)
}

func TestWebSocket_DrivesEngineAndMirrorsFrames(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "voice", "status": "speaking"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame struct {
			Type   string            `json:"type"`
			Visual expression.Visual `json:"visual"`
		}
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, "frame", frame.Type)
		if frame.Visual.State == expression.StateTalking {
			assert.True(t, frame.Visual.Talking)
			break
		}
	}
	assert.Equal(t, expression.StateTalking, f.engine.Snapshot().State)
}

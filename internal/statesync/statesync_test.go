package statesync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/normanking/cortexmascot/internal/bus"
)

func TestClient_PostsUpdates(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	var got []Update
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var u Update
		require.NoError(t, json.NewDecoder(r.Body).Decode(&u))
		mu.Lock()
		got = append(got, u)
		mu.Unlock()
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Endpoint: srv.URL}, zerolog.Nop())
	talking := true
	assert.True(t, c.Send(Update{Expression: "happy", Talking: &talking}))
	assert.True(t, c.Send(Update{Body: "#000000", Face: "#ffffff"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	c.Close()
	assert.Equal(t, "happy", got[0].Expression)
	require.NotNil(t, got[0].Talking)
	assert.True(t, *got[0].Talking)
	assert.Equal(t, "#000000", got[1].Body)
	assert.False(t, c.Send(Update{}), "closed client drops updates")
}

func TestUpdate_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Update{Expression: "sad"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"expression":"sad"}`, string(data))

	off := false
	data, err = json.Marshal(Update{Talking: &off})
	require.NoError(t, err)
	assert.JSONEq(t, `{"talking":false}`, string(data))
}

func TestClient_FailuresAreSwallowed(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{Endpoint: srv.URL}, zerolog.Nop())
	for i := 0; i < 3; i++ {
		c.Send(Update{Expression: "angry"})
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 3
	}, 2*time.Second, 10*time.Millisecond, "each update is attempted once, no retries")
	c.Close()
}

func TestClient_UnreachableEndpoint(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewClient(ClientConfig{Endpoint: "http://127.0.0.1:1/api/ui/color", Timeout: 200 * time.Millisecond}, zerolog.Nop())
	assert.True(t, c.Send(Update{Expression: "sad"}))
	c.Close()
}

func TestClient_FullQueueDrops(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(ClientConfig{Endpoint: srv.URL, QueueSize: 1, Timeout: time.Second}, zerolog.Nop())
	defer c.Close()

	dropped := 0
	for i := 0; i < 10; i++ {
		if !c.Send(Update{Expression: "happy"}) {
			dropped++
		}
	}
	assert.GreaterOrEqual(t, dropped, 8)
}

func TestInbound_Event(t *testing.T) {
	e, err := Inbound{Type: "pointer", Action: "press", X: 1, Y: 2}.Event()
	require.NoError(t, err)
	assert.Equal(t, bus.EventTypePointer, e.Type)
	assert.Equal(t, "press", e.String("action"))
	assert.Equal(t, 2.0, e.Float("y"))

	e, err = Inbound{Type: "tool", Active: true}.Event()
	require.NoError(t, err)
	assert.True(t, e.Bool("active"))

	_, err = Inbound{Type: "pointer", Action: "fling"}.Event()
	assert.Error(t, err)
	_, err = Inbound{Type: "telepathy"}.Event()
	assert.Error(t, err)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_FramesAndInbound(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := bus.NewEventBus()
	events := make(chan bus.Event, 4)
	b.Subscribe(bus.EventTypeMessageUpdated, func(e bus.Event) { events <- e })

	hub := NewHub(b, zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	hub.Broadcast(map[string]string{"state": "idle"})

	conn := dial(t, srv)
	defer conn.Close()

	// the latest frame is replayed on connect
	var frame struct {
		Type   string            `json:"type"`
		Visual map[string]string `json:"visual"`
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "frame", frame.Type)
	assert.Equal(t, "idle", frame.Visual["state"])

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	hub.Broadcast(map[string]string{"state": "happy"})
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "happy", frame.Visual["state"])

	require.NoError(t, conn.WriteJSON(Inbound{Type: "message", Text: "hello there"}))
	select {
	case e := <-events:
		assert.Equal(t, "hello there", e.String("text"))
	case <-time.After(2 * time.Second):
		t.Fatal("inbound message not published")
	}

	// garbage is ignored and the connection stays up
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{nope")))
	hub.Broadcast(map[string]string{"state": "sad"})
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "sad", frame.Visual["state"])

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())
}

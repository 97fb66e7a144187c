package statesync

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexmascot/internal/bus"
	"github.com/normanking/cortexmascot/internal/metrics"
)

const (
	// WriteWait is the timeout for writing to a WebSocket
	WriteWait = 10 * time.Second

	// PongWait is the timeout for pong responses
	PongWait = 60 * time.Second

	// PingPeriod is how often to send ping frames
	PingPeriod = (PongWait * 9) / 10

	// MaxMessageSize is the largest inbound message accepted
	MaxMessageSize = 4096

	sendBuffer = 64
)

// Inbound is a message a websocket client sends to drive the avatar
type Inbound struct {
	Type   string  `json:"type"`             // pointer, hover, voice, message, tool
	Action string  `json:"action,omitempty"` // pointer: press, move, release, double
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Status string  `json:"status,omitempty"` // voice status
	Text   string  `json:"text,omitempty"`
	Active bool    `json:"active,omitempty"`
}

// Event converts the message into a bus event
func (m Inbound) Event() (bus.Event, error) {
	switch m.Type {
	case "pointer":
		switch m.Action {
		case "press", "move", "release", "double":
		default:
			return bus.Event{}, fmt.Errorf("unknown pointer action %q", m.Action)
		}
		return bus.Event{Type: bus.EventTypePointer, Data: map[string]any{"action": m.Action, "x": m.X, "y": m.Y}}, nil
	case "hover":
		return bus.Event{Type: bus.EventTypeHover, Data: map[string]any{"x": m.X, "y": m.Y}}, nil
	case "voice":
		return bus.Event{Type: bus.EventTypeVoiceStatus, Data: map[string]any{"status": m.Status}}, nil
	case "message":
		return bus.Event{Type: bus.EventTypeMessageUpdated, Data: map[string]any{"text": m.Text}}, nil
	case "tool":
		return bus.Event{Type: bus.EventTypeToolActivity, Data: map[string]any{"active": m.Active}}, nil
	}
	return bus.Event{}, fmt.Errorf("unknown message type %q", m.Type)
}

// Frame is the message pushed to every viewer when the visual changes
type Frame struct {
	Type   string `json:"type"`
	Visual any    `json:"visual"`
}

// Hub serves websocket viewers. Outbound frames fan out to every client;
// inbound messages are published on the bus in arrival order.
type Hub struct {
	bus      *bus.EventBus
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*hubClient]bool
	last    []byte
	closed  bool

	wg sync.WaitGroup
}

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub creates a hub publishing inbound messages on b
func NewHub(b *bus.EventBus, logger zerolog.Logger) *Hub {
	return &Hub{
		bus: b,
		log: logger.With().Str("component", "hub").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*hubClient]bool),
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends the visual to every client. New clients receive the most
// recent frame on connect. Slow clients whose buffer is full are dropped.
func (h *Hub) Broadcast(visual any) {
	data, err := json.Marshal(Frame{Type: "frame", Visual: visual})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to marshal frame")
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.last = data
	var slow []*hubClient
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.log.Warn().Str("client", c.id).Msg("Viewer too slow, disconnecting")
		h.remove(c)
	}
}

// ServeHTTP upgrades the request and runs the client until it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &hubClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
	count := len(h.clients)
	h.wg.Add(2)
	h.mu.Unlock()

	metrics.MirrorClients.Set(float64(count))
	h.log.Info().Str("client", c.id).Int("clients", count).Msg("Viewer connected")

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	c.once.Do(func() { close(c.send) })
	if ok {
		metrics.MirrorClients.Set(float64(count))
		h.log.Info().Str("client", c.id).Int("clients", count).Msg("Viewer disconnected")
	}
}

func (h *Hub) writePump(c *hubClient) {
	defer h.wg.Done()
	defer c.conn.Close()

	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.remove(c)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) readPump(c *hubClient) {
	defer h.wg.Done()
	defer h.remove(c)

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Debug().Err(err).Str("client", c.id).Msg("WebSocket read error")
			}
			return
		}

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debug().Err(err).Str("client", c.id).Msg("Ignoring malformed message")
			continue
		}
		event, err := msg.Event()
		if err != nil {
			h.log.Debug().Err(err).Str("client", c.id).Msg("Ignoring message")
			continue
		}
		h.bus.PublishSync(event)
	}
}

// Close disconnects every client and waits for their goroutines
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
		c.conn.Close()
	}
	h.wg.Wait()
	metrics.MirrorClients.Set(0)
}

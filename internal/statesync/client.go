// Package statesync mirrors the avatar's state to the outside world: a
// fire-and-forget HTTP client for the host UI and a websocket hub for live
// viewers.
package statesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexmascot/internal/metrics"
)

// Update is one outbound state notification. Empty fields are omitted.
type Update struct {
	Expression string `json:"expression,omitempty"`
	Talking    *bool  `json:"talking,omitempty"`
	Body       string `json:"body,omitempty"`
	Face       string `json:"face,omitempty"`
}

// Sender accepts updates without blocking the caller
type Sender interface {
	Send(Update) bool
}

// Discard is a Sender that drops every update
type Discard struct{}

// Send drops u
func (Discard) Send(Update) bool { return false }

// ClientConfig configures the outbound client
type ClientConfig struct {
	Endpoint  string
	Timeout   time.Duration
	QueueSize int
}

// Client POSTs updates to a single endpoint from a background worker.
// Failures are logged at debug level and counted, never retried.
type Client struct {
	endpoint string
	http     *http.Client
	log      zerolog.Logger

	queue chan Update
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewClient creates a client and starts its worker
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	c := &Client{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      logger.With().Str("component", "statesync").Logger(),
		queue:    make(chan Update, cfg.QueueSize),
		done:     make(chan struct{}),
	}

	c.wg.Add(1)
	go c.run()
	return c
}

// Send queues u. It reports false when the queue is full or the client is
// closed; the update is dropped in that case.
func (c *Client) Send(u Update) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.queue <- u:
		return true
	default:
		metrics.SyncRequests.WithLabelValues("dropped").Inc()
		return false
	}
}

func (c *Client) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case u := <-c.queue:
			c.post(u)
		}
	}
}

func (c *Client) post(u Update) {
	body, err := json.Marshal(u)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.http.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		metrics.SyncRequests.WithLabelValues("error").Inc()
		c.log.Debug().Err(err).Msg("State sync request not built")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.SyncRequests.WithLabelValues("error").Inc()
		c.log.Debug().Err(err).Str("endpoint", c.endpoint).Msg("State sync failed")
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		metrics.SyncRequests.WithLabelValues("status").Inc()
		c.log.Debug().Int("status", resp.StatusCode).Msg("State sync rejected")
		return
	}
	metrics.SyncRequests.WithLabelValues("ok").Inc()
}

// Close stops the worker. Queued updates that have not been sent are dropped.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.wg.Wait()
		c.http.CloseIdleConnections()
	})
}

// CheckHealth checks a running mascot host's health endpoint
func CheckHealth(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/avatar/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

// GetCurrent fetches a running host's visual snapshot as raw JSON fields
func GetCurrent(ctx context.Context, baseURL string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/avatar/current", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get current state failed: %d", resp.StatusCode)
	}

	var state map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, err
	}
	return state, nil
}

package avatar

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexmascot/internal/expression"
	"github.com/normanking/cortexmascot/internal/store"
)

const persistTimeout = 2 * time.Second

// positionWriter saves drag positions off the loop. One worker writes at a
// time and only the newest pending position is kept, so a slow write can
// never land after a later one.
type positionWriter struct {
	store store.Store
	log   zerolog.Logger

	mu      sync.Mutex
	pending *expression.Point
	running bool
	wg      sync.WaitGroup
}

func newPositionWriter(s store.Store, logger zerolog.Logger) *positionWriter {
	return &positionWriter{store: s, log: logger}
}

// Save queues pos, replacing any position not yet written
func (w *positionWriter) Save(pos expression.Point) {
	if w.store == nil {
		return
	}
	w.mu.Lock()
	w.pending = &pos
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.drain()
}

func (w *positionWriter) drain() {
	defer w.wg.Done()
	for {
		w.mu.Lock()
		pos := w.pending
		w.pending = nil
		if pos == nil {
			w.running = false
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := store.SavePosition(ctx, w.store, *pos); err != nil {
			w.log.Warn().Err(err).Msg("Failed to persist avatar position")
		}
		cancel()
	}
}

// Wait blocks until every queued position has been written
func (w *positionWriter) Wait() {
	w.wg.Wait()
}

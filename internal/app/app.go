// Package app assembles a running mascot host from configuration: store,
// state-sync client, detector, engine, event bus, websocket hub and HTTP
// server.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexmascot/internal/avatar"
	"github.com/normanking/cortexmascot/internal/bus"
	"github.com/normanking/cortexmascot/internal/color"
	"github.com/normanking/cortexmascot/internal/config"
	"github.com/normanking/cortexmascot/internal/emotion"
	"github.com/normanking/cortexmascot/internal/expression"
	"github.com/normanking/cortexmascot/internal/logging"
	"github.com/normanking/cortexmascot/internal/server"
	"github.com/normanking/cortexmascot/internal/statesync"
	"github.com/normanking/cortexmascot/internal/store"
)

// App is one mascot host
type App struct {
	Config *config.Config
	Engine *avatar.Engine
	Bus    *bus.EventBus
	Hub    *statesync.Hub
	Server *server.Server

	store   store.Store
	client  *statesync.Client
	watcher *emotion.DictionaryWatcher
	detach  func()
	log     zerolog.Logger
}

// NewDetector builds the keyword detector from the emotion and avatar sections
func NewDetector(cfg *config.Config, logger zerolog.Logger) (*emotion.Detector, error) {
	dict := emotion.DefaultDictionary()
	if cfg.Emotion.Dictionary != "" {
		loaded, err := emotion.LoadDictionary(cfg.Emotion.Dictionary)
		if err != nil {
			return nil, err
		}
		dict = loaded
	}
	return emotion.NewDetector(dict, emotion.Options{Throttle: cfg.Avatar.EmotionThrottle}, logger)
}

// EngineOptions maps configuration onto engine options. Collaborators
// (detector, store, sync) are left for the caller.
func EngineOptions(cfg *config.Config, logger zerolog.Logger) (avatar.Options, error) {
	opts := avatar.DefaultOptions()
	opts.Logger = logger

	palette, err := cfg.Palette()
	if err != nil {
		return opts, err
	}
	mode, err := color.ParseMode(cfg.Color.Mode)
	if err != nil {
		return opts, err
	}
	opts.Palette = palette
	opts.Color.Mode = mode
	if cfg.Color.Hold > 0 {
		opts.Color.Hold = cfg.Color.Hold
	}
	if cfg.Color.Transition > 0 {
		opts.Color.Transition = cfg.Color.Transition
	}

	opts.DefaultPosition = expression.Point{X: cfg.Avatar.DefaultX, Y: cfg.Avatar.DefaultY}
	opts.MessageDebounce = cfg.Avatar.MessageDebounce
	opts.ToolPollInterval = cfg.Avatar.ToolPollInterval
	opts.ToolMaxDuration = cfg.Avatar.ToolMaxDuration
	opts.IdleBehaviors = cfg.Avatar.IdleBehaviors
	opts.Autonomous = cfg.Avatar.Autonomous
	return opts, nil
}

// New wires every component. logs may be nil, in which case nothing is logged
// and the logs endpoint is disabled.
func New(cfg *config.Config, logs *logging.Logger, version string) (*App, error) {
	logger := zerolog.Nop()
	var history server.LogSource
	if logs != nil {
		logger = logs.Zerolog()
		history = logs
	}

	a := &App{
		Config: cfg,
		Bus:    bus.NewEventBus(),
		log:    logger.With().Str("component", "app").Logger(),
	}

	st, err := store.Open(cfg.StoreOptions(), logger)
	if err != nil {
		// the avatar still works without persistence
		a.log.Warn().Err(err).Str("backend", cfg.Store.Backend).Msg("Position store unavailable, falling back to memory")
		st = store.NewMemoryStore()
	}
	a.store = st

	detector, err := NewDetector(cfg, logger)
	if err != nil {
		a.closeCollaborators()
		return nil, fmt.Errorf("emotion dictionary: %w", err)
	}
	if cfg.Emotion.Watch && cfg.Emotion.Dictionary != "" {
		w, err := emotion.WatchDictionary(cfg.Emotion.Dictionary, detector, logger)
		if err != nil {
			a.log.Warn().Err(err).Msg("Dictionary hot reload disabled")
		} else {
			a.watcher = w
		}
	}

	opts, err := EngineOptions(cfg, logger)
	if err != nil {
		a.closeCollaborators()
		return nil, err
	}
	opts.Detector = detector
	opts.Store = st
	if cfg.Sync.Enabled && cfg.Sync.Endpoint != "" {
		a.client = statesync.NewClient(statesync.ClientConfig{
			Endpoint:  cfg.Sync.Endpoint,
			Timeout:   cfg.Sync.Timeout,
			QueueSize: cfg.Sync.QueueSize,
		}, logger)
		opts.Sync = a.client
	}

	engine, err := avatar.New(opts)
	if err != nil {
		a.closeCollaborators()
		return nil, err
	}
	a.Engine = engine

	a.Hub = statesync.NewHub(a.Bus, logger)
	engine.OnRender(func(v expression.Visual) { a.Hub.Broadcast(v) })
	a.detach = engine.Attach(a.Bus)
	a.Server = server.New(cfg.Server.Addr, version, engine, a.Hub, history, logger)
	return a, nil
}

// Run starts the engine and serves until ctx is cancelled, then shuts down
func (a *App) Run(ctx context.Context) error {
	if err := a.Engine.Start(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Server.Start() }()

	select {
	case err := <-errCh:
		return errors.Join(err, a.Close())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.Server.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != nil {
		err = errors.Join(err, serveErr)
	}
	return errors.Join(err, a.Close())
}

// Close stops the engine and releases every collaborator
func (a *App) Close() error {
	var errs []error
	if a.detach != nil {
		a.detach()
		a.detach = nil
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.Engine != nil {
		if err := a.Engine.Close(); err != nil && !errors.Is(err, avatar.ErrClosed) {
			errs = append(errs, err)
		}
	}
	errs = append(errs, a.closeCollaborators())
	a.log.Info().Msg("Mascot host stopped")
	return errors.Join(errs...)
}

func (a *App) closeCollaborators() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
		a.watcher = nil
	}
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	return errors.Join(errs...)
}

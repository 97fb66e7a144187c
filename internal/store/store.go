// Package store persists the avatar's position in a small key/value store
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/normanking/cortexmascot/internal/expression"
)

// ErrNotFound is returned when a key has no value
var ErrNotFound = errors.New("key not found")

// Position keys
const (
	KeyX = "avatarX"
	KeyY = "avatarY"
)

// Store is a string key/value store
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Backend names
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures a backend
type Config struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open creates the configured backend
func Open(cfg Config, logger zerolog.Logger) (Store, error) {
	log := logger.With().Str("component", "store").Str("backend", cfg.Backend).Logger()

	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendMemory, "":
		s = NewMemoryStore()
	case BackendSQLite:
		s, err = NewSQLiteStore(cfg.Path)
	case BackendRedis:
		s, err = NewRedisStore(RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Position store opened")
	return s, nil
}

// LoadPosition reads the saved position. ok is false when either coordinate
// is missing or unreadable, in which case the caller uses its default anchor.
func LoadPosition(ctx context.Context, s Store) (p expression.Point, ok bool, err error) {
	x, err := getFloat(ctx, s, KeyX)
	if err != nil {
		return expression.Point{}, false, ignoreMissing(err)
	}
	y, err := getFloat(ctx, s, KeyY)
	if err != nil {
		return expression.Point{}, false, ignoreMissing(err)
	}
	return expression.Point{X: x, Y: y}, true, nil
}

// SavePosition writes both coordinates
func SavePosition(ctx context.Context, s Store, p expression.Point) error {
	if err := s.Set(ctx, KeyX, strconv.FormatFloat(p.X, 'f', -1, 64)); err != nil {
		return fmt.Errorf("save %s: %w", KeyX, err)
	}
	if err := s.Set(ctx, KeyY, strconv.FormatFloat(p.Y, 'f', -1, 64)); err != nil {
		return fmt.Errorf("save %s: %w", KeyY, err)
	}
	return nil
}

func getFloat(ctx context.Context, s Store, key string) (float64, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return v, nil
}

func ignoreMissing(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

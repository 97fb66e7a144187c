package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexmascot/internal/expression"
)

// exerciseStore runs the behaviour every backend shares
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing-"+t.Name())
	assert.ErrorIs(t, err, ErrNotFound)

	_, ok, err := LoadPosition(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)

	// one coordinate alone is not a position
	require.NoError(t, s.Set(ctx, KeyX, "12"))
	_, ok, err = LoadPosition(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SavePosition(ctx, s, expression.Point{X: 120.5, Y: -40}))
	p, ok, err := LoadPosition(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, expression.Point{X: 120.5, Y: -40}, p)

	require.NoError(t, SavePosition(ctx, s, expression.Point{X: 1, Y: 2}))
	p, _, err = LoadPosition(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, expression.Point{X: 1, Y: 2}, p)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mascot.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// values survive reopening
	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	p, ok, err := LoadPosition(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, expression.Point{X: 1, Y: 2}, p)
}

// Requires a Redis server at REDIS_ADDR
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(RedisConfig{Addr: addr, DB: 15})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	defer s.rdb.Del(ctx, redisKeyPrefix+KeyX, redisKeyPrefix+KeyY)
	s.rdb.Del(ctx, redisKeyPrefix+KeyX, redisKeyPrefix+KeyY)
	exerciseStore(t, s)
}

func TestLoadPosition_GarbageIsMissing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, KeyX, "left"))
	require.NoError(t, s.Set(ctx, KeyY, "10"))

	_, ok, err := LoadPosition(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{Backend: BackendMemory}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(Config{Backend: BackendSQLite, Path: filepath.Join(t.TempDir(), "m.db")}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(Config{Backend: "etcd"}, zerolog.Nop())
	assert.Error(t, err)
}

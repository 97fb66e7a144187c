package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_ExclusiveUntilReleased(t *testing.T) {
	_, m := newTestManager(t)
	g := NewGuard(m)

	release, err := g.TryBegin("bounce", time.Second)
	require.NoError(t, err)
	assert.True(t, g.Busy())
	assert.Equal(t, "bounce", g.Owner())

	_, err = g.TryBegin("wiggle", time.Second)
	assert.True(t, errors.Is(err, ErrBusy))

	release()
	assert.False(t, g.Busy())
	assert.Equal(t, 0, m.Len(), "release must cancel the safety task")

	release()
	_, err = g.TryBegin("wiggle", time.Second)
	assert.NoError(t, err)
}

func TestGuard_SafetyReleasesLostClaim(t *testing.T) {
	clock, m := newTestManager(t)
	g := NewGuard(m)

	_, err := g.TryBegin("look-around", 2*time.Second)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	assert.True(t, g.Busy())

	clock.Advance(SafetyBound(2*time.Second) - 2*time.Second)
	assert.False(t, g.Busy())
}

func TestGuard_StaleReleaseIgnored(t *testing.T) {
	clock, m := newTestManager(t)
	g := NewGuard(m)

	stale, err := g.TryBegin("first", 100*time.Millisecond)
	require.NoError(t, err)
	clock.Advance(time.Second)
	require.False(t, g.Busy())

	_, err = g.TryBegin("second", time.Second)
	require.NoError(t, err)

	stale()
	assert.True(t, g.Busy())
	assert.Equal(t, "second", g.Owner())
}

func TestGuard_CancelAllReleases(t *testing.T) {
	_, m := newTestManager(t)
	g := NewGuard(m)

	_, err := g.TryBegin("arm-wave", time.Second)
	require.NoError(t, err)

	m.CancelAll()
	assert.False(t, g.Busy())
}

package pacing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessioncore/internal/clock"
)

func TestBurstLimitForcesWait(t *testing.T) {
	c := clock.NewSimulatedClock(0)
	cfg := Config{IdentityWindowMs: 1, BurstLimit: 6, BurstWindowMs: 2_000, GlobalLimit: 1000, GlobalWindowMs: 600_000}
	m := NewManager(cfg, c)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := m.AcquireSlot(ctx, "AAPL", uniqueKey(i))
		require.NoError(t, err)
	}
	before := c.Now()
	_, err := m.AcquireSlot(ctx, "AAPL", uniqueKey(6))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, c.Now()-before, int64(2_000))
}

func TestGlobalLimitForcesWait(t *testing.T) {
	c := clock.NewSimulatedClock(0)
	cfg := Config{IdentityWindowMs: 1, BurstLimit: 1000, BurstWindowMs: 2_000, GlobalLimit: 5, GlobalWindowMs: 600_000}
	m := NewManager(cfg, c)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := m.AcquireSlot(ctx, "AAPL", uniqueKey(i))
		require.NoError(t, err)
	}
	before := c.Now()
	_, err := m.AcquireSlot(ctx, "AAPL", uniqueKey(5))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, c.Now()-before, int64(600_000))
}

func TestIdentityDedupWaits(t *testing.T) {
	c := clock.NewSimulatedClock(0)
	cfg := DefaultConfig()
	m := NewManager(cfg, c)
	ctx := context.Background()

	_, err := m.AcquireSlot(ctx, "AAPL", "AAPL:09:30:10:00:5m")
	require.NoError(t, err)
	before := c.Now()
	_, err = m.AcquireSlot(ctx, "AAPL", "AAPL:09:30:10:00:5m")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, c.Now()-before, int64(cfg.IdentityWindowMs))
}

func TestGetStatusReflectsPostPrune(t *testing.T) {
	c := clock.NewSimulatedClock(0)
	m := NewManager(DefaultConfig(), c)
	ctx := context.Background()
	_, err := m.AcquireSlot(ctx, "AAPL", "k1")
	require.NoError(t, err)
	_, err = m.AcquireSlot(ctx, "AAPL", "k2")
	require.NoError(t, err)

	status := m.GetStatus()
	assert.Equal(t, 2, status.GlobalUsed)
	assert.Equal(t, 2, status.ContractCounts["AAPL"])
}

func uniqueKey(i int) string {
	return string(rune('a' + i))
}

package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulationProviderConnectAndSubscribe(t *testing.T) {
	p := NewSimulationProvider(SimulationConfig{
		Config:      Config{BufferSize: 10},
		BarInterval: 10 * time.Millisecond,
		Seed:        42,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, p.Connect(ctx))
	assert.True(t, p.IsConnected())
	assert.Equal(t, StateConnected, p.ConnectionState())

	ch, err := p.SubscribeBars("SPY")
	require.NoError(t, err)

	select {
	case bar := <-ch:
		assert.NoError(t, bar.Validate())
		assert.True(t, bar.Completed)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for synthetic bar")
	}

	require.NoError(t, p.Disconnect())
	assert.False(t, p.IsConnected())
}

func TestSimulationProviderHistoricalBarsDeterministic(t *testing.T) {
	p1 := NewSimulationProvider(SimulationConfig{Seed: 7})
	p2 := NewSimulationProvider(SimulationConfig{Seed: 7})

	bars1, err := p1.GetHistoricalBars(context.Background(), "SPY", 0, 1_800_000)
	require.NoError(t, err)
	bars2, err := p2.GetHistoricalBars(context.Background(), "SPY", 0, 1_800_000)
	require.NoError(t, err)

	require.Equal(t, len(bars1), len(bars2))
	for i := range bars1 {
		assert.Equal(t, bars1[i], bars2[i])
	}
}

func TestSimulationProviderResolveContract(t *testing.T) {
	p := NewSimulationProvider(SimulationConfig{})
	spec, err := p.ResolveContract("SPY")
	require.NoError(t, err)
	assert.Equal(t, "SPY", spec.Symbol)
}

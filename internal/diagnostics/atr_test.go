package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sessioncore/internal/types"
)

func bars(n int) []types.Candle {
	out := make([]types.Candle, n)
	price := int64(17000)
	for i := 0; i < n; i++ {
		out[i] = types.NewCandle(int64(i)*300000, price, price+50, price-50, price+10, 1000)
		price += 5
	}
	return out
}

func TestComputeATRRequiresEnoughBars(t *testing.T) {
	assert.Nil(t, ComputeATR(bars(5), 14))
	assert.NotNil(t, ComputeATR(bars(20), 14))
}

func TestSnapshotComputesRatio(t *testing.T) {
	zone := &types.DecisionZone{Support: 17000, Resistance: 17530, Spread: 530}
	snap, ok := Snapshot("SPY", bars(20), zone, 14)
	assert.True(t, ok)
	assert.Equal(t, "SPY", snap.Symbol)
	assert.Equal(t, 14, snap.ATRPeriod)
	assert.Greater(t, snap.LatestATR, 0.0)
	assert.Greater(t, snap.ZoneSpreadATRRatio, 0.0)
}

func TestSnapshotInsufficientHistory(t *testing.T) {
	_, ok := Snapshot("SPY", bars(3), nil, 14)
	assert.False(t, ok)
}

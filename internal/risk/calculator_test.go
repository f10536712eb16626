package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sessioncore/internal/types"
)

func TestComputeRValue(t *testing.T) {
	assert.EqualValues(t, 530, ComputeRValue(17530, 17000))
	assert.EqualValues(t, 530, ComputeRValue(17000, 17530))
}

func TestComputeTargetPriceLong(t *testing.T) {
	assert.EqualValues(t, 18060, ComputeTargetPrice(17530, 530, 1, types.DirectionLong))
	assert.EqualValues(t, 19120, ComputeTargetPrice(17530, 530, 3, types.DirectionLong))
}

func TestComputeTargetPriceShort(t *testing.T) {
	assert.EqualValues(t, 17000, ComputeTargetPrice(17530, 530, 1, types.DirectionShort))
}

func TestComputeRMultiple(t *testing.T) {
	assert.InDelta(t, -1.0, ComputeRMultiple(10050, 10000, 50, types.DirectionLong), 0.001)
	assert.InDelta(t, 1.0, ComputeRMultiple(10050, 10100, 50, types.DirectionLong), 0.001)
	assert.InDelta(t, 1.0, ComputeRMultiple(10050, 10000, 50, types.DirectionShort), 0.001)
}

func TestComputeMFEAndMAE(t *testing.T) {
	bars := []types.Candle{
		types.NewCandle(1, 17530, 18060, 17400, 17800, 1),
		types.NewCandle(2, 17800, 19200, 17500, 19000, 1),
	}
	mfe := ComputeMFE(bars, 17530, 530, types.DirectionLong)
	assert.InDelta(t, 3.15, mfe, 0.01)

	mae := ComputeMAE(bars, 17530, 530, types.DirectionLong)
	assert.GreaterOrEqual(t, mae, 0.0)
}

package bars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessioncore/internal/types"
)

func candle(ts, o, h, l, c int64) types.Candle {
	return types.NewCandle(ts, o, h, l, c, 100)
}

func TestCompletionBufferEmptyStoresNoEmit(t *testing.T) {
	b := NewCompletionBuffer()
	_, ok, err := b.Ingest(candle(1000, 100, 110, 90, 105))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompletionBufferSameTimestampReplaces(t *testing.T) {
	b := NewCompletionBuffer()
	_, _, _ = b.Ingest(candle(1000, 100, 110, 90, 105))
	_, ok, err := b.Ingest(candle(1000, 100, 120, 90, 115))
	require.NoError(t, err)
	assert.False(t, ok)

	out, ok := b.Flush()
	require.True(t, ok)
	assert.EqualValues(t, 120, out.High)
	assert.True(t, out.Completed)
}

func TestCompletionBufferLaterTimestampEmitsPrior(t *testing.T) {
	b := NewCompletionBuffer()
	_, _, _ = b.Ingest(candle(1000, 100, 110, 90, 105))
	out, ok, err := b.Ingest(candle(1300, 105, 108, 102, 107))
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1000, out.Timestamp)
	assert.True(t, out.Completed)
}

func TestCompletionBufferOutOfOrderRejected(t *testing.T) {
	b := NewCompletionBuffer()
	_, _, _ = b.Ingest(candle(1000, 100, 110, 90, 105))
	_, _, _ = b.Ingest(candle(1300, 105, 108, 102, 107))
	_, ok, err := b.Ingest(candle(1200, 100, 101, 99, 100))
	require.Error(t, err)
	assert.False(t, ok)
}

func TestCompletionBufferFlushAndReset(t *testing.T) {
	b := NewCompletionBuffer()
	_, ok := b.Flush()
	assert.False(t, ok)

	_, _, _ = b.Ingest(candle(1000, 100, 110, 90, 105))
	b.Reset()
	_, ok = b.Flush()
	assert.False(t, ok)
}

func TestValidatorRejectsInvalidBar(t *testing.T) {
	v := NewValidator()
	bad := candle(1000, 100, 90, 95, 105) // high < close
	bad.Completed = true
	err := v.Validate(bad)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestValidatorAcceptsValidBar(t *testing.T) {
	v := NewValidator()
	good := candle(1000, 100, 110, 90, 105)
	good.Completed = true
	assert.NoError(t, v.Validate(good))
}

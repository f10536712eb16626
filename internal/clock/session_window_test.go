package clock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeWindowDefaults(t *testing.T) {
	w, err := ComputeWindow("2026-06-15", DefaultPreset, nil)
	require.NoError(t, err)
	assert.Less(t, w.PremarketUTC, w.ZoneStartUTC)
	assert.Less(t, w.ZoneStartUTC, w.ZoneEndUTC)
	assert.Less(t, w.ZoneEndUTC, w.ExecutionEndUTC)
	assert.Equal(t, "2026-06-15", DateET(w.ZoneStartUTC))
}

func TestComputeWindowEarlyClose(t *testing.T) {
	cal := NewStaticHolidayCalendar(nil, map[string]string{"2026-11-27": "11:00"})
	w, err := ComputeWindow("2026-11-27", DefaultPreset, cal)
	require.NoError(t, err)

	full, err := ComputeWindow("2026-11-27", DefaultPreset, nil)
	require.NoError(t, err)

	assert.Less(t, w.ExecutionEndUTC, full.ExecutionEndUTC)
}

func TestSimulatedClockWaitUntilJumpsForward(t *testing.T) {
	c := NewSimulatedClock(1000)
	ctx := context.Background()
	require.NoError(t, c.WaitUntil(ctx, 5000))
	assert.EqualValues(t, 5000, c.Now())

	// waiting for an earlier time never moves the clock backwards
	require.NoError(t, c.WaitUntil(ctx, 1000))
	assert.EqualValues(t, 5000, c.Now())
}

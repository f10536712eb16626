package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessioncore/internal/clock"
	"sessioncore/internal/types"
)

func testWindow() clock.SessionWindow {
	return clock.SessionWindow{
		Date:            "2026-07-31",
		PremarketUTC:    0,
		ZoneStartUTC:    1000,
		ZoneEndUTC:      2000,
		ExecutionEndUTC: 9000,
	}
}

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	session := types.NewSessionContext("2026-07-31", "SPY", types.ExecutionBacktest, 0)
	return NewMachine(DefaultMachineConfig(), testWindow(), 17500, session, nil)
}

func bar(ts, o, h, l, c int64) types.Candle {
	return types.NewCandle(ts, o, h, l, c, 1000)
}

// buildZone drives the machine through BUILDING_ZONE with 6 bars whose
// range is [17000, 17530].
func buildZone(m *Machine) {
	ts := int64(1000)
	m.Dispatch(BarCompleted(bar(ts, 17100, 17530, 17000, 17200)))
	for i := 0; i < 5; i++ {
		ts += 300000
		m.Dispatch(BarCompleted(bar(ts, 17200, 17300, 17150, 17250)))
	}
}

func TestZoneFormationThenLongBreakRetestConfirmWin3R(t *testing.T) {
	m := newTestMachine(t)
	buildZone(m)
	require.Equal(t, StateMonitoring, m.State())
	require.True(t, m.session.Zone.IsTradable())
	require.Equal(t, int64(17000), m.session.Zone.Support)
	require.Equal(t, int64(17530), m.session.Zone.Resistance)

	ts := int64(2800000)
	// break above resistance
	m.Dispatch(BarCompleted(bar(ts, 17500, 17650, 17480, 17600)))
	require.Equal(t, StateAwaitingRetest, m.State())
	require.Len(t, m.session.Signals, 1)
	assert.Equal(t, types.SignalBreak, m.session.Signals[0].Type)
	assert.Equal(t, 1, m.session.Signals[0].AttemptNumber)

	// retest: dips to resistance, closes back above, but doesn't confirm
	// (close <= break bar's high)
	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17560, 17610, 17520, 17590)))
	require.Equal(t, StateAwaitingConfirmation, m.State())

	// confirmation: close above resistance and above retest bar's high
	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17600, 17700, 17590, 17680)))
	require.Equal(t, StateInTrade, m.State())
	require.True(t, m.session.HasTrade())

	trade := m.session.CurrentTrade()
	assert.Equal(t, types.DirectionLong, trade.Direction)
	assert.Equal(t, int64(17680), trade.EntryPrice)
	assert.Equal(t, int64(17000), trade.StopLevel)
	assert.Equal(t, int64(680), trade.RValue)

	// stop never hit; rally straight through 3R
	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17700, trade.Target3R+100, 17690, trade.Target3R+50)))
	require.Equal(t, StateComplete, m.State())
	require.Len(t, m.session.Outcomes, 1)
	assert.Equal(t, types.ResultWin3R, m.session.Outcomes[0].Result)
}

func TestRetestAndConfirmCoincidentBar(t *testing.T) {
	m := newTestMachine(t)
	buildZone(m)

	ts := int64(2800000)
	m.Dispatch(BarCompleted(bar(ts, 17500, 17650, 17480, 17600)))
	require.Equal(t, StateAwaitingRetest, m.State())

	// single bar both retests and confirms in the same candle
	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17560, 17700, 17510, 17680)))
	require.Equal(t, StateInTrade, m.State())
	last := m.session.Signals[len(m.session.Signals)-1]
	assert.Equal(t, types.SignalRetestAndConfirm, last.Type)
}

func TestBreakFailureThenOppositeDirectionSucceeds(t *testing.T) {
	m := newTestMachine(t)
	buildZone(m)

	ts := int64(2800000)
	// long break
	m.Dispatch(BarCompleted(bar(ts, 17500, 17650, 17480, 17600)))
	require.Equal(t, StateAwaitingRetest, m.State())

	// price collapses back inside the zone: break failure
	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17400, 17450, 17100, 17200)))
	require.Equal(t, StateMonitoring, m.State())
	last := m.session.Signals[len(m.session.Signals)-1]
	assert.Equal(t, types.SignalBreakFailure, last.Type)
	assert.Equal(t, 1, m.session.LongAttempts)

	// now a short break, retest, confirm
	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17100, 17110, 16900, 16950)))
	require.Equal(t, StateAwaitingRetest, m.State())
	require.Equal(t, types.DirectionShort, m.pendingDirection)

	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 16960, 17010, 16850, 16950)))
	require.Equal(t, StateAwaitingConfirmation, m.State())

	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 16860, 16865, 16700, 16750)))
	require.Equal(t, StateInTrade, m.State())
	trade := m.session.CurrentTrade()
	assert.Equal(t, types.DirectionShort, trade.Direction)
	assert.Equal(t, int64(17530), trade.StopLevel)
}

func TestSupersedeAbandonsPendingAttempt(t *testing.T) {
	m := newTestMachine(t)
	buildZone(m)

	ts := int64(2800000)
	m.Dispatch(BarCompleted(bar(ts, 17500, 17650, 17480, 17600)))
	require.Equal(t, types.DirectionLong, m.pendingDirection)

	// opposite-direction break supersedes the pending long attempt
	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 16990, 16995, 16850, 16900)))
	require.Equal(t, types.DirectionShort, m.pendingDirection)
	require.Equal(t, StateAwaitingRetest, m.State())
	assert.Equal(t, 1, m.session.LongAttempts)
	assert.Equal(t, 1, m.session.ShortAttempts)
}

func TestDegenerateZoneEndsNoTrade(t *testing.T) {
	m := newTestMachine(t)
	ts := int64(1000)
	for i := 0; i < 6; i++ {
		m.Dispatch(BarCompleted(bar(ts, 17200, 17205, 17198, 17201)))
		ts += 300000
	}
	assert.Equal(t, StateComplete, m.State())
	assert.Equal(t, types.ZoneDegenerate, m.session.Zone.Status)
	assert.False(t, m.session.HasTrade())
}

func TestChoppyZoneEndsNoTrade(t *testing.T) {
	m := newTestMachine(t)
	ts := int64(1000)
	m.Dispatch(BarCompleted(bar(ts, 17100, 17530, 17000, 17200)))
	ts += 300000
	// closes outside the opening range: choppy
	m.Dispatch(BarCompleted(bar(ts, 17200, 17900, 17150, 17800)))
	for i := 0; i < 4; i++ {
		ts += 300000
		m.Dispatch(BarCompleted(bar(ts, 17200, 17300, 17150, 17250)))
	}
	assert.Equal(t, StateComplete, m.State())
	assert.Equal(t, types.ZoneChoppy, m.session.Zone.Status)
}

func TestStopHitBeforeAnyThresholdIsLoss(t *testing.T) {
	m := newTestMachine(t)
	buildZone(m)

	ts := int64(2800000)
	m.Dispatch(BarCompleted(bar(ts, 17500, 17650, 17480, 17600)))
	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17560, 17700, 17510, 17680)))
	require.Equal(t, StateInTrade, m.State())
	trade := m.session.CurrentTrade()

	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17600, 17610, trade.StopLevel-10, trade.StopLevel-5)))
	require.Equal(t, StateComplete, m.State())
	assert.Equal(t, types.ResultLoss, m.session.Outcomes[0].Result)
}

func TestStopHitAfter1RTrailsToBreakeven(t *testing.T) {
	m := newTestMachine(t)
	buildZone(m)

	ts := int64(2800000)
	m.Dispatch(BarCompleted(bar(ts, 17500, 17650, 17480, 17600)))
	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17560, 17700, 17510, 17680)))
	trade := m.session.CurrentTrade()
	entry := trade.EntryPrice

	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17680, trade.Target1R+20, 17670, trade.Target1R+10)))
	assert.True(t, trade.Reached1R)
	assert.Equal(t, entry, trade.CurrentStop)

	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, entry, entry+5, entry-10, entry-5)))
	require.Equal(t, StateComplete, m.State())
	assert.Equal(t, types.ResultBreakevenStop, m.session.Outcomes[0].Result)
}

func TestSessionEndClosesOpenTradeAtLastClose(t *testing.T) {
	m := newTestMachine(t)
	buildZone(m)

	ts := int64(2800000)
	m.Dispatch(BarCompleted(bar(ts, 17500, 17650, 17480, 17600)))
	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17560, 17700, 17510, 17680)))
	require.Equal(t, StateInTrade, m.State())

	ts += 300000
	m.Dispatch(SessionEnd(ts))
	require.Equal(t, StateComplete, m.State())
	require.Len(t, m.session.Outcomes, 1)
	assert.NotEqual(t, types.TradeResult(""), m.session.Outcomes[0].Result)
}

func TestMaxBreakAttemptsExhaustsDirection(t *testing.T) {
	cfg := DefaultMachineConfig()
	cfg.MaxBreakAttempts = 1
	session := types.NewSessionContext("2026-07-31", "SPY", types.ExecutionBacktest, 0)
	m := NewMachine(cfg, testWindow(), 17500, session, nil)
	buildZone(m)

	ts := int64(2800000)
	m.Dispatch(BarCompleted(bar(ts, 17500, 17650, 17480, 17600)))
	require.Equal(t, 1, m.session.LongAttempts)

	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17400, 17450, 17100, 17200)))
	require.Equal(t, StateMonitoring, m.State())

	// a second long break should not start a new attempt: long side is closed
	ts += 300000
	m.Dispatch(BarCompleted(bar(ts, 17500, 17650, 17480, 17600)))
	assert.Equal(t, StateMonitoring, m.State())
	assert.Equal(t, 1, m.session.LongAttempts)
}

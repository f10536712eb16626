package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessioncore/internal/clock"
	"sessioncore/internal/notify"
	"sessioncore/internal/pacing"
	"sessioncore/internal/storage"
	"sessioncore/internal/strategy"
	"sessioncore/internal/types"
	"sessioncore/pkg/execution"
	"sessioncore/pkg/marketdata"
)

func testPreset() clock.WindowPreset {
	return clock.WindowPreset{
		Premarket:    "04:30",
		ZoneStart:    "09:30",
		ZoneEnd:      "09:35",
		ExecutionEnd: "09:50",
	}
}

func newTestRunner(t *testing.T, simClock *clock.SimulatedClock, md marketdata.Provider) (*Runner, *storage.MemoryProvider, *notify.MemoryProvider) {
	t.Helper()
	store := storage.NewMemoryProvider()
	notifier := notify.NewMemoryProvider()

	r, err := New(Config{
		Symbol:         "SPY",
		Date:           "2026-07-31",
		ExecutionMode:  types.ExecutionBacktest,
		Preset:         testPreset(),
		Calendar:       clock.NewStaticHolidayCalendar(nil, nil),
		StrategyCfg:    strategy.DefaultMachineConfig(),
		PacingCfg:      pacing.DefaultConfig(),
		Clock:          simClock,
		MarketData:     md,
		Storage:        store,
		Notify:         notifier,
		PremarketPrice: 17500,
	})
	require.NoError(t, err)
	return r, store, notifier
}

func TestRunnerBacktestCompletesAndSavesSession(t *testing.T) {
	window, err := clock.ComputeWindow("2026-07-31", testPreset(), clock.NewStaticHolidayCalendar(nil, nil))
	require.NoError(t, err)

	simClock := clock.NewSimulatedClock(window.ZoneStartUTC)
	md := marketdata.NewSimulationProvider(marketdata.SimulationConfig{
		InitialPriceCents: 17500,
		Seed:              7,
		BarInterval:       5 * time.Minute,
	})
	require.NoError(t, md.Connect(context.Background()))

	r, store, notifier := newTestRunner(t, simClock, md)

	err = r.RunBacktest(context.Background())
	require.NoError(t, err)

	session := r.Session()
	assert.NotEmpty(t, session.Status)
	assert.NotEqual(t, types.SessionWaiting, session.Status)

	saved, err := store.GetSession(context.Background(), storage.SessionKey{Date: session.Date, Symbol: session.Symbol, IsBacktest: true})
	require.NoError(t, err)
	assert.Equal(t, session.SessionID, saved.SessionID)

	_ = notifier // notifications are best-effort; presence isn't required for every synthetic run
}

func TestRunnerStopTransitionsToInterrupted(t *testing.T) {
	window, err := clock.ComputeWindow("2026-07-31", testPreset(), clock.NewStaticHolidayCalendar(nil, nil))
	require.NoError(t, err)

	simClock := clock.NewSimulatedClock(window.ZoneStartUTC)
	md := marketdata.NewSimulationProvider(marketdata.SimulationConfig{InitialPriceCents: 17500, Seed: 3})
	require.NoError(t, md.Connect(context.Background()))

	r, _, _ := newTestRunner(t, simClock, md)
	r.Stop()

	err = r.RunBacktest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.SessionInterrupted, r.Session().Status)
}

func TestRunnerPlacesEntryAndExitOrdersThroughExecution(t *testing.T) {
	window, err := clock.ComputeWindow("2026-07-31", testPreset(), clock.NewStaticHolidayCalendar(nil, nil))
	require.NoError(t, err)

	simClock := clock.NewSimulatedClock(window.ZoneStartUTC)
	md := marketdata.NewSimulationProvider(marketdata.SimulationConfig{InitialPriceCents: 17500, Seed: 11, BarInterval: 5 * time.Minute})
	require.NoError(t, md.Connect(context.Background()))

	store := storage.NewMemoryProvider()
	notifier := notify.NewMemoryProvider()
	exec := execution.NewMockProvider(simClock.Now)

	r, err := New(Config{
		Symbol:         "SPY",
		Date:           "2026-07-31",
		ExecutionMode:  types.ExecutionBacktest,
		Preset:         testPreset(),
		Calendar:       clock.NewStaticHolidayCalendar(nil, nil),
		StrategyCfg:    strategy.DefaultMachineConfig(),
		PacingCfg:      pacing.DefaultConfig(),
		Clock:          simClock,
		MarketData:     md,
		Execution:      exec,
		Storage:        store,
		Notify:         notifier,
		PremarketPrice: 17500,
	})
	require.NoError(t, err)

	require.NoError(t, r.RunBacktest(context.Background()))

	session := r.Session()
	if len(session.Trades) > 0 {
		trade := session.Trades[0]
		assert.NotZero(t, trade.EntryPrice)
		require.Len(t, session.Outcomes, 1)
		assert.Equal(t, trade.ID, session.Outcomes[0].TradeID)
		assert.NotZero(t, session.Outcomes[0].ExitPrice)
	}
}

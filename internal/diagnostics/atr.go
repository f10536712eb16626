// Package diagnostics computes non-decisional volatility metadata for later
// review. SessionContext has no field for it; the session runner logs the
// snapshot at session end. Nothing here feeds the strategy
// state machine: the break/retest/confirmation predicates are fixed
// price-level rules, and diagnostics must never become a second decision
// path.
package diagnostics

import (
	"github.com/cinar/indicator"

	"sessioncore/internal/types"
)

// DefaultATRPeriod is the standard 14-bar Wilder ATR window.
const DefaultATRPeriod = 14

// VolatilitySnapshot summarizes a session's volatility once it has enough
// bars to compute it. It is not stored on the SessionContext and never
// drives the state machine.
type VolatilitySnapshot struct {
	Symbol       string  `json:"symbol"`
	ATRPeriod    int     `json:"atr_period"`
	LatestATR    float64 `json:"latest_atr"`
	ZoneSpreadATRRatio float64 `json:"zone_spread_atr_ratio"` // zone.Spread / LatestATR, cents per cent
	SampleBars   int     `json:"sample_bars"`
}

// ComputeATR runs cinar/indicator's ATR over a session's bars so far and
// returns the full series (in cents, same units as the candles). A session
// with fewer than period+1 bars has an undefined ATR and gets a nil series.
func ComputeATR(bars []types.Candle, period int) []float64 {
	if period <= 0 {
		period = DefaultATRPeriod
	}
	if len(bars) < period+1 {
		return nil
	}
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = float64(b.High)
		lows[i] = float64(b.Low)
		closes[i] = float64(b.Close)
	}
	_, atrValues := indicator.Atr(period, highs, lows, closes)
	return atrValues
}

// Snapshot builds a VolatilitySnapshot for the current state of a session.
// Returns ok=false when there isn't enough history yet to compute ATR.
func Snapshot(symbol string, bars []types.Candle, zone *types.DecisionZone, period int) (VolatilitySnapshot, bool) {
	if period <= 0 {
		period = DefaultATRPeriod
	}
	series := ComputeATR(bars, period)
	if len(series) == 0 {
		return VolatilitySnapshot{}, false
	}
	latest := series[len(series)-1]
	snap := VolatilitySnapshot{
		Symbol:     symbol,
		ATRPeriod:  period,
		LatestATR:  latest,
		SampleBars: len(bars),
	}
	if zone != nil && latest > 0 {
		snap.ZoneSpreadATRRatio = float64(zone.Spread) / latest
	}
	return snap, true
}

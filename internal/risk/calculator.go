// Package risk implements the pure, integer-cents R/target/R-multiple
// calculations the strategy state machine uses for entry sizing and trade
// management.
package risk

import (
	"github.com/shopspring/decimal"

	"sessioncore/internal/types"
)

// ComputeRValue returns |entryPrice - stopLevel| in cents.
func ComputeRValue(entryPrice, stopLevel int64) int64 {
	r := entryPrice - stopLevel
	if r < 0 {
		r = -r
	}
	return r
}

// ComputeTargetPrice returns entryPrice ± k*rValue in cents, the sign
// matching direction (LONG targets above entry, SHORT targets below).
func ComputeTargetPrice(entryPrice, rValue int64, k int, direction types.Direction) int64 {
	delta := rValue * int64(k)
	if direction == types.DirectionLong {
		return entryPrice + delta
	}
	return entryPrice - delta
}

// ComputeRMultiple returns the signed R-multiple of a price move, rounded
// to two decimals via shopspring/decimal's banker-safe fixed-point
// arithmetic ("multiply-round-divide by 100", never floating point).
func ComputeRMultiple(entryPrice, currentPrice, rValue int64, direction types.Direction) float64 {
	if rValue == 0 {
		return 0
	}
	var moveCents int64
	if direction == types.DirectionLong {
		moveCents = currentPrice - entryPrice
	} else {
		moveCents = entryPrice - currentPrice
	}
	multiple := decimal.NewFromInt(moveCents).Div(decimal.NewFromInt(rValue))
	rounded := multiple.Mul(decimal.NewFromInt(100)).Round(0).Div(decimal.NewFromInt(100))
	f, _ := rounded.Float64()
	return f
}

// ComputeMFE returns the maximum favorable excursion, in R-multiples,
// across bars (a trade's life so far or in full).
func ComputeMFE(bars []types.Candle, entryPrice, rValue int64, direction types.Direction) float64 {
	best := 0.0
	for _, bar := range bars {
		var extreme int64
		if direction == types.DirectionLong {
			extreme = bar.High
		} else {
			extreme = bar.Low
		}
		r := ComputeRMultiple(entryPrice, extreme, rValue, direction)
		if r > best {
			best = r
		}
	}
	return best
}

// ComputeMAE returns the maximum adverse excursion, in R-multiples
// (a non-negative number representing the worst drawdown against the
// trade), across bars.
func ComputeMAE(bars []types.Candle, entryPrice, rValue int64, direction types.Direction) float64 {
	worst := 0.0
	for _, bar := range bars {
		var extreme int64
		if direction == types.DirectionLong {
			extreme = bar.Low
		} else {
			extreme = bar.High
		}
		r := ComputeRMultiple(entryPrice, extreme, rValue, direction)
		if r < worst {
			worst = r
		}
	}
	if worst < 0 {
		return -worst
	}
	return worst
}

// RoundR rounds an R-multiple to two decimals using the same fixed-point
// rule as ComputeRMultiple, for callers computing realized R directly from
// cents at exit (e.g. SESSION_TIMEOUT).
func RoundR(value float64) float64 {
	d := decimal.NewFromFloat(value)
	rounded := d.Mul(decimal.NewFromInt(100)).Round(0).Div(decimal.NewFromInt(100))
	f, _ := rounded.Float64()
	return f
}

package strategy

import (
	"fmt"

	"sessioncore/internal/risk"
	"sessioncore/internal/types"
)

// handleInTrade applies the trade-management rules for one
// completed bar. Stop-hit is checked first and unconditionally: if a bar
// touches both the (pre-trail) stop and a favorable target, the stop wins.
// This is a deliberately pessimistic assumption about intrabar
// path-dependence, not a general tie-break law.
func (m *Machine) handleInTrade(bar types.Candle) {
	trade := m.session.CurrentTrade()
	long := trade.Direction == types.DirectionLong

	stopHit := (long && bar.Low <= trade.CurrentStop) || (!long && bar.High >= trade.CurrentStop)
	if stopHit {
		m.exitTrade(trade, bar, trade.CurrentStop, bar.Timestamp, stopResult(trade))
		return
	}

	reached1R := (long && bar.High >= trade.Target1R) || (!long && bar.Low <= trade.Target1R)
	if reached1R && !trade.Reached1R {
		trade.Reached1R = true
		if trade.TrailingStopAt1R {
			trade.CurrentStop = trade.EntryPrice
		}
		m.pendingOutcome().Timestamp1R = bar.Timestamp
		m.pendingOutcome().FirstThresholdReached = maxInt(m.pendingOutcome().FirstThresholdReached, 1)
	}

	reached2R := (long && bar.High >= trade.Target2R) || (!long && bar.Low <= trade.Target2R)
	if reached2R && m.pendingOutcome().Timestamp2R == 0 {
		m.pendingOutcome().Timestamp2R = bar.Timestamp
		m.pendingOutcome().FirstThresholdReached = maxInt(m.pendingOutcome().FirstThresholdReached, 2)
	}

	reached3R := (long && bar.High >= trade.Target3R) || (!long && bar.Low <= trade.Target3R)
	if reached3R {
		m.pendingOutcome().Timestamp3R = bar.Timestamp
		m.pendingOutcome().FirstThresholdReached = maxInt(m.pendingOutcome().FirstThresholdReached, 3)
		m.exitTrade(trade, bar, trade.Target3R, bar.Timestamp, types.ResultWin3R)
		return
	}
}

func stopResult(trade *types.Trade) types.TradeResult {
	if !trade.Reached1R {
		return types.ResultLoss
	}
	return types.ResultBreakevenStop
}

// pendingOutcome lazily creates the in-progress outcome record for the
// current trade, tracked in m.session.Outcomes with threshold bookkeeping
// updated as bars arrive; exitTrade fills in the exit fields and MFE/MAE.
func (m *Machine) pendingOutcome() *types.TradeOutcome {
	trade := m.session.CurrentTrade()
	if len(m.session.Outcomes) > 0 && m.session.Outcomes[len(m.session.Outcomes)-1].TradeID == trade.ID {
		return &m.session.Outcomes[len(m.session.Outcomes)-1]
	}
	m.session.Outcomes = append(m.session.Outcomes, types.TradeOutcome{TradeID: trade.ID})
	return &m.session.Outcomes[len(m.session.Outcomes)-1]
}

func (m *Machine) exitTrade(trade *types.Trade, exitBar types.Candle, exitPrice, exitTimestamp int64, result types.TradeResult) {
	trade.Status = types.TradeClosed
	outcome := m.pendingOutcome()

	tradeBars := m.barsSinceEntry(trade.EntryTimestamp, exitTimestamp)
	realizedR := risk.ComputeRMultiple(trade.EntryPrice, exitPrice, trade.RValue, trade.Direction)

	outcome.Result = result
	outcome.ExitPrice = exitPrice
	outcome.ExitTimestamp = exitTimestamp
	outcome.RealizedR = risk.RoundR(realizedR)
	outcome.MaxFavorableR = risk.ComputeMFE(tradeBars, trade.EntryPrice, trade.RValue, trade.Direction)
	outcome.MaxAdverseR = risk.ComputeMAE(tradeBars, trade.EntryPrice, trade.RValue, trade.Direction)
	outcome.BarsHeld = len(tradeBars)
	if result == types.ResultLoss || result == types.ResultBreakevenStop {
		outcome.TimestampStop = exitTimestamp
	}

	m.transitionTo(StateComplete)
}

func (m *Machine) barsSinceEntry(entryTimestamp, exitTimestamp int64) []types.Candle {
	var out []types.Candle
	for _, b := range m.session.AllBars {
		if b.Timestamp >= entryTimestamp && b.Timestamp <= exitTimestamp {
			out = append(out, b)
		}
	}
	return out
}

// ApplyEntryFill overwrites the current trade's entry price with the price
// actually placed by the execution provider, recomputing RValue and the R
// targets from it. Only valid immediately after entry, before any bar has
// moved the stop or reached a threshold.
func (m *Machine) ApplyEntryFill(fillPriceCents int64) error {
	trade := m.session.CurrentTrade()
	if trade == nil || trade.Status != types.TradeOpen || trade.Reached1R {
		return fmt.Errorf("strategy: no open trade awaiting an entry fill")
	}
	trade.EntryPrice = fillPriceCents
	trade.RValue = risk.ComputeRValue(fillPriceCents, trade.StopLevel)
	trade.Target1R = risk.ComputeTargetPrice(fillPriceCents, trade.RValue, 1, trade.Direction)
	trade.Target2R = risk.ComputeTargetPrice(fillPriceCents, trade.RValue, 2, trade.Direction)
	trade.Target3R = risk.ComputeTargetPrice(fillPriceCents, trade.RValue, 3, trade.Direction)
	trade.CurrentStop = trade.StopLevel
	return nil
}

// ApplyExitFill overwrites tradeID's most recent outcome with the price
// actually placed by the execution provider, recomputing the realized
// R-multiple from it. MFE/MAE stay bar-derived: they describe the trade's
// full path, not its closing fill.
func (m *Machine) ApplyExitFill(tradeID string, fillPriceCents int64) error {
	if len(m.session.Outcomes) == 0 {
		return fmt.Errorf("strategy: no outcome to apply an exit fill to")
	}
	outcome := &m.session.Outcomes[len(m.session.Outcomes)-1]
	if outcome.TradeID != tradeID {
		return fmt.Errorf("strategy: exit fill trade %s does not match latest outcome %s", tradeID, outcome.TradeID)
	}
	trade := m.session.CurrentTrade()
	outcome.ExitPrice = fillPriceCents
	outcome.RealizedR = risk.RoundR(risk.ComputeRMultiple(trade.EntryPrice, fillPriceCents, trade.RValue, trade.Direction))
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// handleSessionEnd ends the session regardless of state: an open trade is
// closed at the last bar's close; any other non-terminal state ends with
// NO_TRADE (or, if a trade had already been recorded and closed, COMPLETE
// is a no-op since the machine is already terminal).
func (m *Machine) handleSessionEnd(timestamp int64) {
	if m.state == StateComplete || m.state == StateError {
		return
	}
	if m.state == StateInTrade {
		trade := m.session.CurrentTrade()
		exitPrice := m.lastBar.Close
		realizedR := risk.RoundR(risk.ComputeRMultiple(trade.EntryPrice, exitPrice, trade.RValue, trade.Direction))
		result := types.ResultSessionTimeout
		if realizedR > 0 && realizedR >= 2 {
			result = types.ResultWin2R
		}
		m.exitTrade(trade, m.lastBar, exitPrice, timestamp, result)
		return
	}
	m.finishNoTrade()
}

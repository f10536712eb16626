package types

import "github.com/google/uuid"

// TradeStatus tracks a trade's lifecycle.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// Trade is created only on CONFIRMATION. At most one Trade exists per
// session.
type Trade struct {
	ID              string      `json:"id"`
	Symbol          string      `json:"symbol"`
	Direction       Direction   `json:"direction"`
	EntryPrice      int64       `json:"entry_price"`
	StopLevel       int64       `json:"stop_level"` // initial stop, never mutated
	CurrentStop     int64       `json:"current_stop"`
	RValue          int64       `json:"r_value"` // cents, |entryPrice - stopLevel|
	Target1R        int64       `json:"target_1r"`
	Target2R        int64       `json:"target_2r"`
	Target3R        int64       `json:"target_3r"`
	EntryTimestamp  int64       `json:"entry_timestamp"`
	Status          TradeStatus `json:"status"`
	Reached1R       bool        `json:"reached_1r"`
	TrailingStopAt1R bool       `json:"trailing_stop_at_1r"`
}

// NewTrade builds a Trade from an entry price, stop level, and the k=1,2,3
// multiples of the resulting R-value. Callers must check RValue > 0 before
// accepting the trade (a zero RValue is a STRATEGY_INVARIANT violation).
func NewTrade(symbol string, direction Direction, entryPrice, stopLevel int64, target1R, target2R, target3R int64, timestamp int64, trailingStopAt1R bool) Trade {
	rValue := entryPrice - stopLevel
	if rValue < 0 {
		rValue = -rValue
	}
	return Trade{
		ID:               uuid.NewString(),
		Symbol:           symbol,
		Direction:        direction,
		EntryPrice:       entryPrice,
		StopLevel:        stopLevel,
		CurrentStop:      stopLevel,
		RValue:           rValue,
		Target1R:         target1R,
		Target2R:         target2R,
		Target3R:         target3R,
		EntryTimestamp:   timestamp,
		Status:           TradeOpen,
		TrailingStopAt1R: trailingStopAt1R,
	}
}

// TradeResult enumerates terminal outcomes.
type TradeResult string

const (
	ResultWin3R          TradeResult = "WIN_3R"
	ResultWin2R          TradeResult = "WIN_2R"
	ResultBreakevenStop  TradeResult = "BREAKEVEN_STOP"
	ResultLoss           TradeResult = "LOSS"
	ResultSessionTimeout TradeResult = "SESSION_TIMEOUT"
)

// TradeOutcome records the exit of a Trade. Exactly one exists per Trade.
type TradeOutcome struct {
	TradeID               string      `json:"trade_id"`
	Result                TradeResult `json:"result"`
	ExitPrice              int64      `json:"exit_price"`
	ExitTimestamp          int64      `json:"exit_timestamp"`
	RealizedR              float64    `json:"realized_r"`
	MaxFavorableR          float64    `json:"max_favorable_r"`
	MaxAdverseR            float64    `json:"max_adverse_r"`
	BarsHeld               int        `json:"bars_held"`
	FirstThresholdReached  int        `json:"first_threshold_reached"` // 0,1,2,3
	Timestamp1R            int64      `json:"timestamp_1r,omitempty"`
	Timestamp2R            int64      `json:"timestamp_2r,omitempty"`
	Timestamp3R            int64      `json:"timestamp_3r,omitempty"`
	TimestampStop          int64      `json:"timestamp_stop,omitempty"`
}

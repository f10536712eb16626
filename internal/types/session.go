package types

import "github.com/google/uuid"

// SessionStatus is the top-level status of a SessionContext.
type SessionStatus string

const (
	SessionWaiting      SessionStatus = "WAITING"
	SessionBuildingZone SessionStatus = "BUILDING_ZONE"
	SessionMonitoring   SessionStatus = "MONITORING"
	SessionNoTrade      SessionStatus = "NO_TRADE"
	SessionComplete     SessionStatus = "COMPLETE"
	SessionInterrupted  SessionStatus = "INTERRUPTED"
	SessionError        SessionStatus = "ERROR"
)

// ExecutionMode distinguishes live trading from backtest/replay.
type ExecutionMode string

const (
	ExecutionLive     ExecutionMode = "LIVE"
	ExecutionBacktest ExecutionMode = "BACKTEST"
)

// SessionContext is the aggregated record for one symbol's trading day. It
// owns all child records: Signals/Trades/Outcomes are append-only within a
// session, the zone is assigned once, and candles are shared by value.
type SessionContext struct {
	SessionID     string         `json:"session_id"`
	Date          string         `json:"date"` // YYYY-MM-DD, America/New_York
	Symbol        string         `json:"symbol"`
	Zone          *DecisionZone  `json:"zone,omitempty"`
	Signals       []Signal       `json:"signals"`
	Trades        []Trade        `json:"trades"`
	Outcomes      []TradeOutcome `json:"outcomes"`
	AllBars       []Candle       `json:"all_bars"`
	Status        SessionStatus  `json:"status"`
	ExecutionMode ExecutionMode  `json:"execution_mode"`
	StartedAt     int64          `json:"started_at"`
	EndedAt       int64          `json:"ended_at,omitempty"`
	Error         string         `json:"error,omitempty"`

	LongAttempts  int `json:"long_attempts"`
	ShortAttempts int `json:"short_attempts"`
}

// NewSessionContext builds a fresh session record in WAITING status.
func NewSessionContext(date, symbol string, mode ExecutionMode, startedAt int64) *SessionContext {
	return &SessionContext{
		SessionID:     uuid.NewString(),
		Date:          date,
		Symbol:        symbol,
		Status:        SessionWaiting,
		ExecutionMode: mode,
		StartedAt:     startedAt,
		Signals:       make([]Signal, 0),
		Trades:        make([]Trade, 0),
		Outcomes:      make([]TradeOutcome, 0),
		AllBars:       make([]Candle, 0),
	}
}

// HasTrade reports whether a trade has already been created this session.
func (s *SessionContext) HasTrade() bool {
	return len(s.Trades) > 0
}

// CurrentTrade returns a pointer into s.Trades for the single trade, if any.
func (s *SessionContext) CurrentTrade() *Trade {
	if len(s.Trades) == 0 {
		return nil
	}
	return &s.Trades[len(s.Trades)-1]
}

// AppendSignal records a signal. It does not touch the directional attempt
// counters; the strategy machine advances those itself when a BREAK starts
// an attempt.
func (s *SessionContext) AppendSignal(sig Signal) {
	s.Signals = append(s.Signals, sig)
}

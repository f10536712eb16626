// Package storage defines the persistence boundary for sessions, trades,
// and signals, and provides an in-memory reference implementation. No
// component in this module owns durable storage (a database
// driver out of scope); callers requiring durability provide their own
// Provider.
package storage

import (
	"context"

	"sessioncore/internal/types"
)

// SessionKey is the uniqueness key for a stored session.
type SessionKey struct {
	Date       string
	Symbol     string
	IsBacktest bool
}

// Provider is the persistence boundary a SessionRunner writes through.
// SaveSession, SaveTrade, SaveTradeOutcome and SaveTradeWithOutcome are
// idempotent under retry: saving the same record twice overwrites rather
// than duplicates. SaveSignals and SaveBars append what they are given, so
// a retried call duplicates its records.
type Provider interface {
	SaveSession(ctx context.Context, session *types.SessionContext) error
	SaveTrade(ctx context.Context, sessionID string, trade types.Trade) error
	SaveTradeOutcome(ctx context.Context, sessionID string, outcome types.TradeOutcome) error
	SaveTradeWithOutcome(ctx context.Context, sessionID string, trade types.Trade, outcome types.TradeOutcome) error
	SaveSignals(ctx context.Context, sessionID string, signals []types.Signal) error
	SaveBars(ctx context.Context, sessionID string, bars []types.Candle) error

	GetSession(ctx context.Context, key SessionKey) (*types.SessionContext, error)
	HasCompletedSession(ctx context.Context, key SessionKey) (bool, error)
	GetSessionsByDateRange(ctx context.Context, symbol, startDate, endDate string) ([]*types.SessionContext, error)
	GetTradesByDateRange(ctx context.Context, symbol, startDate, endDate string) ([]types.Trade, error)
	GetOutcomesByDateRange(ctx context.Context, symbol, startDate, endDate string) ([]types.TradeOutcome, error)
}

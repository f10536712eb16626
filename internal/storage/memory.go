package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sessioncore/internal/types"
)

// MemoryProvider is the in-memory reference Provider used by the runner's
// own tests and by backtest runs that don't need durability across
// process restarts.
type MemoryProvider struct {
	mu       sync.RWMutex
	sessions map[string]*types.SessionContext // keyed by SessionKey.String()
}

// NewMemoryProvider builds an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{sessions: make(map[string]*types.SessionContext)}
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s|%s|%t", k.Date, k.Symbol, k.IsBacktest)
}

func keyFor(s *types.SessionContext) SessionKey {
	return SessionKey{Date: s.Date, Symbol: s.Symbol, IsBacktest: s.ExecutionMode == types.ExecutionBacktest}
}

func cloneSession(s *types.SessionContext) *types.SessionContext {
	clone := *s
	clone.Signals = append([]types.Signal(nil), s.Signals...)
	clone.Trades = append([]types.Trade(nil), s.Trades...)
	clone.Outcomes = append([]types.TradeOutcome(nil), s.Outcomes...)
	clone.AllBars = append([]types.Candle(nil), s.AllBars...)
	if s.Zone != nil {
		zoneCopy := *s.Zone
		clone.Zone = &zoneCopy
	}
	return &clone
}

func (m *MemoryProvider) SaveSession(_ context.Context, session *types.SessionContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[keyFor(session).String()] = cloneSession(session)
	return nil
}

func (m *MemoryProvider) SaveTrade(_ context.Context, sessionID string, trade types.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.findBySessionID(sessionID)
	if s == nil {
		return fmt.Errorf("storage: no session %s", sessionID)
	}
	for i, t := range s.Trades {
		if t.ID == trade.ID {
			s.Trades[i] = trade
			return nil
		}
	}
	s.Trades = append(s.Trades, trade)
	return nil
}

func (m *MemoryProvider) SaveTradeOutcome(_ context.Context, sessionID string, outcome types.TradeOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.findBySessionID(sessionID)
	if s == nil {
		return fmt.Errorf("storage: no session %s", sessionID)
	}
	for i, o := range s.Outcomes {
		if o.TradeID == outcome.TradeID {
			s.Outcomes[i] = outcome
			return nil
		}
	}
	s.Outcomes = append(s.Outcomes, outcome)
	return nil
}

func (m *MemoryProvider) SaveTradeWithOutcome(ctx context.Context, sessionID string, trade types.Trade, outcome types.TradeOutcome) error {
	if err := m.SaveTrade(ctx, sessionID, trade); err != nil {
		return err
	}
	return m.SaveTradeOutcome(ctx, sessionID, outcome)
}

func (m *MemoryProvider) SaveSignals(_ context.Context, sessionID string, signals []types.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.findBySessionID(sessionID)
	if s == nil {
		return fmt.Errorf("storage: no session %s", sessionID)
	}
	s.Signals = append(s.Signals, signals...)
	return nil
}

func (m *MemoryProvider) SaveBars(_ context.Context, sessionID string, bars []types.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.findBySessionID(sessionID)
	if s == nil {
		return fmt.Errorf("storage: no session %s", sessionID)
	}
	s.AllBars = append(s.AllBars, bars...)
	return nil
}

// findBySessionID must be called with m.mu held.
func (m *MemoryProvider) findBySessionID(sessionID string) *types.SessionContext {
	for _, s := range m.sessions {
		if s.SessionID == sessionID {
			return s
		}
	}
	return nil
}

func (m *MemoryProvider) GetSession(_ context.Context, key SessionKey) (*types.SessionContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key.String()]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (m *MemoryProvider) HasCompletedSession(ctx context.Context, key SessionKey) (bool, error) {
	s, err := m.GetSession(ctx, key)
	if err != nil || s == nil {
		return false, err
	}
	return s.Status == types.SessionComplete || s.Status == types.SessionNoTrade, nil
}

func (m *MemoryProvider) GetSessionsByDateRange(_ context.Context, symbol, startDate, endDate string) ([]*types.SessionContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.SessionContext
	for _, s := range m.sessions {
		if s.Symbol == symbol && s.Date >= startDate && s.Date <= endDate {
			out = append(out, cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *MemoryProvider) GetTradesByDateRange(ctx context.Context, symbol, startDate, endDate string) ([]types.Trade, error) {
	sessions, err := m.GetSessionsByDateRange(ctx, symbol, startDate, endDate)
	if err != nil {
		return nil, err
	}
	var out []types.Trade
	for _, s := range sessions {
		out = append(out, s.Trades...)
	}
	return out, nil
}

func (m *MemoryProvider) GetOutcomesByDateRange(ctx context.Context, symbol, startDate, endDate string) ([]types.TradeOutcome, error) {
	sessions, err := m.GetSessionsByDateRange(ctx, symbol, startDate, endDate)
	if err != nil {
		return nil, err
	}
	var out []types.TradeOutcome
	for _, s := range sessions {
		out = append(out, s.Outcomes...)
	}
	return out, nil
}

var _ Provider = (*MemoryProvider)(nil)

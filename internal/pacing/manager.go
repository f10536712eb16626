// Package pacing gates outbound historical-data requests to the upstream
// market-data provider through a three-tier admission controller: identity
// dedup, per-contract burst, and a global rolling window.
package pacing

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sessioncore/internal/clock"
)

// Config holds the three tiers' limits, defaulting to the documented pacing tuning.
type Config struct {
	IdentityWindowMs int64 `json:"identity_window_ms"`
	BurstLimit       int   `json:"burst_limit"`
	BurstWindowMs    int64 `json:"burst_window_ms"`
	GlobalLimit      int   `json:"global_limit"`
	GlobalWindowMs   int64 `json:"global_window_ms"`
}

// DefaultConfig returns the default three-tier configuration.
func DefaultConfig() Config {
	return Config{
		IdentityWindowMs: 15_000,
		BurstLimit:       6,
		BurstWindowMs:    2_000,
		GlobalLimit:      60,
		GlobalWindowMs:   600_000,
	}
}

// Status is the post-prune snapshot returned by GetStatus.
type Status struct {
	GlobalUsed      int            `json:"global_used"`
	GlobalRemaining int            `json:"global_remaining"`
	ContractCounts  map[string]int `json:"contract_counts"`
}

// Manager is the single admission gate. All callers share one serialized
// FIFO queue; only the head of the queue is evaluated at a time, so
// concurrent callers can never overtake one another.
type Manager struct {
	cfg   Config
	clock clock.Clock

	queue sync.Mutex // held for the full compute-wait-admit cycle of one caller

	mu            sync.Mutex // guards the maps below, for GetStatus/reset from other goroutines
	identityLim   map[string]*rate.Limiter
	burstTimes    map[string][]int64
	globalTimes   []int64
}

func NewManager(cfg Config, c clock.Clock) *Manager {
	if cfg.IdentityWindowMs == 0 {
		cfg.IdentityWindowMs = DefaultConfig().IdentityWindowMs
	}
	if cfg.BurstLimit == 0 {
		cfg.BurstLimit = DefaultConfig().BurstLimit
	}
	if cfg.BurstWindowMs == 0 {
		cfg.BurstWindowMs = DefaultConfig().BurstWindowMs
	}
	if cfg.GlobalLimit == 0 {
		cfg.GlobalLimit = DefaultConfig().GlobalLimit
	}
	if cfg.GlobalWindowMs == 0 {
		cfg.GlobalWindowMs = DefaultConfig().GlobalWindowMs
	}
	return &Manager{
		cfg:         cfg,
		clock:       c,
		identityLim: make(map[string]*rate.Limiter),
		burstTimes:  make(map[string][]int64),
	}
}

// AcquireSlot blocks (honoring ctx) until admission is granted for
// contractID/requestKey, then records the admission. Returns the total time
// spent waiting for admission (0 if granted immediately) and ctx.Err() if
// cancelled while waiting.
func (m *Manager) AcquireSlot(ctx context.Context, contractID, requestKey string) (int64, error) {
	m.queue.Lock()
	defer m.queue.Unlock()

	start := m.clock.Now()

	for {
		if err := ctx.Err(); err != nil {
			return m.clock.Now() - start, err
		}

		now := m.clock.Now()
		wait1 := m.identityWaitMs(requestKey, now)
		wait2 := m.burstWaitMs(contractID, now)
		wait3 := m.globalWaitMs(now)

		wait := wait1
		if wait2 > wait {
			wait = wait2
		}
		if wait3 > wait {
			wait = wait3
		}

		if wait <= 0 {
			m.admit(contractID, requestKey, now)
			return now - start, nil
		}

		if err := m.clock.WaitUntil(ctx, now+wait); err != nil {
			return m.clock.Now() - start, err
		}
		// loop: windows may have shifted further during the sleep
	}
}

func (m *Manager) identityWaitMs(requestKey string, now int64) int64 {
	m.mu.Lock()
	lim, ok := m.identityLim[requestKey]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Duration(m.cfg.IdentityWindowMs)*time.Millisecond), 1)
		m.identityLim[requestKey] = lim
	}
	m.mu.Unlock()

	r := lim.ReserveN(time.UnixMilli(now), 1)
	if !r.OK() {
		return m.cfg.IdentityWindowMs
	}
	delay := r.DelayFrom(time.UnixMilli(now))
	r.CancelAt(time.UnixMilli(now)) // don't consume; admit() performs the real consumption once the full wait clears
	if delay <= 0 {
		return 0
	}
	return delay.Milliseconds()
}

func (m *Manager) burstWaitMs(contractID string, now int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	times := pruneOlderThan(m.burstTimes[contractID], now-m.cfg.BurstWindowMs)
	m.burstTimes[contractID] = times
	if len(times) < m.cfg.BurstLimit {
		return 0
	}
	oldest := times[0]
	wait := oldest + m.cfg.BurstWindowMs - now
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (m *Manager) globalWaitMs(now int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.globalTimes = pruneOlderThan(m.globalTimes, now-m.cfg.GlobalWindowMs)
	if len(m.globalTimes) < m.cfg.GlobalLimit {
		return 0
	}
	oldest := m.globalTimes[0]
	wait := oldest + m.cfg.GlobalWindowMs - now
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (m *Manager) admit(contractID, requestKey string, now int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lim, ok := m.identityLim[requestKey]; ok {
		lim.ReserveN(time.UnixMilli(now), 1) // consume the token for real this time
	}
	m.burstTimes[contractID] = append(m.burstTimes[contractID], now)
	m.globalTimes = append(m.globalTimes, now)
}

func pruneOlderThan(times []int64, cutoff int64) []int64 {
	i := 0
	for i < len(times) && times[i] < cutoff {
		i++
	}
	if i == 0 {
		return times
	}
	return append([]int64(nil), times[i:]...)
}

// GetStatus returns the post-prune admission state.
func (m *Manager) GetStatus() Status {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.globalTimes = pruneOlderThan(m.globalTimes, now-m.cfg.GlobalWindowMs)
	counts := make(map[string]int, len(m.burstTimes))
	for contractID, times := range m.burstTimes {
		pruned := pruneOlderThan(times, now-m.cfg.BurstWindowMs)
		m.burstTimes[contractID] = pruned
		counts[contractID] = len(pruned)
	}
	used := len(m.globalTimes)
	remaining := m.cfg.GlobalLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return Status{GlobalUsed: used, GlobalRemaining: remaining, ContractCounts: counts}
}

// Reset clears all admission state.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identityLim = make(map[string]*rate.Limiter)
	m.burstTimes = make(map[string][]int64)
	m.globalTimes = nil
}

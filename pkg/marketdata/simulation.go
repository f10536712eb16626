package marketdata

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"sessioncore/internal/types"
)

// SimulationConfig tunes SimulationProvider's synthetic bar generation,
// using integer cents and a fixed 5-minute bar size by default.
type SimulationConfig struct {
	Config
	InitialPriceCents int64   `json:"initial_price_cents"`
	VolatilityBps     float64 `json:"volatility_bps"` // basis points of price per bar, 1 std dev
	Seed              int64   `json:"seed"`
	BarInterval       time.Duration `json:"bar_interval"` // wall-clock pace between emitted bars
}

// SimulationProvider generates synthetic 5-minute bars for tests and
// backtests that don't replay a fixed historical series.
type SimulationProvider struct {
	cfg SimulationConfig

	mu        sync.RWMutex
	connected bool
	cancel    context.CancelFunc

	barCh   chan types.Candle
	errCh   chan ProviderError
	rng     *rand.Rand
	price   int64
	barTime int64
}

// NewSimulationProvider builds a SimulationProvider, defaulting any zero
// config fields.
func NewSimulationProvider(cfg SimulationConfig) *SimulationProvider {
	if cfg.InitialPriceCents <= 0 {
		cfg.InitialPriceCents = 17500
	}
	if cfg.VolatilityBps <= 0 {
		cfg.VolatilityBps = 15
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 200
	}
	if cfg.BarInterval <= 0 {
		cfg.BarInterval = 5 * time.Minute
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	return &SimulationProvider{
		cfg:     cfg,
		barCh:   make(chan types.Candle, cfg.BufferSize),
		errCh:   make(chan ProviderError, 16),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		price:   cfg.InitialPriceCents,
		barTime: 0,
	}
}

func (p *SimulationProvider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.connected = true
	go p.generateLoop(runCtx)
	return nil
}

func (p *SimulationProvider) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil
	}
	p.cancel()
	p.connected = false
	return nil
}

func (p *SimulationProvider) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *SimulationProvider) ConnectionState() ConnectionState {
	if p.IsConnected() {
		return StateConnected
	}
	return StateDisconnected
}

func (p *SimulationProvider) ResolveContract(symbol string) (ContractSpec, error) {
	return ContractSpec{Symbol: symbol, Exchange: "SIMULATION", TickSizeCents: 1}, nil
}

// GetHistoricalBars synthesizes a deterministic series seeded the same way
// as the live feed, so backtest fixtures can be regenerated reproducibly.
func (p *SimulationProvider) GetHistoricalBars(_ context.Context, symbol string, startUTC, endUTC int64) ([]types.Candle, error) {
	if endUTC <= startUTC {
		return nil, fmt.Errorf("marketdata: endUTC must be after startUTC")
	}
	interval := int64(p.cfg.BarInterval / time.Millisecond)
	if interval <= 0 {
		interval = 300000
	}
	price := p.cfg.InitialPriceCents
	var bars []types.Candle
	for ts := startUTC; ts < endUTC; ts += interval {
		bar, next := p.syntheticBar(ts, price)
		price = next
		bars = append(bars, bar)
	}
	return bars, nil
}

func (p *SimulationProvider) SubscribeBars(symbol string) (<-chan types.Candle, error) {
	if !p.IsConnected() {
		return nil, fmt.Errorf("marketdata: not connected")
	}
	return p.barCh, nil
}

func (p *SimulationProvider) Errors() <-chan ProviderError {
	return p.errCh
}

func (p *SimulationProvider) generateLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.BarInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			p.barTime += int64(p.cfg.BarInterval / time.Millisecond)
			bar, next := p.syntheticBar(p.barTime, p.price)
			p.price = next
			p.mu.Unlock()
			select {
			case p.barCh <- bar:
			case <-ctx.Done():
				return
			}
		}
	}
}

// syntheticBar generates one bar from a starting price via a bounded
// random walk, returning the bar and the price carried into the next bar.
func (p *SimulationProvider) syntheticBar(timestamp, openPrice int64) (types.Candle, int64) {
	volCents := float64(openPrice) * p.cfg.VolatilityBps / 10000.0
	moveUp := volCents * (0.5 + p.rng.Float64())
	moveDown := volCents * (0.5 + p.rng.Float64())
	drift := volCents * (p.rng.Float64() - 0.5)

	closePrice := openPrice + int64(drift)
	high := openPrice + int64(moveUp)
	low := openPrice - int64(moveDown)
	if closePrice > high {
		high = closePrice
	}
	if closePrice < low {
		low = closePrice
	}
	if low < 1 {
		low = 1
	}
	if high < low {
		high = low
	}
	if openPrice < low {
		low = openPrice
	}
	if openPrice > high {
		high = openPrice
	}
	if closePrice < 1 {
		closePrice = 1
	}

	volume := int64(1000 + p.rng.Float64()*4000)
	bar := types.NewCandle(timestamp, openPrice, high, low, closePrice, volume)
	bar.Completed = true
	return bar, closePrice
}

var _ Provider = (*SimulationProvider)(nil)

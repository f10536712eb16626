package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sessioncore/internal/logging"
	"sessioncore/internal/types"
)

// barFrame is the provider-agnostic JSON bar envelope the live feed is
// assumed to send, one frame per raw (possibly incomplete) bar. The
// concrete venue protocol is out of scope; any real adapter translates its
// own wire format into this envelope before handing it to LiveProvider.
type barFrame struct {
	Symbol    string `json:"symbol"`
	Timestamp int64  `json:"timestamp"`
	Open      int64  `json:"open"`
	High      int64  `json:"high"`
	Low       int64  `json:"low"`
	Close     int64  `json:"close"`
	Volume    int64  `json:"volume"`
	Completed bool   `json:"completed"`
}

// LiveProvider subscribes to bars over a websocket connection, reconnecting
// on drop per Config.ReconnectDelay/MaxRetries.
type LiveProvider struct {
	cfg    Config
	logger *logging.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	cancel    context.CancelFunc

	barCh chan types.Candle
	errCh chan ProviderError
}

// NewLiveProvider builds a LiveProvider against cfg.WSSURL.
func NewLiveProvider(cfg Config, logger *logging.Logger) *LiveProvider {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 200
	}
	if logger == nil {
		logger = logging.NewComponentLogger("marketdata")
	}
	return &LiveProvider{
		cfg:    cfg,
		logger: logger,
		barCh:  make(chan types.Candle, cfg.BufferSize),
		errCh:  make(chan ProviderError, 16),
	}
}

func (p *LiveProvider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return nil
	}

	u, err := url.Parse(p.cfg.WSSURL)
	if err != nil {
		return fmt.Errorf("marketdata: invalid ws_url: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("marketdata: dial: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.conn = conn
	p.cancel = cancel
	p.connected = true

	go p.readLoop(runCtx)
	go p.reconnectMonitor(runCtx)
	return nil
}

func (p *LiveProvider) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil
	}
	p.cancel()
	p.connected = false
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *LiveProvider) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *LiveProvider) ConnectionState() ConnectionState {
	if p.IsConnected() {
		return StateConnected
	}
	return StateDisconnected
}

func (p *LiveProvider) ResolveContract(symbol string) (ContractSpec, error) {
	return ContractSpec{Symbol: symbol, Exchange: "LIVE", TickSizeCents: 1}, nil
}

// GetHistoricalBars is not served over the subscription socket; a live
// deployment wires a separate REST-backed implementation of Provider for
// history and composes it with LiveProvider for the subscription half.
func (p *LiveProvider) GetHistoricalBars(_ context.Context, symbol string, startUTC, endUTC int64) ([]types.Candle, error) {
	return nil, fmt.Errorf("marketdata: LiveProvider does not serve historical bars")
}

func (p *LiveProvider) SubscribeBars(symbol string) (<-chan types.Candle, error) {
	if !p.IsConnected() {
		return nil, fmt.Errorf("marketdata: not connected")
	}
	sub := struct {
		Action string `json:"action"`
		Symbol string `json:"symbol"`
	}{Action: "subscribe", Symbol: symbol}
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("marketdata: no active connection")
	}
	if err := conn.WriteJSON(sub); err != nil {
		return nil, fmt.Errorf("marketdata: subscribe: %w", err)
	}
	return p.barCh, nil
}

func (p *LiveProvider) Errors() <-chan ProviderError {
	return p.errCh
}

func (p *LiveProvider) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.mu.RLock()
		conn := p.conn
		p.mu.RUnlock()
		if conn == nil {
			return
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			p.emitError("READ_ERROR", err.Error(), true)
			return
		}
		var frame barFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			p.emitError("DECODE_ERROR", err.Error(), true)
			continue
		}
		bar := types.Candle{
			Timestamp:      frame.Timestamp,
			Open:           frame.Open,
			High:           frame.High,
			Low:            frame.Low,
			Close:          frame.Close,
			Volume:         frame.Volume,
			Completed:      frame.Completed,
			BarSizeMinutes: types.BarSizeMinutes,
		}
		select {
		case p.barCh <- bar:
		case <-ctx.Done():
			return
		}
	}
}

// reconnectMonitor redials the feed up to MaxRetries times, waiting
// ReconnectDelay between attempts.
func (p *LiveProvider) reconnectMonitor(ctx context.Context) {
	attempts := 0
	ticker := time.NewTicker(p.cfg.ReconnectDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.IsConnected() || attempts >= p.cfg.MaxRetries {
				continue
			}
			attempts++
			p.logger.Warnf("marketdata: attempting reconnect (%d/%d)", attempts, p.cfg.MaxRetries)
			if err := p.Connect(ctx); err != nil {
				p.emitError("RECONNECT_FAILED", err.Error(), true)
				continue
			}
			attempts = 0
		}
	}
}

func (p *LiveProvider) emitError(code, message string, recoverable bool) {
	select {
	case p.errCh <- ProviderError{Code: code, Message: message, Timestamp: time.Now().UnixMilli(), Recoverable: recoverable}:
	default:
	}
}

var _ Provider = (*LiveProvider)(nil)

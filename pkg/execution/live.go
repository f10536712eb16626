package execution

import (
	"context"
	"fmt"
	"sync"

	"sessioncore/internal/logging"
)

// LiveProvider is a thin skeleton over a venue-specific REST/websocket
// order adapter. The concrete wire protocol is explicitly out of scope
// (the OrderExecutionProvider boundary is specified at interface level only);
// a real deployment plugs Submit/Cancel/Poll in for its venue.
type LiveProvider struct {
	cfg    Config
	logger *logging.Logger

	mu        sync.RWMutex
	connected bool

	fillCh chan Fill

	// Submit and Cancel are venue hooks a deployment wires in; a LiveProvider
	// with nil hooks rejects every order rather than silently no-opping.
	Submit func(ctx context.Context, req OrderRequest) (OrderResult, error)
	Cancel func(ctx context.Context, orderID string) error
	Poll   func(ctx context.Context) ([]OrderResult, error)
}

// NewLiveProvider builds a LiveProvider. Submit/Cancel/Poll must be set by
// the caller before Connect for the provider to do anything beyond
// reject every call.
func NewLiveProvider(cfg Config, logger *logging.Logger) *LiveProvider {
	if logger == nil {
		logger = logging.NewComponentLogger("execution")
	}
	return &LiveProvider{
		cfg:    cfg,
		logger: logger,
		fillCh: make(chan Fill, 64),
	}
}

func (p *LiveProvider) Connect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

func (p *LiveProvider) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func (p *LiveProvider) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *LiveProvider) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	if !p.IsConnected() {
		return OrderResult{}, fmt.Errorf("execution: not connected")
	}
	if p.Submit == nil {
		return OrderResult{}, fmt.Errorf("execution: LiveProvider has no Submit hook wired")
	}
	return p.Submit(ctx, req)
}

func (p *LiveProvider) CancelOrder(ctx context.Context, orderID string) error {
	if p.Cancel == nil {
		return fmt.Errorf("execution: LiveProvider has no Cancel hook wired")
	}
	return p.Cancel(ctx, orderID)
}

func (p *LiveProvider) GetOpenOrders(ctx context.Context) ([]OrderResult, error) {
	if p.Poll == nil {
		return nil, fmt.Errorf("execution: LiveProvider has no Poll hook wired")
	}
	return p.Poll(ctx)
}

// PublishFill lets a wired venue adapter push a fill it observed (e.g. from
// its own websocket fill stream) onto the common Fills channel.
func (p *LiveProvider) PublishFill(fill Fill) {
	select {
	case p.fillCh <- fill:
	default:
		p.logger.Warnf("execution: fill channel full, dropping fill for order %s", fill.OrderID)
	}
}

func (p *LiveProvider) Fills() <-chan Fill {
	return p.fillCh
}

var _ Provider = (*LiveProvider)(nil)

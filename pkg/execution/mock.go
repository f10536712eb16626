package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockProvider fills every order immediately at its requested price with
// zero commission. It is the reference Provider used by
// backtests and by the session runner's own tests.
type MockProvider struct {
	mu         sync.RWMutex
	connected  bool
	orders     map[string]OrderResult
	fillCh     chan Fill
	nextClock  func() int64
}

// NewMockProvider builds a MockProvider. clockNow supplies fill timestamps
// (typically the session's Clock.Now).
func NewMockProvider(clockNow func() int64) *MockProvider {
	if clockNow == nil {
		clockNow = func() int64 { return 0 }
	}
	return &MockProvider{
		orders:    make(map[string]OrderResult),
		fillCh:    make(chan Fill, 64),
		nextClock: clockNow,
	}
}

func (p *MockProvider) Connect(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	return nil
}

func (p *MockProvider) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func (p *MockProvider) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// PlaceOrder fills immediately at LimitPrice (LIMIT) or StopPrice (STOP);
// a MARKET order has no reference price to fill at here and is rejected —
// the strategy only ever submits LIMIT/STOP orders against its computed
// entry/stop/target levels.
func (p *MockProvider) PlaceOrder(_ context.Context, req OrderRequest) (OrderResult, error) {
	if !p.IsConnected() {
		return OrderResult{}, fmt.Errorf("execution: not connected")
	}

	var fillPrice int64
	switch req.OrderType {
	case OrderLimit:
		fillPrice = req.LimitPrice
	case OrderStop:
		fillPrice = req.StopPrice
	default:
		result := OrderResult{OrderID: uuid.NewString(), Status: OrderStatusRejected, Reason: "mock provider requires LIMIT or STOP orders"}
		return result, nil
	}
	if fillPrice <= 0 {
		result := OrderResult{OrderID: uuid.NewString(), Status: OrderStatusRejected, Reason: "missing reference price"}
		return result, nil
	}

	orderID := uuid.NewString()
	result := OrderResult{OrderID: orderID, Status: OrderStatusFilled}

	p.mu.Lock()
	p.orders[orderID] = result
	p.mu.Unlock()

	fill := Fill{
		OrderID:         orderID,
		FillPriceCents:  fillPrice,
		FilledQuantity:  req.Quantity,
		Timestamp:       p.nextClock(),
		CommissionCents: 0,
	}
	select {
	case p.fillCh <- fill:
	default:
	}

	return result, nil
}

func (p *MockProvider) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	result, ok := p.orders[orderID]
	if !ok {
		return fmt.Errorf("execution: unknown order %s", orderID)
	}
	if result.Status == OrderStatusFilled {
		return fmt.Errorf("execution: order %s already filled", orderID)
	}
	result.Status = OrderStatusCanceled
	p.orders[orderID] = result
	return nil
}

func (p *MockProvider) GetOpenOrders(_ context.Context) ([]OrderResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []OrderResult
	for _, o := range p.orders {
		if o.Status == OrderStatusPending {
			out = append(out, o)
		}
	}
	return out, nil
}

func (p *MockProvider) Fills() <-chan Fill {
	return p.fillCh
}

var _ Provider = (*MockProvider)(nil)

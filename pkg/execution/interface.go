// Package execution defines the OrderExecutionProvider boundary
// describes, with two implementations: MockProvider (fills immediately at
// the requested price, zero commission) and LiveProvider (a thin skeleton
// over a venue-specific adapter, out of scope for the concrete wire
// protocol).
package execution

import (
	"context"
	"time"

	"sessioncore/internal/types"
)

// OrderType enumerates the order types a Provider accepts. The session
// runner places a LIMIT order on entry and a STOP order on exit; MARKET
// exists for live adapters and is rejected by MockProvider.
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
	OrderStop   OrderType = "STOP"
)

// OrderStatus tracks an order's lifecycle at the provider.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// OrderRequest is the input to PlaceOrder.
type OrderRequest struct {
	Symbol     string           `json:"symbol"`
	Direction  types.Direction  `json:"direction"`
	Quantity   int64            `json:"quantity"`
	OrderType  OrderType        `json:"order_type"`
	LimitPrice int64            `json:"limit_price,omitempty"` // cents
	StopPrice  int64            `json:"stop_price,omitempty"`  // cents
}

// OrderResult is the return value of PlaceOrder.
type OrderResult struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
	Reason  string      `json:"reason,omitempty"`
}

// Fill describes one execution of an order, delivered on the Fills channel.
type Fill struct {
	OrderID        string `json:"order_id"`
	FillPriceCents int64  `json:"fill_price_cents"`
	FilledQuantity int64  `json:"filled_quantity"`
	Timestamp      int64  `json:"timestamp"`
	CommissionCents int64 `json:"commission_cents"`
}

// Provider is the OrderExecutionProvider boundary the session runner
// places trades through.
type Provider interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOpenOrders(ctx context.Context) ([]OrderResult, error)

	// Fills streams fills for the provider's lifetime.
	Fills() <-chan Fill

	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
}

// Config is shared configuration across Provider implementations.
type Config struct {
	ProviderType string        `json:"provider_type"` // "mock", "live"
	Commission   int64         `json:"commission_cents"`
	Timeout      time.Duration `json:"timeout"`
}

// Package marketdata defines the MarketDataProvider boundary
// and two implementations: a SimulationProvider for backtests/tests, and a
// websocket-backed skeleton for live bar subscription. The concrete wire
// protocol of any real venue is out of scope; the live provider's frame
// format is a provider-agnostic JSON bar envelope.
package marketdata

import (
	"context"
	"time"

	"sessioncore/internal/types"
)

// ConnectionState describes a streaming provider's connection lifecycle.
type ConnectionState string

const (
	StateConnected    ConnectionState = "CONNECTED"
	StateDisconnecting ConnectionState = "DISCONNECTING"
	StateReconnecting ConnectionState = "RECONNECTING"
	StateDisconnected ConnectionState = "DISCONNECTED"
)

// ContractSpec describes the tradable instrument a symbol resolves to.
type ContractSpec struct {
	Symbol       string `json:"symbol"`
	Exchange     string `json:"exchange"`
	TickSizeCents int64 `json:"tick_size_cents"`
}

// ProviderError is a transport-level error surfaced on the Errors channel.
type ProviderError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Timestamp   int64  `json:"timestamp"`
	Recoverable bool   `json:"recoverable"`
}

// Provider is the MarketDataProvider boundary the session runner consumes.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	ConnectionState() ConnectionState

	ResolveContract(symbol string) (ContractSpec, error)
	GetHistoricalBars(ctx context.Context, symbol string, startUTC, endUTC int64) ([]types.Candle, error)

	// SubscribeBars returns a channel of raw (possibly incomplete) bars for
	// symbol. The bar-completion buffer downstream decides finality.
	SubscribeBars(symbol string) (<-chan types.Candle, error)

	// Errors streams transport-level errors for the lifetime of the
	// provider; it is safe to range over even before Connect is called.
	Errors() <-chan ProviderError
}

// Config is the shared configuration every Provider implementation accepts.
type Config struct {
	ProviderType   string        `json:"provider_type"` // "simulation", "live"
	WSSURL         string        `json:"ws_url"`
	ReconnectDelay time.Duration `json:"reconnect_delay"`
	MaxRetries     int           `json:"max_retries"`
	BufferSize     int           `json:"buffer_size"`
}

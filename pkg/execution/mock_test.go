package execution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessioncore/internal/types"
)

func TestMockProviderFillsLimitOrderImmediately(t *testing.T) {
	p := NewMockProvider(func() int64 { return 1000 })
	ctx := context.Background()
	require.NoError(t, p.Connect(ctx))

	result, err := p.PlaceOrder(ctx, OrderRequest{
		Symbol:     "SPY",
		Direction:  types.DirectionLong,
		Quantity:   100,
		OrderType:  OrderLimit,
		LimitPrice: 17680,
	})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFilled, result.Status)

	select {
	case fill := <-p.Fills():
		assert.Equal(t, result.OrderID, fill.OrderID)
		assert.Equal(t, int64(17680), fill.FillPriceCents)
		assert.Equal(t, int64(0), fill.CommissionCents)
	default:
		t.Fatal("expected a fill to be published")
	}
}

func TestMockProviderRejectsMarketOrder(t *testing.T) {
	p := NewMockProvider(nil)
	ctx := context.Background()
	require.NoError(t, p.Connect(ctx))

	result, err := p.PlaceOrder(ctx, OrderRequest{Symbol: "SPY", OrderType: OrderMarket, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusRejected, result.Status)
}

func TestMockProviderRequiresConnection(t *testing.T) {
	p := NewMockProvider(nil)
	_, err := p.PlaceOrder(context.Background(), OrderRequest{OrderType: OrderLimit, LimitPrice: 100})
	assert.Error(t, err)
}

func TestMockProviderCancelOrder(t *testing.T) {
	p := NewMockProvider(nil)
	ctx := context.Background()
	require.NoError(t, p.Connect(ctx))

	result, err := p.PlaceOrder(ctx, OrderRequest{OrderType: OrderLimit, LimitPrice: 100, Quantity: 1})
	require.NoError(t, err)
	// already filled, cancel must fail
	err = p.CancelOrder(ctx, result.OrderID)
	assert.Error(t, err)

	err = p.CancelOrder(ctx, "nonexistent")
	assert.Error(t, err)
}

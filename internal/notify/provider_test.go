package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProviderRecordsNotifications(t *testing.T) {
	p := NewMemoryProvider()
	ctx := context.Background()

	require.NoError(t, p.Notify(ctx, Notification{Type: EventZoneDefined, Symbol: "SPY", Timestamp: 1000, Message: "zone defined"}))
	require.NoError(t, p.Notify(ctx, Notification{Type: EventStopHit, Symbol: "SPY", Timestamp: 2000, Message: "stop hit"}))

	require.Len(t, p.Notifications, 2)
	assert.Equal(t, EventZoneDefined, p.Notifications[0].Type)
	assert.Equal(t, EventStopHit, p.Notifications[1].Type)
}

func TestLoggingProviderDoesNotError(t *testing.T) {
	p := NewLoggingProvider(nil)
	err := p.Notify(context.Background(), Notification{
		Type:      EventSessionError,
		Symbol:    "SPY",
		Timestamp: 1000,
		Message:   "strategy invariant violated",
		Data:      map[string]interface{}{"reason": "rvalue_zero"},
	})
	assert.NoError(t, err)
}

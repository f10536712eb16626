// Package notify defines the NotificationProvider boundary
// describes and an in-memory/logging reference implementation. No channel
// (email, webhook, chat) is wired here: that belongs to a deployment's own
// glue code, not to this core.
package notify

import (
	"context"

	"sessioncore/internal/logging"
)

// EventType classifies a Notification.
type EventType string

const (
	EventZoneDefined   EventType = "ZONE_DEFINED"
	EventBreakDetected EventType = "BREAK_DETECTED"
	EventEntrySignal   EventType = "ENTRY_SIGNAL"
	EventStopHit       EventType = "STOP_HIT"
	EventTargetHit     EventType = "TARGET_HIT"
	EventSessionError  EventType = "SESSION_ERROR"
)

// Notification is the payload passed to Provider.Notify.
type Notification struct {
	Type      EventType
	Symbol    string
	Timestamp int64
	Message   string
	Data      map[string]interface{}
}

// Provider is the notification boundary a SessionRunner emits through.
type Provider interface {
	Notify(ctx context.Context, n Notification) error
}

// LoggingProvider routes notifications through internal/logging instead of
// an external channel — the reference implementation used by tests and by
// any deployment that hasn't wired a real channel yet.
type LoggingProvider struct {
	logger *logging.Logger
}

// NewLoggingProvider builds a LoggingProvider. A nil logger falls back to
// the package-level global logger.
func NewLoggingProvider(logger *logging.Logger) *LoggingProvider {
	if logger == nil {
		logger = logging.NewComponentLogger("notify")
	}
	return &LoggingProvider{logger: logger}
}

func (p *LoggingProvider) Notify(_ context.Context, n Notification) error {
	fields := map[string]interface{}{
		"event":     string(n.Type),
		"symbol":    n.Symbol,
		"timestamp": n.Timestamp,
	}
	for k, v := range n.Data {
		fields[k] = v
	}
	entry := p.logger.WithFields(fields)
	if n.Type == EventSessionError {
		entry.Error(n.Message)
	} else {
		entry.Info(n.Message)
	}
	return nil
}

// MemoryProvider records every notification it receives, for tests that
// assert on what the runner emitted.
type MemoryProvider struct {
	Notifications []Notification
}

// NewMemoryProvider builds an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

func (p *MemoryProvider) Notify(_ context.Context, n Notification) error {
	p.Notifications = append(p.Notifications, n)
	return nil
}

var (
	_ Provider = (*LoggingProvider)(nil)
	_ Provider = (*MemoryProvider)(nil)
)

package strategy

import "sessioncore/internal/types"

// EventType distinguishes the three event kinds the machine accepts.
type EventType string

const (
	EventBarCompleted    EventType = "BAR_COMPLETED"
	EventSessionEnd      EventType = "SESSION_END"
	EventZoneBuildTimeout EventType = "ZONE_BUILD_TIMEOUT"
)

// Event is the machine's single input type. Bar is set only for
// BAR_COMPLETED; Timestamp is set for every type (the bar's own timestamp
// for BAR_COMPLETED).
type Event struct {
	Type      EventType
	Bar       types.Candle
	Timestamp int64
}

func BarCompleted(bar types.Candle) Event {
	return Event{Type: EventBarCompleted, Bar: bar, Timestamp: bar.Timestamp}
}

func SessionEnd(timestamp int64) Event {
	return Event{Type: EventSessionEnd, Timestamp: timestamp}
}

func ZoneBuildTimeout(timestamp int64) Event {
	return Event{Type: EventZoneBuildTimeout, Timestamp: timestamp}
}

// Package bars turns a stream of repeatedly-updated in-progress bars into a
// sequence of immutable completed bars, and validates the OHLC invariants
// on the way out.
package bars

import (
	"fmt"

	"sessioncore/internal/types"
)

// CompletionBuffer holds at most one candidate bar and emits it as
// completed only once a later-timestamped bar proves it is done. The
// upstream stream never signals bar-close directly: arrival of a later
// timestamp is the only reliable completion signal.
type CompletionBuffer struct {
	candidate *types.Candle
}

func NewCompletionBuffer() *CompletionBuffer {
	return &CompletionBuffer{}
}

// Ingest accepts one raw bar and returns the completed bar it unblocked, if
// any. ok is false when nothing was emitted (buffer was empty, the bar
// replaced the held candidate, or the bar was rejected as out-of-order).
func (b *CompletionBuffer) Ingest(raw types.Candle) (completed types.Candle, ok bool, err error) {
	if b.candidate == nil {
		c := raw
		c.Completed = false
		b.candidate = &c
		return types.Candle{}, false, nil
	}

	switch {
	case raw.Timestamp == b.candidate.Timestamp:
		c := raw
		c.Completed = false
		b.candidate = &c
		return types.Candle{}, false, nil

	case raw.Timestamp > b.candidate.Timestamp:
		out := *b.candidate
		out.Completed = true
		next := raw
		next.Completed = false
		b.candidate = &next
		return out, true, nil

	default:
		return types.Candle{}, false, fmt.Errorf("out-of-order bar: incoming timestamp %d < buffered %d", raw.Timestamp, b.candidate.Timestamp)
	}
}

// Flush emits the buffered bar (if any) as completed, for session-end.
func (b *CompletionBuffer) Flush() (types.Candle, bool) {
	if b.candidate == nil {
		return types.Candle{}, false
	}
	out := *b.candidate
	out.Completed = true
	b.candidate = nil
	return out, true
}

// Reset discards the held candidate without emitting it.
func (b *CompletionBuffer) Reset() {
	b.candidate = nil
}

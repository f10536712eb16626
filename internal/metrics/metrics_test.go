package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordersDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordSessionStarted("SPY")
		RecordSessionFinished("SPY", "COMPLETE")
		RecordZoneFormed("SPY", "DEFINED")
		RecordSignal("SPY", "BREAK", "LONG")
		RecordTradeOpened("SPY", "LONG")
		RecordTradeClosed("SPY", "WIN_3R", 3.0)
		RecordPacingWait("SPY", 0.25)
	})
}

func TestInitRegistersCollectors(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
	})
}

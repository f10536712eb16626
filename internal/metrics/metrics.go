// Package metrics instruments session lifecycle, trade outcomes, and
// pacing waits with prometheus counters/histograms/gauges, grounded on the
// pack's promauto-based registration style. It never serves an HTTP
// endpoint itself; the entrypoint decides whether and how to expose
// Registry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is the custom prometheus registry for sessioncore metrics.
	Registry = prometheus.NewRegistry()

	mu sync.RWMutex

	// SessionsStarted counts sessions entering WAITING per symbol.
	SessionsStarted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessioncore",
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Total number of sessions started",
		},
		[]string{"symbol"},
	)

	// SessionsFinished counts sessions reaching a terminal status.
	SessionsFinished = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessioncore",
			Subsystem: "session",
			Name:      "finished_total",
			Help:      "Total number of sessions reaching a terminal status",
		},
		[]string{"symbol", "status"}, // status: NO_TRADE, COMPLETE, INTERRUPTED, ERROR
	)

	// ZonesFormed counts decision zones by their resulting status.
	ZonesFormed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessioncore",
			Subsystem: "zone",
			Name:      "formed_total",
			Help:      "Total number of decision zones formed, by status",
		},
		[]string{"symbol", "status"}, // status: DEFINED, CHOPPY, DEGENERATE
	)

	// SignalsEmitted counts strategy signals by type and direction.
	SignalsEmitted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessioncore",
			Subsystem: "strategy",
			Name:      "signals_total",
			Help:      "Total number of strategy signals emitted",
		},
		[]string{"symbol", "type", "direction"},
	)

	// TradesOpened counts trade entries by direction.
	TradesOpened = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessioncore",
			Subsystem: "trade",
			Name:      "opened_total",
			Help:      "Total number of trades opened",
		},
		[]string{"symbol", "direction"},
	)

	// TradesClosed counts trade exits by result.
	TradesClosed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessioncore",
			Subsystem: "trade",
			Name:      "closed_total",
			Help:      "Total number of trades closed, by result",
		},
		[]string{"symbol", "result"}, // result: WIN_3R, WIN_2R, BREAKEVEN_STOP, LOSS, SESSION_TIMEOUT
	)

	// TradeRealizedR observes the realized R-multiple of each closed trade.
	TradeRealizedR = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sessioncore",
			Subsystem: "trade",
			Name:      "realized_r",
			Help:      "Realized R-multiple of closed trades",
			Buckets:   []float64{-1, -0.5, 0, 0.5, 1, 1.5, 2, 2.5, 3},
		},
		[]string{"symbol"},
	)

	// PacingWaitSeconds observes admission delay incurred by the pacing
	// manager, by contract. It does not say which tier caused the wait.
	PacingWaitSeconds = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sessioncore",
			Subsystem: "pacing",
			Name:      "wait_seconds",
			Help:      "Admission wait incurred before a provider call proceeded",
			Buckets:   []float64{0, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"contract_id"},
	)

	// PacingRequestsAdmitted counts admitted provider-call requests.
	PacingRequestsAdmitted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessioncore",
			Subsystem: "pacing",
			Name:      "requests_admitted_total",
			Help:      "Total number of provider-call requests admitted",
		},
		[]string{"contract_id"},
	)
)

// RecordSessionStarted increments SessionsStarted for symbol.
func RecordSessionStarted(symbol string) {
	SessionsStarted.WithLabelValues(symbol).Inc()
}

// RecordSessionFinished increments SessionsFinished for symbol/status.
func RecordSessionFinished(symbol, status string) {
	SessionsFinished.WithLabelValues(symbol, status).Inc()
}

// RecordZoneFormed increments ZonesFormed for symbol/status.
func RecordZoneFormed(symbol, status string) {
	ZonesFormed.WithLabelValues(symbol, status).Inc()
}

// RecordSignal increments SignalsEmitted for symbol/type/direction.
func RecordSignal(symbol, signalType, direction string) {
	SignalsEmitted.WithLabelValues(symbol, signalType, direction).Inc()
}

// RecordTradeOpened increments TradesOpened for symbol/direction.
func RecordTradeOpened(symbol, direction string) {
	TradesOpened.WithLabelValues(symbol, direction).Inc()
}

// RecordTradeClosed increments TradesClosed and observes realized R.
func RecordTradeClosed(symbol, result string, realizedR float64) {
	mu.Lock()
	defer mu.Unlock()
	TradesClosed.WithLabelValues(symbol, result).Inc()
	TradeRealizedR.WithLabelValues(symbol).Observe(realizedR)
}

// RecordPacingWait observes a pacing admission delay.
func RecordPacingWait(contractID string, waitSeconds float64) {
	PacingWaitSeconds.WithLabelValues(contractID).Observe(waitSeconds)
	PacingRequestsAdmitted.WithLabelValues(contractID).Inc()
}

// Init registers the standard go/process collectors alongside the domain
// metrics declared above.
func Init() {
	Registry.MustRegister(prometheus.NewGoCollector())
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}

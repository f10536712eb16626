// Package runner drives one session end to end: it waits for the zone
// window, pulls bars through the completion buffer and validator, feeds
// the strategy state machine, persists the result, and notifies on
// terminal events. It is the single place that owns the machine's
// suspension points: pacing waits, wall-clock waits, and the
// live-bar subscription await.
package runner

import (
	"context"
	"fmt"

	"sessioncore/internal/bars"
	"sessioncore/internal/clock"
	"sessioncore/internal/diagnostics"
	"sessioncore/internal/logging"
	"sessioncore/internal/metrics"
	"sessioncore/internal/notify"
	"sessioncore/internal/pacing"
	"sessioncore/internal/storage"
	"sessioncore/internal/strategy"
	"sessioncore/internal/types"
	"sessioncore/pkg/execution"
	"sessioncore/pkg/marketdata"
)

// Config wires every collaborator a session needs. MarketData is the only
// required field beyond the primitives; Storage/Notify/Execution default to
// in-memory/mock reference implementations when nil so a runner is usable
// in tests without standing up infrastructure.
type Config struct {
	Symbol        string
	Date          string // YYYY-MM-DD, America/New_York; defaults to clock.DateET(clock.Now())
	ExecutionMode types.ExecutionMode
	Preset        clock.WindowPreset
	Calendar      clock.HolidayCalendar
	StrategyCfg   strategy.MachineConfig
	PacingCfg     pacing.Config

	Clock      clock.Clock
	MarketData marketdata.Provider
	Execution  execution.Provider
	Storage    storage.Provider
	Notify     notify.Provider
	Logger     *logging.Logger

	PremarketPrice int64
}

// Runner drives a single SessionContext through its full lifecycle.
type Runner struct {
	cfg       Config
	clock     clock.Clock
	md        marketdata.Provider
	execution execution.Provider
	storage   storage.Provider
	notify    notify.Provider
	logger    *logging.Logger

	pacer   *pacing.Manager
	buffer  *bars.CompletionBuffer
	val     *bars.Validator
	machine *strategy.Machine
	session *types.SessionContext
	window  clock.SessionWindow

	stopped bool
}

// New builds a Runner, computing the session window and defaulting any
// unset collaborators to their in-memory reference implementation.
func New(cfg Config) (*Runner, error) {
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("runner: Symbol is required")
	}
	if cfg.MarketData == nil {
		return nil, fmt.Errorf("runner: MarketData provider is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewRealClock()
	}
	if cfg.Preset == (clock.WindowPreset{}) {
		cfg.Preset = clock.DefaultPreset
	}
	if cfg.Calendar == nil {
		cfg.Calendar = clock.NewStaticHolidayCalendar(nil, nil)
	}
	if cfg.Storage == nil {
		cfg.Storage = storage.NewMemoryProvider()
	}
	if cfg.Notify == nil {
		cfg.Notify = notify.NewMemoryProvider()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.CreateRunnerLogger()
	}
	if cfg.Date == "" {
		cfg.Date = clock.DateET(cfg.Clock.Now())
	}
	if cfg.Execution == nil {
		cfg.Execution = execution.NewMockProvider(cfg.Clock.Now)
	}
	if err := cfg.Execution.Connect(context.Background()); err != nil {
		return nil, fmt.Errorf("runner: connect execution provider: %w", err)
	}

	window, err := clock.ComputeWindow(cfg.Date, cfg.Preset, cfg.Calendar)
	if err != nil {
		return nil, fmt.Errorf("runner: compute window: %w", err)
	}

	session := types.NewSessionContext(cfg.Date, cfg.Symbol, cfg.ExecutionMode, cfg.Clock.Now())
	machine := strategy.NewMachine(cfg.StrategyCfg, window, cfg.PremarketPrice, session, logging.CreateStrategyLogger())

	return &Runner{
		cfg:       cfg,
		clock:     cfg.Clock,
		md:        cfg.MarketData,
		execution: cfg.Execution,
		storage:   cfg.Storage,
		notify:    cfg.Notify,
		logger:    cfg.Logger,
		pacer:     pacing.NewManager(cfg.PacingCfg, cfg.Clock),
		buffer:    bars.NewCompletionBuffer(),
		val:       bars.NewValidator(),
		machine:   machine,
		session:   session,
		window:    window,
	}, nil
}

// Session returns the runner's SessionContext. Safe to read at any point;
// it is only ever appended to, never replaced.
func (r *Runner) Session() *types.SessionContext { return r.session }

// Stop requests cooperative cancellation: the session's status becomes
// INTERRUPTED on the next event boundary, and no further bars are fed to
// the machine.
func (r *Runner) Stop() { r.stopped = true }

// Run drives the session to completion, pulling bars from MarketData until
// the machine reaches a terminal state or the execution window ends.
// bars are validated through the completion buffer before reaching the
// strategy; VALIDATION errors drop the offending bar and continue.
func (r *Runner) Run(ctx context.Context) error {
	metrics.RecordSessionStarted(r.session.Symbol)

	if err := r.waitForZoneStart(ctx); err != nil {
		return r.fail(err)
	}

	rawCh, err := r.md.SubscribeBars(r.session.Symbol)
	if err != nil {
		return r.fail(types.NewSessionError(types.ErrProviderFatal, "runner.SubscribeBars", err))
	}

	for {
		if r.stopped {
			r.session.Status = types.SessionInterrupted
			break
		}
		if r.machine.State() == strategy.StateComplete || r.machine.State() == strategy.StateError {
			break
		}

		select {
		case <-ctx.Done():
			return r.fail(types.NewSessionError(types.ErrProviderRecoverable, "runner.Run", ctx.Err()))
		case raw, ok := <-rawCh:
			if !ok {
				r.dispatch(strategy.SessionEnd(r.clock.Now()))
				continue
			}
			if raw.Timestamp >= r.window.ExecutionEndUTC {
				r.dispatch(strategy.SessionEnd(raw.Timestamp))
				continue
			}
			r.ingest(raw)
		}
	}

	return r.finish(ctx)
}

func (r *Runner) ingest(raw types.Candle) {
	completed, ok, err := r.buffer.Ingest(raw)
	if err != nil {
		r.logger.LogError("bars.Ingest", err, map[string]interface{}{"symbol": r.session.Symbol})
		return
	}
	if !ok {
		return
	}
	r.dispatchCompleted(completed)
}

// flushBuffer drains the one candidate bar the completion buffer is still
// holding. Called at session end, since no later bar will ever arrive to
// prove it complete otherwise.
func (r *Runner) flushBuffer() {
	if completed, ok := r.buffer.Flush(); ok {
		r.dispatchCompleted(completed)
	}
}

func (r *Runner) dispatchCompleted(completed types.Candle) {
	if err := r.val.Validate(completed); err != nil {
		r.logger.LogError("bars.Validate", err, map[string]interface{}{"symbol": r.session.Symbol})
		return
	}
	r.dispatch(strategy.BarCompleted(completed))
}

// dispatch is the single place that feeds the machine an event and reacts
// to what changed in the SessionContext as a result: a new/changed zone, new
// signals, a freshly opened trade (placed through Execution), or a freshly
// closed trade (closed through Execution). The machine itself never calls
// Execution, Notify, Storage, or Metrics directly.
func (r *Runner) dispatch(ev strategy.Event) {
	prevZoneStatus := ""
	if r.session.Zone != nil {
		prevZoneStatus = string(r.session.Zone.Status)
	}
	prevSignalCount := len(r.session.Signals)
	prevTradeCount := len(r.session.Trades)
	tradeWasOpen := r.session.HasTrade() && r.session.CurrentTrade().Status == types.TradeOpen

	r.machine.Dispatch(ev)

	if r.session.Zone != nil && string(r.session.Zone.Status) != prevZoneStatus {
		metrics.RecordZoneFormed(r.session.Symbol, string(r.session.Zone.Status))
		r.logger.LogZone(r.session.Symbol, string(r.session.Zone.Status), r.session.Zone.Support, r.session.Zone.Resistance)
		r.emitNotification(notify.EventZoneDefined, ev.Timestamp, "zone evaluated", map[string]interface{}{"status": string(r.session.Zone.Status)})
	}
	for _, sig := range r.session.Signals[prevSignalCount:] {
		r.reportSignal(sig)
	}
	if len(r.session.Trades) > prevTradeCount {
		r.placeEntryOrder(r.session.CurrentTrade())
	}
	if trade := r.session.CurrentTrade(); tradeWasOpen && trade.Status == types.TradeClosed && len(r.session.Outcomes) > 0 {
		r.placeExitOrder(r.session.Outcomes[len(r.session.Outcomes)-1])
	}
}

// placeEntryOrder submits the confirmed trade's entry as a LIMIT order at
// the machine's computed trigger price and takes the provider's fill as the
// trade's real entry price, overwriting the machine's computed R levels.
func (r *Runner) placeEntryOrder(trade *types.Trade) {
	if trade == nil {
		return
	}
	req := execution.OrderRequest{
		Symbol:     r.session.Symbol,
		Direction:  trade.Direction,
		Quantity:   1,
		OrderType:  execution.OrderLimit,
		LimitPrice: trade.EntryPrice,
	}
	result, err := r.execution.PlaceOrder(context.Background(), req)
	if err != nil {
		r.logger.LogError("execution.PlaceOrder", err, map[string]interface{}{"symbol": r.session.Symbol, "trade_id": trade.ID})
		return
	}
	if result.Status != execution.OrderStatusFilled {
		r.logger.LogError("execution.PlaceOrder", fmt.Errorf("entry order not filled: %s", result.Reason), map[string]interface{}{"trade_id": trade.ID})
		return
	}
	if fill, ok := r.awaitFill(result.OrderID); ok {
		if err := r.machine.ApplyEntryFill(fill.FillPriceCents); err != nil {
			r.logger.LogError("strategy.ApplyEntryFill", err, map[string]interface{}{"trade_id": trade.ID})
		}
	}
}

// placeExitOrder submits the trade's close as the opposite-direction order
// at the machine's computed exit price (stop or target) and takes the
// provider's fill as the outcome's real exit price.
func (r *Runner) placeExitOrder(outcome types.TradeOutcome) {
	trade := r.session.CurrentTrade()
	if trade == nil || trade.ID != outcome.TradeID {
		return
	}
	req := execution.OrderRequest{
		Symbol:    r.session.Symbol,
		Direction: trade.Direction.Opposite(),
		Quantity:  1,
		OrderType: execution.OrderStop,
		StopPrice: outcome.ExitPrice,
	}
	result, err := r.execution.PlaceOrder(context.Background(), req)
	if err != nil {
		r.logger.LogError("execution.PlaceOrder", err, map[string]interface{}{"trade_id": outcome.TradeID})
		return
	}
	if result.Status != execution.OrderStatusFilled {
		r.logger.LogError("execution.PlaceOrder", fmt.Errorf("exit order not filled: %s", result.Reason), map[string]interface{}{"trade_id": outcome.TradeID})
		return
	}
	if fill, ok := r.awaitFill(result.OrderID); ok {
		if err := r.machine.ApplyExitFill(outcome.TradeID, fill.FillPriceCents); err != nil {
			r.logger.LogError("strategy.ApplyExitFill", err, map[string]interface{}{"trade_id": outcome.TradeID})
		}
	}
}

// awaitFill reads the fill matching orderID. MockProvider queues its fill
// synchronously inside PlaceOrder, so a non-blocking read is sufficient once
// PlaceOrder has returned FILLED; a LiveProvider adapter that fills
// asynchronously would need its own correlation, out of scope here.
func (r *Runner) awaitFill(orderID string) (execution.Fill, bool) {
	select {
	case fill := <-r.execution.Fills():
		return fill, fill.OrderID == orderID
	default:
		return execution.Fill{}, false
	}
}

func (r *Runner) reportSignal(sig types.Signal) {
	metrics.RecordSignal(r.session.Symbol, string(sig.Type), string(sig.Direction))
	r.logger.LogSignal(r.session.Symbol, string(sig.Type), string(sig.Direction), sig.Price, sig.AttemptNumber)

	switch sig.Type {
	case types.SignalBreak:
		r.emitNotification(notify.EventBreakDetected, sig.Timestamp, "break detected", map[string]interface{}{"direction": string(sig.Direction)})
	case types.SignalConfirmation, types.SignalRetestAndConfirm:
		r.emitNotification(notify.EventEntrySignal, sig.Timestamp, "entry confirmed", map[string]interface{}{"direction": string(sig.Direction)})
		if trade := r.session.CurrentTrade(); trade != nil {
			metrics.RecordTradeOpened(r.session.Symbol, string(trade.Direction))
		}
	}
}

func (r *Runner) waitForZoneStart(ctx context.Context) error {
	return r.clock.WaitUntil(ctx, r.window.ZoneStartUTC)
}

// RunBacktest replays one session from historical bars instead of a live
// subscription, admitting the fetch through the pacing manager exactly as
// a live historical backfill would. Bars are fed through
// the same completion buffer, validator, and machine as Run.
func (r *Runner) RunBacktest(ctx context.Context) error {
	metrics.RecordSessionStarted(r.session.Symbol)

	requestKey := fmt.Sprintf("%s|%s|backtest", r.session.Symbol, r.session.Date)
	waitMs, err := r.pacer.AcquireSlot(ctx, r.session.Symbol, requestKey)
	if waitMs > 0 {
		r.logger.LogPacingWait(r.session.Symbol, waitMs)
	}
	if err != nil {
		return r.fail(types.NewSessionError(types.ErrPacingExhausted, "runner.AcquireSlot", err))
	}
	metrics.RecordPacingWait(r.session.Symbol, float64(waitMs)/1000.0)

	history, err := r.md.GetHistoricalBars(ctx, r.session.Symbol, r.window.ZoneStartUTC, r.window.ExecutionEndUTC)
	if err != nil {
		return r.fail(types.NewSessionError(types.ErrProviderFatal, "runner.GetHistoricalBars", err))
	}

	for _, raw := range history {
		if r.stopped {
			r.session.Status = types.SessionInterrupted
			break
		}
		if r.machine.State() == strategy.StateComplete || r.machine.State() == strategy.StateError {
			break
		}
		if raw.Timestamp >= r.window.ExecutionEndUTC {
			r.dispatch(strategy.SessionEnd(raw.Timestamp))
			break
		}
		r.ingest(raw)
	}

	return r.finish(ctx)
}

func (r *Runner) finish(ctx context.Context) error {
	if r.session.Status != types.SessionInterrupted && r.machine.State() != strategy.StateComplete && r.machine.State() != strategy.StateError {
		r.flushBuffer()
	}
	if r.session.Status == "" || r.session.Status == types.SessionWaiting || r.session.Status == types.SessionBuildingZone || r.session.Status == types.SessionMonitoring {
		r.dispatch(strategy.SessionEnd(r.clock.Now()))
	}
	r.session.EndedAt = r.clock.Now()

	for _, outcome := range r.session.Outcomes {
		r.reportOutcome(outcome)
	}
	if snap, ok := diagnostics.Snapshot(r.session.Symbol, r.session.AllBars, r.session.Zone, diagnostics.DefaultATRPeriod); ok {
		r.logger.WithFields(map[string]interface{}{
			"event":      "volatility_snapshot",
			"latest_atr": snap.LatestATR,
		}).Debug("session volatility snapshot")
	}

	metrics.RecordSessionFinished(r.session.Symbol, string(r.session.Status))

	if err := r.storage.SaveSession(ctx, r.session); err != nil {
		return types.NewSessionError(types.ErrStorage, "runner.SaveSession", err)
	}
	return nil
}

func (r *Runner) reportOutcome(outcome types.TradeOutcome) {
	r.logger.LogTradeExit(r.session.Symbol, string(outcome.Result), outcome.RealizedR, outcome.BarsHeld)
	metrics.RecordTradeClosed(r.session.Symbol, string(outcome.Result), outcome.RealizedR)

	eventType := notify.EventTargetHit
	if outcome.Result == types.ResultLoss || outcome.Result == types.ResultBreakevenStop {
		eventType = notify.EventStopHit
	}
	r.emitNotification(eventType, outcome.ExitTimestamp, fmt.Sprintf("trade closed: %s", outcome.Result), map[string]interface{}{"realized_r": outcome.RealizedR})
}

func (r *Runner) emitNotification(eventType notify.EventType, timestamp int64, message string, data map[string]interface{}) {
	n := notify.Notification{Type: eventType, Symbol: r.session.Symbol, Timestamp: timestamp, Message: message, Data: data}
	if err := r.notify.Notify(context.Background(), n); err != nil {
		r.logger.LogError("notify.Notify", err, map[string]interface{}{"symbol": r.session.Symbol})
	}
}

func (r *Runner) fail(err error) error {
	r.session.Status = types.SessionError
	if se, ok := err.(*types.SessionError); ok {
		r.session.Error = se.Error()
	} else {
		r.session.Error = err.Error()
	}
	r.emitNotification(notify.EventSessionError, r.clock.Now(), r.session.Error, nil)
	metrics.RecordSessionFinished(r.session.Symbol, string(r.session.Status))
	return err
}

// Package strategy implements the deterministic morning-session state
// machine: zone formation, break/retest/confirmation detection, trade entry,
// and R-multiple based trade management.
package strategy

import (
	"sessioncore/internal/clock"
	"sessioncore/internal/logging"
	"sessioncore/internal/risk"
	"sessioncore/internal/types"
)

// State is one node of the strategy state machine.
type State string

const (
	StateWaiting               State = "WAITING"
	StateBuildingZone          State = "BUILDING_ZONE"
	StateMonitoring            State = "MONITORING"
	StateAwaitingRetest        State = "AWAITING_RETEST"
	StateAwaitingConfirmation  State = "AWAITING_CONFIRMATION"
	StateInTrade               State = "IN_TRADE"
	StateComplete              State = "COMPLETE"
	StateError                 State = "ERROR"
)

// validTransitions documents the machine's legal edges, mirroring the
// teacher's mode-transition table. Direction-qualified states
// (AWAITING_RETEST/AWAITING_CONFIRMATION/IN_TRADE) collapse to their base
// name here; the active Direction is tracked separately on the machine.
var validTransitions = map[State][]State{
	StateWaiting:              {StateBuildingZone, StateComplete, StateError},
	StateBuildingZone:         {StateMonitoring, StateComplete, StateError},
	StateMonitoring:           {StateAwaitingRetest, StateComplete, StateError},
	StateAwaitingRetest:       {StateAwaitingConfirmation, StateInTrade, StateMonitoring, StateAwaitingRetest, StateComplete, StateError},
	StateAwaitingConfirmation: {StateInTrade, StateMonitoring, StateAwaitingRetest, StateComplete, StateError},
	StateInTrade:              {StateComplete, StateError},
	StateComplete:             {},
	StateError:                {},
}

// Machine is the single driver of one session's strategy lifecycle. It is
// not safe for concurrent use: the session runner dispatches events
// synchronously, one at a time.
type Machine struct {
	cfg     MachineConfig
	window  clock.SessionWindow
	logger  *logging.Logger
	session *types.SessionContext

	state State

	// Only meaningful while state is AWAITING_RETEST/AWAITING_CONFIRMATION/IN_TRADE.
	pendingDirection types.Direction
	breakBar         *types.Candle
	retestBar        *types.Candle

	zoneBars       []types.Candle
	premarketPrice int64

	lastBar types.Candle
}

// NewMachine builds a fresh machine in WAITING for the given session.
func NewMachine(cfg MachineConfig, window clock.SessionWindow, premarketPrice int64, session *types.SessionContext, logger *logging.Logger) *Machine {
	return &Machine{
		cfg:            withDefaults(cfg),
		window:         window,
		logger:         logger,
		session:        session,
		state:          StateWaiting,
		premarketPrice: premarketPrice,
	}
}

func (m *Machine) State() State { return m.state }

func (m *Machine) transitionTo(next State) {
	allowed := validTransitions[m.state]
	ok := next == m.state
	for _, s := range allowed {
		if s == next {
			ok = true
			break
		}
	}
	if !ok && m.logger != nil {
		m.logger.Warnf("strategy: unexpected transition %s -> %s", m.state, next)
	}
	m.state = next
	m.session.Status = m.sessionStatus()
}

func (m *Machine) sessionStatus() types.SessionStatus {
	switch m.state {
	case StateWaiting:
		return types.SessionWaiting
	case StateBuildingZone:
		return types.SessionBuildingZone
	case StateMonitoring, StateAwaitingRetest, StateAwaitingConfirmation, StateInTrade:
		return types.SessionMonitoring
	case StateComplete:
		if m.session.HasTrade() {
			return types.SessionComplete
		}
		return types.SessionNoTrade
	case StateError:
		return types.SessionError
	default:
		return m.session.Status
	}
}

// Dispatch processes one event to completion before returning. It is the
// machine's only entry point.
func (m *Machine) Dispatch(ev Event) {
	if m.state == StateComplete || m.state == StateError {
		return
	}

	switch ev.Type {
	case EventSessionEnd:
		m.handleSessionEnd(ev.Timestamp)
		return
	case EventZoneBuildTimeout:
		if m.state == StateWaiting || m.state == StateBuildingZone {
			m.finishNoTrade()
		}
		return
	}

	bar := ev.Bar
	m.lastBar = bar
	m.session.AllBars = append(m.session.AllBars, bar)

	switch m.state {
	case StateWaiting:
		if bar.Timestamp >= m.window.ZoneStartUTC {
			m.transitionTo(StateBuildingZone)
			m.zoneBars = nil
			m.accumulateZoneBar(bar)
		}
	case StateBuildingZone:
		m.accumulateZoneBar(bar)
	case StateMonitoring:
		m.handleMonitoring(bar)
	case StateAwaitingRetest:
		m.handleAwaitingRetest(bar)
	case StateAwaitingConfirmation:
		m.handleAwaitingConfirmation(bar)
	case StateInTrade:
		m.handleInTrade(bar)
	}
}

func (m *Machine) accumulateZoneBar(bar types.Candle) {
	m.zoneBars = append(m.zoneBars, bar)
	if len(m.zoneBars) < m.cfg.ZoneBuildBars {
		return
	}
	zone := evaluateZone(m.zoneBars, m.cfg, bar.Timestamp, m.premarketPrice)
	m.session.Zone = &zone
	if zone.IsTradable() {
		m.transitionTo(StateMonitoring)
	} else {
		m.finishNoTrade()
	}
}

func (m *Machine) finishNoTrade() {
	m.transitionTo(StateComplete)
}

// --- MONITORING: break detection ---

func (m *Machine) handleMonitoring(bar types.Candle) {
	dir, ok := m.detectBreak(bar)
	if !ok {
		return
	}
	m.startAttempt(dir, bar)
}

// detectBreak applies the long/short break predicates and the engulfing
// tie-break rule (close vs open decides direction; equal close/open means
// no break this bar).
func (m *Machine) detectBreak(bar types.Candle) (types.Direction, bool) {
	zone := m.session.Zone
	longBreak := bar.Close > zone.Resistance
	shortBreak := bar.Close < zone.Support

	switch {
	case longBreak && shortBreak:
		if bar.Close > bar.Open {
			return types.DirectionLong, true
		}
		if bar.Close < bar.Open {
			return types.DirectionShort, true
		}
		return "", false
	case longBreak:
		return types.DirectionLong, true
	case shortBreak:
		return types.DirectionShort, true
	default:
		return "", false
	}
}

func (m *Machine) attemptsFor(dir types.Direction) int {
	if dir == types.DirectionLong {
		return m.session.LongAttempts
	}
	return m.session.ShortAttempts
}

func (m *Machine) incrementAttempts(dir types.Direction) int {
	if dir == types.DirectionLong {
		m.session.LongAttempts++
		return m.session.LongAttempts
	}
	m.session.ShortAttempts++
	return m.session.ShortAttempts
}

func (m *Machine) directionExhausted(dir types.Direction) bool {
	return m.attemptsFor(dir) >= m.cfg.MaxBreakAttempts
}

func (m *Machine) bothExhausted() bool {
	return m.directionExhausted(types.DirectionLong) && m.directionExhausted(types.DirectionShort)
}

func (m *Machine) startAttempt(dir types.Direction, bar types.Candle) {
	if m.directionExhausted(dir) {
		return // that side is closed for the remainder of the session
	}
	attemptNumber := m.incrementAttempts(dir)
	barCopy := bar
	m.pendingDirection = dir
	m.breakBar = &barCopy
	m.retestBar = nil

	m.session.AppendSignal(types.Signal{
		Direction:     dir,
		Type:          types.SignalBreak,
		Timestamp:     bar.Timestamp,
		Price:         bar.Close,
		TriggerCandle: bar,
		AttemptNumber: attemptNumber,
	})
	m.transitionTo(StateAwaitingRetest)
}

// checkSupersede looks for a break in the direction opposite the pending
// attempt. If found (and that side isn't exhausted) the pending attempt is
// abandoned and a fresh attempt begins in the new direction.
func (m *Machine) checkSupersede(bar types.Candle) bool {
	dir, ok := m.detectBreak(bar)
	if !ok || dir == m.pendingDirection {
		return false
	}
	if m.directionExhausted(dir) {
		return false
	}
	m.startAttempt(dir, bar)
	return true
}

func (m *Machine) insideZone(bar types.Candle) bool {
	zone := m.session.Zone
	return bar.Close > zone.Support && bar.Close < zone.Resistance
}

func (m *Machine) failAttempt(bar types.Candle, attemptNumber int) {
	m.session.AppendSignal(types.Signal{
		Direction:     m.pendingDirection,
		Type:          types.SignalBreakFailure,
		Timestamp:     bar.Timestamp,
		Price:         bar.Close,
		TriggerCandle: bar,
		AttemptNumber: attemptNumber,
	})
	m.pendingDirection = ""
	m.breakBar = nil
	m.retestBar = nil

	if m.bothExhausted() {
		m.finishNoTrade()
		return
	}
	m.transitionTo(StateMonitoring)
}

// --- AWAITING_RETEST ---

func (m *Machine) handleAwaitingRetest(bar types.Candle) {
	if m.checkSupersede(bar) {
		return
	}
	attemptNumber := m.attemptsFor(m.pendingDirection)
	if m.insideZone(bar) {
		m.failAttempt(bar, attemptNumber)
		return
	}

	zone := m.session.Zone
	var retested bool
	if m.pendingDirection == types.DirectionLong {
		retested = bar.Low <= zone.Resistance && bar.Close > zone.Resistance
	} else {
		retested = bar.High >= zone.Support && bar.Close < zone.Support
	}
	if !retested {
		return
	}

	barCopy := bar
	if m.confirmsAgainst(bar, *m.breakBar) {
		m.session.AppendSignal(types.Signal{
			Direction:     m.pendingDirection,
			Type:          types.SignalRetestAndConfirm,
			Timestamp:     bar.Timestamp,
			Price:         bar.Close,
			TriggerCandle: bar,
			AttemptNumber: attemptNumber,
		})
		m.enterTrade(bar)
		return
	}

	m.retestBar = &barCopy
	m.session.AppendSignal(types.Signal{
		Direction:     m.pendingDirection,
		Type:          types.SignalRetest,
		Timestamp:     bar.Timestamp,
		Price:         bar.Close,
		TriggerCandle: bar,
		AttemptNumber: attemptNumber,
	})
	m.transitionTo(StateAwaitingConfirmation)
}

// confirmsAgainst reports whether bar satisfies the confirmation predicate
// relative to reference (the break bar, or the retest bar).
func (m *Machine) confirmsAgainst(bar, reference types.Candle) bool {
	zone := m.session.Zone
	if m.pendingDirection == types.DirectionLong {
		return bar.Close > zone.Resistance && bar.Close > reference.High
	}
	return bar.Close < zone.Support && bar.Close < reference.Low
}

// --- AWAITING_CONFIRMATION ---

func (m *Machine) handleAwaitingConfirmation(bar types.Candle) {
	if m.checkSupersede(bar) {
		return
	}
	attemptNumber := m.attemptsFor(m.pendingDirection)
	if m.insideZone(bar) {
		m.failAttempt(bar, attemptNumber)
		return
	}
	if m.confirmsAgainst(bar, *m.retestBar) {
		m.session.AppendSignal(types.Signal{
			Direction:     m.pendingDirection,
			Type:          types.SignalConfirmation,
			Timestamp:     bar.Timestamp,
			Price:         bar.Close,
			TriggerCandle: bar,
			AttemptNumber: attemptNumber,
		})
		m.enterTrade(bar)
	}
	// neither failure nor confirmation: keep waiting in AWAITING_CONFIRMATION
}

// --- Entry ---

func (m *Machine) enterTrade(triggerBar types.Candle) {
	dir := m.pendingDirection
	zone := m.session.Zone
	entryPrice := triggerBar.Close
	var stopLevel int64
	if dir == types.DirectionLong {
		stopLevel = zone.Support
	} else {
		stopLevel = zone.Resistance
	}

	rValue := risk.ComputeRValue(entryPrice, stopLevel)
	if rValue == 0 {
		m.session.Error = "strategy invariant violated: entry with rValue == 0"
		m.transitionTo(StateError)
		return
	}

	trade := types.NewTrade(
		m.session.Symbol, dir, entryPrice, stopLevel,
		risk.ComputeTargetPrice(entryPrice, rValue, 1, dir),
		risk.ComputeTargetPrice(entryPrice, rValue, 2, dir),
		risk.ComputeTargetPrice(entryPrice, rValue, 3, dir),
		triggerBar.Timestamp, m.cfg.TrailingStopAt1R,
	)
	m.session.Trades = append(m.session.Trades, trade)
	m.pendingDirection = ""
	m.breakBar = nil
	m.retestBar = nil
	m.transitionTo(StateInTrade)
}

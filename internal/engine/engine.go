package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
	"github.com/bdrydyk/homebridge-securitysystem/internal/timer"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("security system engine closed")

// Dispatcher hands notifications to side-effect implementations.
// Notify is called under the engine lock and must not block.
type Dispatcher interface {
	Notify(ctx context.Context, n security.Notification)
}

// Persister stores the persisted part of the state.
// Persist is called under the engine lock and must not block.
type Persister interface {
	Persist(ctx context.Context, state security.State)
}

// Options holds the timing and policy settings of an engine.
type Options struct {
	// ArmDelay is the countdown between a delayed target request and its commit.
	ArmDelay time.Duration
	// TriggerDelay is the countdown between a sensor activation and the alarm.
	TriggerDelay time.Duration
	// SirenPulseInterval is the period of the siren pulse while triggered.
	// Values below twice timer.DefaultPulseWidth (1.5s), zero included, are
	// raised to that floor so every pulse falls before the next one rises.
	SirenPulseInterval time.Duration
	// ResetDelay is how long the alarm sounds before falling back to the target mode.
	ResetDelay time.Duration
	// DisabledTargets lists modes that may never be requested.
	DisabledTargets []security.Mode
	// IgnoreOffMode lets sensors trigger the alarm while the system is off.
	IgnoreOffMode bool
	// DefaultMode seeds current and target mode when no state is restored.
	DefaultMode security.Mode
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		SirenPulseInterval: 5 * time.Second,
		ResetDelay:         10 * time.Minute,
		DefaultMode:        security.ModeOff,
	}
}

// Option configures optional collaborators of an engine.
type Option func(*Engine)

// WithDispatcher sets the notification dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

// WithPersister sets the state persister.
func WithPersister(p Persister) Option {
	return func(e *Engine) {
		e.persister = p
	}
}

// WithInitialState hydrates the engine from previously persisted state.
func WithInitialState(state *security.State) Option {
	return func(e *Engine) {
		e.initial = state.Clone()
	}
}

// RequestOption adjusts a single target mode request.
type RequestOption func(*request)

// request holds per-call settings of RequestTargetMode.
type request struct {
	// notifyRemote pushes the accepted target to remote properties.
	notifyRemote bool
	// delay overrides the delay-arming flag when set.
	delay *bool
}

// WithRemoteUpdate pushes the accepted target mode to subscribers. Callers
// that are not the remote target property itself use it.
func WithRemoteUpdate() RequestOption {
	return func(r *request) {
		r.notifyRemote = true
	}
}

// WithArmDelay overrides the delay-arming flag for one request.
func WithArmDelay(enabled bool) RequestOption {
	return func(r *request) {
		r.delay = &enabled
	}
}

// Engine owns the security system state and all transition logic.
type Engine struct {
	// ctx is the engine lifetime context used by timer callbacks and side effects.
	ctx context.Context
	// opts holds timing and policy settings.
	opts Options
	// disabled is the set of modes that may never be targets.
	disabled map[security.Mode]struct{}
	// dispatcher receives notifications; may be nil.
	dispatcher Dispatcher
	// persister receives state to store; may be nil.
	persister Persister
	// initial is the state to hydrate from; only read by New.
	initial *security.State
	// subs receives property events.
	subs subscribers

	// mu serializes every operation and timer callback.
	mu sync.Mutex

	current      security.Mode
	target       security.Mode
	arming       bool
	sirenActive  bool
	delayArming  bool
	stateChanged bool
	closed       bool

	armingTimer  *timer.Timer
	triggerTimer *timer.Timer
	resetTimer   *timer.Timer
	siren        *timer.Pulse
}

// New creates an engine. The context bounds side effects started by the
// engine and carries its logger.
func New(ctx context.Context, opts Options, options ...Option) (*Engine, error) {
	e := &Engine{
		ctx:      logger.WithName(ctx, "engine"),
		opts:     opts,
		disabled: make(map[security.Mode]struct{}, len(opts.DisabledTargets)),
	}

	for _, mode := range opts.DisabledTargets {
		if !mode.IsTarget() {
			return nil, fmt.Errorf("disabled target %s: %w", mode, security.ErrInvalidMode)
		}

		e.disabled[mode] = struct{}{}
	}

	if !e.isEnabledTarget(opts.DefaultMode) {
		return nil, fmt.Errorf("default mode %s: %w", opts.DefaultMode, security.ErrDisabledTarget)
	}

	for _, opt := range options {
		opt(e)
	}

	e.armingTimer = timer.New(&e.mu)
	e.triggerTimer = timer.New(&e.mu)
	e.resetTimer = timer.New(&e.mu)
	e.siren = timer.NewPulse(&e.mu, timer.DefaultPulseWidth)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.hydrate()

	return e, nil
}

// hydrate seeds the state from the initial state or the default mode.
func (e *Engine) hydrate() {
	e.current = e.opts.DefaultMode
	e.target = e.opts.DefaultMode

	if e.initial == nil {
		return
	}

	e.delayArming = e.initial.DelayArming

	if !e.isEnabledTarget(e.initial.TargetMode) {
		logger.WarnKV(e.ctx, "Saved target mode not allowed, using default", "mode", e.initial.TargetMode)

		return
	}

	e.target = e.initial.TargetMode

	if e.initial.CurrentMode.IsValid() {
		e.current = e.initial.CurrentMode
	}

	logger.Infof(e.ctx, "Saved mode (%s)", e.current.Title())

	// Resume an alarm that was sounding at shutdown.
	if e.current == security.ModeTriggered {
		e.startAlarm()
	}
}

// Subscribe registers a handler for property events and returns a function
// removing it.
func (e *Engine) Subscribe(h Handler) func() {
	return e.subs.add(h)
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() security.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return security.Snapshot{
		State:          e.state(),
		Arming:         e.arming,
		SirenActive:    e.sirenActive,
		TriggerPending: e.triggerTimer.Pending(),
	}
}

// EnabledTargets returns the modes that may be requested, in display order.
func (e *Engine) EnabledTargets() []security.Mode {
	modes := make([]security.Mode, 0, len(security.TargetModes))
	for _, mode := range security.TargetModes {
		if e.isEnabledTarget(mode) {
			modes = append(modes, mode)
		}
	}

	return modes
}

// RequestTargetMode asks the system to move to mode. A new request always
// wins over pending arm and reset countdowns; it also cancels a pending
// trigger countdown unless mode is already both current and target.
func (e *Engine) RequestTargetMode(ctx context.Context, mode security.Mode, opts ...RequestOption) error {
	req := new(request)
	for _, opt := range opts {
		opt(req)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	return e.requestTargetMode(ctx, mode, req)
}

// SensorTriggered reports a sensor becoming active or inactive.
func (e *Engine) SensorTriggered(ctx context.Context, active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	return e.sensorTriggered(ctx, active)
}

// SetSirenActive handles a write to the siren-active property. The write is
// applied only when the sensor event is accepted.
func (e *Engine) SetSirenActive(ctx context.Context, active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	if err := e.sensorTriggered(ctx, active); err != nil {
		return err
	}

	e.setSirenActive(active)

	return nil
}

// Trigger sounds the alarm immediately, bypassing the trigger countdown and
// the arming policies. A pending arm countdown is abandoned.
func (e *Engine) Trigger(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	logger.Info(ctx, "Alarm triggered on request")

	e.armingTimer.Cancel()
	e.setArming(false)
	e.triggerTimer.Cancel()
	e.stateChanged = false
	e.commitCurrentMode(ctx, security.ModeTriggered)

	return nil
}

// SetDelayArming toggles the arm delay used by requests without an override.
func (e *Engine) SetDelayArming(ctx context.Context, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	e.delayArming = enabled
	logger.Infof(ctx, "Delay arming (%s)", onOff(enabled))

	e.subs.emit(Event{Type: EventDelayArming, Value: enabled})
	e.persist()

	return nil
}

// Close cancels every timer. Later operations return ErrClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	e.closed = true

	e.armingTimer.Cancel()
	e.triggerTimer.Cancel()
	e.resetTimer.Cancel()
	e.siren.Stop()
}

func (e *Engine) requestTargetMode(ctx context.Context, mode security.Mode, req *request) error {
	if !e.isEnabledTarget(mode) {
		logger.DebugKV(ctx, "Target mode rejected", "mode", mode)

		return fmt.Errorf("request %s: %w", mode, security.ErrDisabledTarget)
	}

	e.siren.Stop()
	e.armingTimer.Cancel()
	e.resetTimer.Cancel()

	alreadySet := mode == e.current && mode == e.target
	if !alreadySet && e.triggerTimer.Cancel() {
		logger.Debug(ctx, "Pending trigger cancelled by mode change")
	}

	e.target = mode
	logger.Infof(ctx, "Target mode (%s)", mode.Title())

	e.dispatch(security.Notification{Kind: security.KindTarget, Mode: mode})

	if alreadySet {
		return nil
	}

	if req.notifyRemote {
		e.subs.emit(Event{Type: EventTargetState, Mode: mode})
	}

	e.handleStateChange()

	if !e.stateChanged && e.opts.ArmDelay > 0 {
		e.dispatch(security.Notification{Kind: security.KindTarget, Mode: mode, Cue: true})
	}

	delay := e.delayArming
	if req.delay != nil {
		delay = *req.delay
	}

	var armDelay time.Duration

	if e.current != security.ModeTriggered && mode != security.ModeOff && delay {
		armDelay = e.opts.ArmDelay
		e.setArming(true)
	}

	e.armingTimer.Schedule(armDelay, func() {
		e.commitCurrentMode(e.ctx, mode)
		e.setArming(false)
	})

	return nil
}

// commitCurrentMode makes mode the current mode. Committing the current
// mode again has no effect.
func (e *Engine) commitCurrentMode(ctx context.Context, mode security.Mode) {
	if mode == e.current {
		return
	}

	e.current = mode
	logger.Infof(ctx, "Current mode (%s)", mode.Title())

	e.subs.emit(Event{Type: EventCurrentState, Mode: mode})
	e.dispatch(security.Notification{Kind: security.KindCurrent, Mode: mode})
	e.persist()

	if mode != security.ModeTriggered {
		e.siren.Stop()

		return
	}

	e.startAlarm()
}

// startAlarm starts the siren pulse and the automatic reset.
func (e *Engine) startAlarm() {
	e.siren.Start(e.opts.SirenPulseInterval, func(level bool) {
		e.subs.emit(Event{Type: EventSirenPulse, Value: level})
	})

	e.resetTimer.Schedule(e.opts.ResetDelay, func() {
		logger.Infof(e.ctx, "Alarm reset to %s", e.target)

		e.handleStateChange()
		e.commitCurrentMode(e.ctx, e.target)
	})
}

// handleStateChange records whether the change happened during an alarm
// and returns siren indicators to off.
func (e *Engine) handleStateChange() {
	e.stateChanged = e.current == security.ModeTriggered

	if e.sirenActive {
		e.setSirenActive(false)
	}

	e.subs.emit(Event{Type: EventSirenReset})
}

func (e *Engine) sensorTriggered(ctx context.Context, active bool) error {
	if e.current == security.ModeOff && !e.opts.IgnoreOffMode {
		return security.ErrNotArmed
	}

	if e.arming {
		return security.ErrNotYetArmed
	}

	if active {
		e.sensorActivated(ctx)
	} else {
		e.sensorCleared(ctx)
	}

	e.persist()

	return nil
}

func (e *Engine) sensorActivated(ctx context.Context) {
	if e.current == security.ModeTriggered {
		logger.Debug(ctx, "Sensor/s ignored, alarm already triggered")

		return
	}

	logger.Info(ctx, "Sensor/s (Triggered)")

	if e.triggerTimer.Pending() {
		return
	}

	e.triggerTimer.Schedule(e.opts.TriggerDelay, func() {
		e.stateChanged = false
		e.commitCurrentMode(e.ctx, security.ModeTriggered)
	})

	e.dispatch(security.Notification{Kind: security.KindCurrent, Alert: true})
}

func (e *Engine) sensorCleared(ctx context.Context) {
	e.setSirenActive(false)

	if e.current == security.ModeTriggered {
		if e.stateChanged {
			return
		}

		// Nobody changed the mode during the alarm: disarm.
		err := e.requestTargetMode(ctx, security.ModeOff, &request{notifyRemote: true})
		if err != nil {
			logger.WarnKV(ctx, "Unable to disarm after sensor cleared", "error", err)
		}

		return
	}

	if e.triggerTimer.Cancel() {
		logger.Info(ctx, "Sensor/s (Cancelled)")
	}
}

func (e *Engine) setArming(arming bool) {
	if e.arming == arming {
		return
	}

	e.arming = arming
	e.subs.emit(Event{Type: EventArming, Value: arming})
}

func (e *Engine) setSirenActive(active bool) {
	e.sirenActive = active
	e.subs.emit(Event{Type: EventSirenActive, Value: active})
}

func (e *Engine) isEnabledTarget(mode security.Mode) bool {
	if !mode.IsTarget() {
		return false
	}

	_, disabled := e.disabled[mode]

	return !disabled
}

func (e *Engine) state() security.State {
	return security.State{
		CurrentMode: e.current,
		TargetMode:  e.target,
		DelayArming: e.delayArming,
	}
}

func (e *Engine) dispatch(n security.Notification) {
	if e.dispatcher != nil {
		e.dispatcher.Notify(e.ctx, n)
	}
}

func (e *Engine) persist() {
	if e.persister != nil {
		e.persister.Persist(e.ctx, e.state())
	}
}

func onOff(v bool) string {
	if v {
		return "On"
	}

	return "Off"
}

// Package reconciler keeps resting protective stop orders in sync with the
// trailing stop engine for every open position on the exchange.
package reconciler

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ktakahiro150397/crypto-spot-collector/core"
	"github.com/ktakahiro150397/crypto-spot-collector/trailing"

	"github.com/StudioSol/set"
	"github.com/jpillora/backoff"
)

// Status represents the current state of the reconciler loop
type Status string

// Available reconciler statuses
const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// TrackedPosition is the reconciler-owned state for one open instrument.
// It is created when a position is first observed open and discarded when
// the exchange no longer reports it.
type TrackedPosition struct {
	Instrument       string
	Quantity         float64
	Trailing         trailing.State
	CurrentStopPrice float64
	RestingOrderID   string
}

// Config holds the reconciliation policy parameters.
type Config struct {
	Trailing trailing.Config

	// CheckInterval is the time between reconciliation ticks.
	CheckInterval time.Duration

	// UpdateThreshold is the minimum fractional move of the desired stop
	// relative to the resting stop before the order is replaced. Below the
	// threshold no exchange call is made.
	UpdateThreshold float64

	// Enabled is the kill switch. When false every tick is a no-op.
	Enabled bool

	// CallTimeout bounds each individual broker call.
	CallTimeout time.Duration

	// MaxRetries is the number of additional attempts per broker call
	// before the failure is surfaced for the tick.
	MaxRetries int
}

// DefaultConfig returns the reconciliation defaults.
func DefaultConfig() Config {
	return Config{
		Trailing:        trailing.DefaultConfig(),
		CheckInterval:   time.Minute,
		UpdateThreshold: 0.001,
		Enabled:         true,
		CallTimeout:     10 * time.Second,
		MaxRetries:      2,
	}
}

// Reconciler is the periodic control loop that polls open positions and
// replaces their resting stop orders when the trailing engine moves the
// desired stop far enough.
type Reconciler struct {
	broker   core.Broker
	notifier core.Notifier
	log      core.Logger
	cfg      Config

	// mu guards the positions map and the fields of its values, which the
	// status surface reads from another goroutine. It is never held across
	// broker I/O.
	mu        sync.Mutex
	positions map[string]*TrackedPosition

	// tickMu serializes ticks so an in-flight cancel/create pair always
	// completes before the next pass starts.
	tickMu sync.Mutex

	status Status
	finish chan bool
}

// New creates a reconciler for the given broker.
func New(broker core.Broker, log core.Logger, cfg Config) *Reconciler {
	return &Reconciler{
		broker:    broker,
		log:       log,
		cfg:       cfg,
		positions: make(map[string]*TrackedPosition),
		status:    StatusStopped,
		finish:    make(chan bool),
	}
}

// SetNotifier configures an operator notifier for the reconciler.
func (r *Reconciler) SetNotifier(notifier core.Notifier) {
	r.notifier = notifier
}

// Status returns the current loop status.
func (r *Reconciler) Status() Status {
	return r.status
}

// Positions returns a snapshot of the currently tracked positions.
func (r *Reconciler) Positions() []TrackedPosition {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]TrackedPosition, 0, len(r.positions))
	for _, position := range r.positions {
		snapshot = append(snapshot, *position)
	}
	return snapshot
}

// Start begins the periodic reconciliation loop.
func (r *Reconciler) Start(ctx context.Context) {
	if r.status == StatusRunning {
		return
	}
	r.status = StatusRunning

	go func() {
		ticker := time.NewTicker(r.cfg.CheckInterval)
		for {
			select {
			case <-ticker.C:
				r.Tick(ctx)
			case <-r.finish:
				ticker.Stop()
				return
			}
		}
	}()

	r.log.Infof("stop reconciler started, interval %s", r.cfg.CheckInterval)
}

// Stop halts the loop. A tick already in flight finishes its current
// replacement before the loop goroutine exits.
func (r *Reconciler) Stop() {
	if r.status != StatusRunning {
		return
	}
	r.status = StatusStopped
	r.finish <- true

	// Wait for any concurrent manual tick to drain.
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	r.log.Info("stop reconciler stopped")
}

// Tick runs one reconciliation pass over all open positions. Ticks are
// serialized; a failure on one instrument does not abort the others.
func (r *Reconciler) Tick(ctx context.Context) {
	if !r.cfg.Enabled {
		r.log.Debug("reconciler disabled, skipping tick")
		return
	}

	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	var open []core.Position
	err := r.withRetry(ctx, "fetch_positions", "", func(callCtx context.Context) error {
		var fetchErr error
		open, fetchErr = r.broker.OpenPositions(callCtx)
		return fetchErr
	})
	if err != nil {
		r.reportError(err)
		return
	}

	live := set.NewLinkedHashSetString()
	for _, position := range open {
		live.Add(position.Instrument)
	}
	r.sweepClosed(live)

	for _, position := range open {
		if err := r.reconcilePosition(ctx, position); err != nil {
			r.reportError(err)
		}
	}
}

// sweepClosed drops tracked positions the exchange no longer reports.
func (r *Reconciler) sweepClosed(live *set.LinkedHashSetString) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for instrument := range r.positions {
		if !live.InArray(instrument) {
			delete(r.positions, instrument)
			r.log.WithField("instrument", instrument).Info("position closed, tracking removed")
		}
	}
}

// track returns the tracked state for an open position, creating it on
// first observation. A newly discovered position starts from the entry
// price with the initial acceleration factor, even when found mid-trend.
func (r *Reconciler) track(position core.Position) *TrackedPosition {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracked, ok := r.positions[position.Instrument]
	if !ok {
		tracked = &TrackedPosition{
			Instrument: position.Instrument,
			Trailing:   trailing.NewState(r.cfg.Trailing, position.Side, position.EntryPrice),
		}
		r.positions[position.Instrument] = tracked
		r.log.WithFields(map[string]any{
			"instrument": position.Instrument,
			"side":       position.Side,
			"entry":      position.EntryPrice,
		}).Info("tracking new position")
	}
	tracked.Quantity = position.Quantity
	return tracked
}

func (r *Reconciler) reconcilePosition(ctx context.Context, position core.Position) error {
	tracked := r.track(position)

	var price float64
	err := r.withRetry(ctx, "mark_price", position.Instrument, func(callCtx context.Context) error {
		var fetchErr error
		price, fetchErr = r.broker.MarkPrice(callCtx, position.Instrument)
		return fetchErr
	})
	if err != nil {
		return err
	}

	desiredStop, next := r.cfg.Trailing.Advance(tracked.Trailing, price)
	r.mu.Lock()
	tracked.Trailing = next
	r.mu.Unlock()

	if !r.needsReplacement(tracked, desiredStop) {
		r.log.WithFields(map[string]any{
			"instrument": tracked.Instrument,
			"stop":       tracked.CurrentStopPrice,
			"desired":    desiredStop,
		}).Debug("stop change below threshold")
		return nil
	}

	return r.replaceStop(ctx, tracked, position, desiredStop)
}

// needsReplacement gates order churn: the resting stop is only replaced when
// the desired stop moved by at least the configured fraction. A position
// with no resting stop is always (re)protected.
func (r *Reconciler) needsReplacement(tracked *TrackedPosition, desiredStop float64) bool {
	if tracked.RestingOrderID == "" || tracked.CurrentStopPrice == 0 {
		return true
	}
	change := math.Abs(desiredStop-tracked.CurrentStopPrice) / tracked.CurrentStopPrice
	return change >= r.cfg.UpdateThreshold
}

// replaceStop cancels the resting stop order and creates a new one at the
// desired price. Tracking state is updated only after the step that changed
// it succeeded, so a partial failure is retried on the next tick instead of
// being papered over. The pair runs on a context detached from shutdown
// cancellation: aborting between cancel and create would leave the position
// with no stop at all.
func (r *Reconciler) replaceStop(ctx context.Context, tracked *TrackedPosition, position core.Position, desiredStop float64) error {
	detached := context.WithoutCancel(ctx)

	if tracked.RestingOrderID != "" {
		orderID := tracked.RestingOrderID
		err := r.withRetry(detached, "cancel_order", tracked.Instrument, func(callCtx context.Context) error {
			return r.broker.CancelStopOrder(callCtx, tracked.Instrument, orderID)
		})
		if err != nil {
			return &core.ReplacementError{
				Instrument: tracked.Instrument,
				Stage:      core.ReplacementStageCancel,
				Err:        err,
			}
		}
		r.mu.Lock()
		tracked.RestingOrderID = ""
		r.mu.Unlock()
	}

	var orderID string
	err := r.withRetry(detached, "create_stop_order", tracked.Instrument, func(callCtx context.Context) error {
		var createErr error
		orderID, createErr = r.broker.CreateStopOrder(callCtx, tracked.Instrument, position.Side, desiredStop, position.Quantity)
		return createErr
	})
	if err != nil {
		return &core.ReplacementError{
			Instrument: tracked.Instrument,
			Stage:      core.ReplacementStageCreate,
			Err:        err,
		}
	}

	r.mu.Lock()
	previous := tracked.CurrentStopPrice
	tracked.RestingOrderID = orderID
	tracked.CurrentStopPrice = desiredStop
	r.mu.Unlock()

	r.log.WithFields(map[string]any{
		"instrument": tracked.Instrument,
		"from":       previous,
		"to":         desiredStop,
		"order_id":   orderID,
	}).Info("stop order replaced")

	if r.notifier != nil {
		r.notifier.Notify(stopMovedMessage(tracked.Instrument, previous, desiredStop))
	}
	return nil
}

// withRetry runs a broker call with a per-call timeout and bounded backoff
// retry. Exhausting the retries surfaces as an ExchangeIOError scoped to
// the instrument.
func (r *Reconciler) withRetry(ctx context.Context, op, instrument string, fn func(context.Context) error) error {
	wait := &backoff.Backoff{
		Min: 100 * time.Millisecond,
		Max: 1 * time.Second,
	}

	var err error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		err = fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		if attempt < r.cfg.MaxRetries {
			time.Sleep(wait.Duration())
		}
	}

	return &core.ExchangeIOError{Op: op, Instrument: instrument, Err: err}
}

func (r *Reconciler) reportError(err error) {
	r.log.WithError(err).Error("reconciliation failed")
	if r.notifier != nil {
		r.notifier.OnError(err)
	}
}

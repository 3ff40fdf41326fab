package core

import (
	"errors"
	"fmt"
)

// ErrInstrumentEmpty rejects trades and lookups with no instrument symbol.
var ErrInstrumentEmpty = errors.New("empty instrument")

// InvalidTradeError reports a malformed trade rejected at ingestion.
// Malformed input fails fast instead of corrupting the running average.
type InvalidTradeError struct {
	Trade  Trade
	Reason string
}

func (e *InvalidTradeError) Error() string {
	return fmt.Sprintf("invalid trade %q on %s: %s", e.Trade.ID, e.Trade.Instrument, e.Reason)
}

// ExchangeIOError marks a broker call that still failed after the bounded
// retry. It is scoped to a single instrument for a single tick.
type ExchangeIOError struct {
	Op         string
	Instrument string
	Err        error
}

func (e *ExchangeIOError) Error() string {
	return fmt.Sprintf("exchange %s failed for %s: %v", e.Op, e.Instrument, e.Err)
}

func (e *ExchangeIOError) Unwrap() error {
	return e.Err
}

// ReplacementStage identifies which half of a cancel-then-create stop
// replacement failed.
type ReplacementStage string

const (
	ReplacementStageCancel ReplacementStage = "cancel"
	ReplacementStageCreate ReplacementStage = "create"
)

// ReplacementError reports a stop replacement that failed part way through.
// A failed create after a successful cancel leaves the position without a
// resting stop, so callers must surface this distinctly and retry.
type ReplacementError struct {
	Instrument string
	Stage      ReplacementStage
	Err        error
}

func (e *ReplacementError) Error() string {
	return fmt.Sprintf("stop replacement for %s failed at %s: %v", e.Instrument, e.Stage, e.Err)
}

func (e *ReplacementError) Unwrap() error {
	return e.Err
}

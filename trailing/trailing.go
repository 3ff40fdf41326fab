// Package trailing implements the acceleration-factor trailing stop.
//
// The stop is derived from the running price extreme, not the instantaneous
// price, so a pullback never loosens it. The acceleration factor grows each
// time the price makes a new favorable extreme, tightening the stop toward
// the extreme as the position moves into profit. The idea follows the
// Parabolic SAR acceleration scheme.
package trailing

import (
	"math"

	"github.com/ktakahiro150397/crypto-spot-collector/core"
)

// Config holds the acceleration-factor parameters.
type Config struct {
	InitialAF   float64 // starting acceleration factor
	AFIncrement float64 // step added on each new favorable extreme
	MaxAF       float64 // upper clamp for the acceleration factor
}

// DefaultConfig returns the conventional SAR-style parameters.
func DefaultConfig() Config {
	return Config{
		InitialAF:   0.02,
		AFIncrement: 0.02,
		MaxAF:       0.2,
	}
}

// State is the per-position trailing state. It is threaded explicitly
// through Advance; the engine itself holds no mutable state.
type State struct {
	Side               core.SideType
	EntryPrice         float64
	ExtremePrice       float64
	AccelerationFactor float64
}

// NewState initializes trailing state for a freshly observed position.
// The extreme starts at the entry price and the acceleration factor at
// InitialAF, so a position discovered mid-trend restarts its acceleration.
func NewState(cfg Config, side core.SideType, entryPrice float64) State {
	return State{
		Side:               side,
		EntryPrice:         entryPrice,
		ExtremePrice:       entryPrice,
		AccelerationFactor: cfg.InitialAF,
	}
}

// Advance folds one price observation into the trailing state and returns
// the desired stop price together with the next state.
//
// For a LONG position the stop is
//
//	extreme - (extreme - entry) * af
//
// and for a SHORT position, mirrored,
//
//	extreme + (entry - extreme) * af
//
// The acceleration factor only changes on a new favorable extreme and is
// clamped at MaxAF. Because the stop is recomputed from the extreme, the
// returned stop is non-decreasing over time for LONG positions and
// non-increasing for SHORT ones.
func (c Config) Advance(s State, observedPrice float64) (float64, State) {
	if s.Side == core.SideTypeShort {
		if observedPrice < s.ExtremePrice {
			s.ExtremePrice = observedPrice
			s.AccelerationFactor = math.Min(s.AccelerationFactor+c.AFIncrement, c.MaxAF)
		}
		return s.ExtremePrice + (s.EntryPrice-s.ExtremePrice)*s.AccelerationFactor, s
	}

	if observedPrice > s.ExtremePrice {
		s.ExtremePrice = observedPrice
		s.AccelerationFactor = math.Min(s.AccelerationFactor+c.AFIncrement, c.MaxAF)
	}
	return s.ExtremePrice - (s.ExtremePrice-s.EntryPrice)*s.AccelerationFactor, s
}

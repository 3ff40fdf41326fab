package core

import (
	"time"
)

// TradeSide represents the direction of an executed trade
type TradeSide string

// Trade side constants
const (
	TradeSideAcquire TradeSide = "ACQUIRE"
	TradeSideDispose TradeSide = "DISPOSE"
)

// Trade is a single executed fill as reported by the ledger source.
// Trades are immutable; the core only reads them.
type Trade struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Instrument string    `json:"instrument" gorm:"index"`
	Side       TradeSide `json:"side"`
	Price      float64   `json:"price"`
	Quantity   float64   `json:"quantity"`
	Fee        float64   `json:"fee"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Validate rejects malformed trades before they can reach the running
// average. Returns an *InvalidTradeError describing the first violation.
func (t Trade) Validate() error {
	switch {
	case t.Price <= 0:
		return &InvalidTradeError{Trade: t, Reason: "price must be positive"}
	case t.Quantity <= 0:
		return &InvalidTradeError{Trade: t, Reason: "quantity must be positive"}
	case t.Fee < 0:
		return &InvalidTradeError{Trade: t, Reason: "fee must not be negative"}
	case t.Side != TradeSideAcquire && t.Side != TradeSideDispose:
		return &InvalidTradeError{Trade: t, Reason: "unknown trade side"}
	}
	return nil
}

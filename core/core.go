package core

import (
	"context"
)

// Broker is the narrow slice of the exchange/order-management surface the
// stop reconciler depends on. Implementations are expected to be safe for
// sequential use from a single control loop.
type Broker interface {
	// OpenPositions returns the currently open leveraged positions.
	OpenPositions(ctx context.Context) ([]Position, error)

	// MarkPrice returns the current mark price for an instrument.
	MarkPrice(ctx context.Context, instrument string) (float64, error)

	// CancelStopOrder cancels a resting stop order by its exchange ID.
	CancelStopOrder(ctx context.Context, instrument, orderID string) error

	// CreateStopOrder places a protective stop for a position of the given
	// side and returns the exchange order ID. The implementation derives the
	// closing order side from the position side.
	CreateStopOrder(ctx context.Context, instrument string, side SideType, triggerPrice, quantity float64) (string, error)
}

// TradeSource supplies the executed-trade ledger for an instrument.
// The returned trades may be in any order; the cost-basis ledger re-sorts.
type TradeSource interface {
	Trades(ctx context.Context, instrument string) ([]Trade, error)
}

// TradeStore extends TradeSource with the write side used by trade ingestion.
type TradeStore interface {
	TradeSource

	// SaveTrade creates or updates a trade record, keyed by its exchange
	// trade ID.
	SaveTrade(trade Trade) error
}

// Notifier delivers operator-facing messages
type Notifier interface {
	Notify(string)
	OnError(err error)
}

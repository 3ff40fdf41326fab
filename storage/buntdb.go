// Package storage provides trade-ledger persistence backends.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ktakahiro150397/crypto-spot-collector/core"

	"github.com/samber/lo"
	"github.com/tidwall/buntdb"
)

// BuntTrades implements the core.TradeStore interface using BuntDB.
// Trades are stored as JSON keyed by "<instrument>:<trade id>", with an
// index on execution time so reads come back in a deterministic order.
type BuntTrades struct {
	db *buntdb.DB
}

// FromMemory creates an in-memory trade store
func FromMemory() (*BuntTrades, error) {
	return NewBuntTrades(":memory:")
}

// FromFile creates a file-based trade store
func FromFile(file string) (*BuntTrades, error) {
	return NewBuntTrades(file)
}

// NewBuntTrades creates a new BuntDB trade store instance
func NewBuntTrades(sourceFile string) (*BuntTrades, error) {
	db, err := buntdb.Open(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	err = db.CreateIndex("occurred_index", "*", buntdb.IndexJSON("occurred_at"))
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BuntTrades{db: db}, nil
}

// SaveTrade creates or updates a trade record, keyed by instrument and
// exchange trade ID. Re-importing the same fills is therefore idempotent.
func (b *BuntTrades) SaveTrade(trade core.Trade) error {
	if trade.Instrument == "" {
		return core.ErrInstrumentEmpty
	}
	if err := trade.Validate(); err != nil {
		return err
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		content, err := json.Marshal(trade)
		if err != nil {
			return fmt.Errorf("failed to marshal trade: %w", err)
		}

		_, _, err = tx.Set(tradeKey(trade), string(content), nil)
		if err != nil {
			return fmt.Errorf("failed to store trade: %w", err)
		}

		return nil
	})
}

// Trades returns all stored trades for an instrument, ordered by execution
// time.
func (b *BuntTrades) Trades(_ context.Context, instrument string) ([]core.Trade, error) {
	trades := make([]core.Trade, 0)

	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("occurred_index", func(_, value string) bool {
			var trade core.Trade
			if err := json.Unmarshal([]byte(value), &trade); err != nil {
				return true // Skip unreadable records and continue
			}
			trades = append(trades, trade)
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read trades: %w", err)
	}

	return lo.Filter(trades, func(trade core.Trade, _ int) bool {
		return trade.Instrument == instrument
	}), nil
}

// Close releases the underlying database.
func (b *BuntTrades) Close() error {
	return b.db.Close()
}

func tradeKey(trade core.Trade) string {
	return fmt.Sprintf("%s:%s", trade.Instrument, trade.ID)
}

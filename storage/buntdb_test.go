package storage

import (
	"context"
	"testing"
	"time"

	"github.com/ktakahiro150397/crypto-spot-collector/core"
	"github.com/ktakahiro150397/crypto-spot-collector/ledger"

	"github.com/stretchr/testify/require"
)

func storedTrade(id, instrument string, side core.TradeSide, price, quantity float64, at time.Time) core.Trade {
	return core.Trade{
		ID:         id,
		Instrument: instrument,
		Side:       side,
		Price:      price,
		Quantity:   quantity,
		OccurredAt: at,
	}
}

func TestBuntTrades_SaveAndFetchPerInstrument(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveTrade(storedTrade("t1", "BTCUSDT", core.TradeSideAcquire, 50000, 1, base)))
	require.NoError(t, store.SaveTrade(storedTrade("t2", "ETHUSDT", core.TradeSideAcquire, 2000, 3, base.Add(time.Hour))))
	require.NoError(t, store.SaveTrade(storedTrade("t3", "BTCUSDT", core.TradeSideDispose, 55000, 0.5, base.Add(2*time.Hour))))

	trades, err := store.Trades(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	require.Equal(t, "t1", trades[0].ID)
	require.Equal(t, "t3", trades[1].ID)
}

func TestBuntTrades_SaveIsIdempotentByTradeID(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)
	defer store.Close()

	trade := storedTrade("t1", "BTCUSDT", core.TradeSideAcquire, 50000, 1, time.Now().UTC())
	require.NoError(t, store.SaveTrade(trade))
	require.NoError(t, store.SaveTrade(trade))

	trades, err := store.Trades(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, trades, 1)
}

func TestBuntTrades_RejectsMalformedTrade(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)
	defer store.Close()

	err = store.SaveTrade(storedTrade("t1", "BTCUSDT", core.TradeSideAcquire, -1, 1, time.Now().UTC()))
	require.Error(t, err)

	var invalidErr *core.InvalidTradeError
	require.ErrorAs(t, err, &invalidErr)
}

func TestBuntTrades_FeedsLedger(t *testing.T) {
	store, err := FromMemory()
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// Insert out of order; the ledger re-sorts by execution time.
	require.NoError(t, store.SaveTrade(storedTrade("t2", "BTCUSDT", core.TradeSideDispose, 60000, 1, base.Add(time.Hour))))
	require.NoError(t, store.SaveTrade(storedTrade("t1", "BTCUSDT", core.TradeSideAcquire, 50000, 2, base)))

	trades, err := store.Trades(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	state, err := ledger.Compute(trades)
	require.NoError(t, err)
	require.Equal(t, 1.0, state.HeldQuantity)
	require.Equal(t, 50000.0, state.AveragePrice())
}

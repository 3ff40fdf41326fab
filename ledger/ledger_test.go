package ledger

import (
	"testing"
	"time"

	"github.com/ktakahiro150397/crypto-spot-collector/core"

	"github.com/stretchr/testify/require"
)

func tradeAt(day int, side core.TradeSide, price, quantity, fee float64) core.Trade {
	return core.Trade{
		ID:         time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC).Format("20060102"),
		Instrument: "BTCUSDT",
		Side:       side,
		Price:      price,
		Quantity:   quantity,
		Fee:        fee,
		OccurredAt: time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestCompute_Empty(t *testing.T) {
	state, err := Compute(nil)
	require.NoError(t, err)
	require.Zero(t, state.HeldQuantity)
	require.Zero(t, state.TotalCost)
	require.Zero(t, state.AveragePrice())
}

func TestCompute_SingleAcquire(t *testing.T) {
	state, err := Compute([]core.Trade{
		tradeAt(1, core.TradeSideAcquire, 50000, 1, 50),
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, state.HeldQuantity)
	require.Equal(t, 50050.0, state.AveragePrice())
}

func TestCompute_AllAcquireAverage(t *testing.T) {
	trades := []core.Trade{
		tradeAt(1, core.TradeSideAcquire, 50000, 1, 50),
		tradeAt(2, core.TradeSideAcquire, 60000, 2, 100),
	}

	state, err := Compute(trades)
	require.NoError(t, err)
	require.Equal(t, 3.0, state.HeldQuantity)
	// avg = sum(price*qty+fee) / sum(qty)
	require.InDelta(t, (50000*1+50+60000*2+100)/3.0, state.AveragePrice(), 0.01)
}

func TestCompute_DisposalKeepsAverage(t *testing.T) {
	trades := []core.Trade{
		tradeAt(1, core.TradeSideAcquire, 50000, 100, 50),
		tradeAt(2, core.TradeSideAcquire, 60000, 200, 100),
	}

	before, err := Compute(trades)
	require.NoError(t, err)

	// Selling at any price removes quantity at the running average; the
	// average cost of the remainder must not move.
	trades = append(trades, tradeAt(3, core.TradeSideDispose, 70000, 150, 0))
	after, err := Compute(trades)
	require.NoError(t, err)

	require.Equal(t, 150.0, after.HeldQuantity)
	require.InDelta(t, before.AveragePrice(), after.AveragePrice(), 0.0001)
}

func TestCompute_FullDisposalEmptiesHolding(t *testing.T) {
	state, err := Compute([]core.Trade{
		tradeAt(1, core.TradeSideAcquire, 50000, 2, 100),
		tradeAt(2, core.TradeSideDispose, 55000, 2, 0),
	})
	require.NoError(t, err)
	require.Zero(t, state.HeldQuantity)
	require.Zero(t, state.TotalCost)
}

func TestCompute_OversellClampsAtZero(t *testing.T) {
	state, err := Compute([]core.Trade{
		tradeAt(1, core.TradeSideAcquire, 50000, 1, 0),
		tradeAt(2, core.TradeSideDispose, 55000, 5, 0),
	})
	require.NoError(t, err)
	require.Zero(t, state.HeldQuantity)
	require.Zero(t, state.TotalCost)
}

func TestCompute_OrderIndependence(t *testing.T) {
	ordered := []core.Trade{
		tradeAt(1, core.TradeSideAcquire, 50000, 2, 100),
		tradeAt(2, core.TradeSideDispose, 52000, 1, 0),
		tradeAt(3, core.TradeSideAcquire, 60000, 1, 60),
		tradeAt(4, core.TradeSideDispose, 65000, 0.5, 0),
	}
	shuffled := []core.Trade{ordered[3], ordered[1], ordered[0], ordered[2]}

	expected, err := Compute(ordered)
	require.NoError(t, err)
	actual, err := Compute(shuffled)
	require.NoError(t, err)

	require.InDelta(t, expected.HeldQuantity, actual.HeldQuantity, 1e-9)
	require.InDelta(t, expected.TotalCost, actual.TotalCost, 1e-9)
}

func TestCompute_Idempotent(t *testing.T) {
	trades := []core.Trade{
		tradeAt(1, core.TradeSideAcquire, 50000, 2, 100),
		tradeAt(2, core.TradeSideDispose, 52000, 1, 0),
	}

	first, err := Compute(trades)
	require.NoError(t, err)
	second, err := Compute(trades)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCompute_RejectsMalformedTrade(t *testing.T) {
	cases := []struct {
		name  string
		trade core.Trade
	}{
		{"zero price", tradeAt(1, core.TradeSideAcquire, 0, 1, 0)},
		{"negative quantity", tradeAt(1, core.TradeSideAcquire, 50000, -1, 0)},
		{"negative fee", tradeAt(1, core.TradeSideAcquire, 50000, 1, -5)},
		{"unknown side", tradeAt(1, "HOLD", 50000, 1, 0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute([]core.Trade{tc.trade})
			require.Error(t, err)

			var invalidErr *core.InvalidTradeError
			require.ErrorAs(t, err, &invalidErr)
		})
	}
}

func TestUnrealizedPnL(t *testing.T) {
	state, err := Compute([]core.Trade{
		tradeAt(1, core.TradeSideAcquire, 50000, 2, 0),
	})
	require.NoError(t, err)

	require.InDelta(t, 10000.0, UnrealizedPnL(state, 55000), 0.0001)
	require.InDelta(t, -10000.0, UnrealizedPnL(state, 45000), 0.0001)
	require.Zero(t, UnrealizedPnL(CostBasisState{}, 55000))
}

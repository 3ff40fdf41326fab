// Package ledger turns an unordered trade ledger into a weighted-average
// cost basis and current holding size per instrument.
package ledger

import (
	"math"
	"sort"

	"github.com/ktakahiro150397/crypto-spot-collector/core"
)

// CostBasisState is the running holding for a single instrument.
// Invariant: HeldQuantity == 0 implies TotalCost == 0.
type CostBasisState struct {
	HeldQuantity float64
	TotalCost    float64
}

// AveragePrice returns the weighted-average acquisition cost of the current
// holding, or zero when nothing is held.
func (s CostBasisState) AveragePrice() float64 {
	if s.HeldQuantity <= 0 {
		return 0
	}
	return s.TotalCost / s.HeldQuantity
}

// Compute replays the trade ledger in chronological order and returns the
// resulting holding. The input is not mutated; trades are re-sorted by
// execution time with a stable sort, so ties keep their ledger insertion
// order and the result is deterministic regardless of input order.
//
// Acquisitions add price*quantity+fee to the cost basis. Disposals remove
// quantity at the current average cost, which leaves the average cost of the
// remainder unchanged. Disposing more than is held clamps the holding at
// zero; the excess is ignored.
func Compute(trades []core.Trade) (CostBasisState, error) {
	for _, trade := range trades {
		if err := trade.Validate(); err != nil {
			return CostBasisState{}, err
		}
	}

	ordered := make([]core.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
	})

	var state CostBasisState
	for _, trade := range ordered {
		switch trade.Side {
		case core.TradeSideAcquire:
			state.TotalCost += trade.Price*trade.Quantity + trade.Fee
			state.HeldQuantity += trade.Quantity

		case core.TradeSideDispose:
			sellQty := math.Min(trade.Quantity, state.HeldQuantity)
			if state.HeldQuantity > 0 {
				avg := state.TotalCost / state.HeldQuantity
				state.TotalCost -= avg * sellQty
				// Absorb floating-point drift when the holding empties.
				if state.TotalCost < 0 {
					state.TotalCost = 0
				}
			}
			state.HeldQuantity -= sellQty
		}
	}

	if state.HeldQuantity == 0 {
		state.TotalCost = 0
	}

	return state, nil
}

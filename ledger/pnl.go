package ledger

// UnrealizedPnL returns the mark-to-market profit of the current holding.
// An empty holding has no exposure and reports zero.
func UnrealizedPnL(state CostBasisState, markPrice float64) float64 {
	if state.HeldQuantity <= 0 {
		return 0
	}
	return (markPrice - state.AveragePrice()) * state.HeldQuantity
}

// Holding pairs an instrument with its ledger state and last known mark
// price. It is the row type for the holdings report.
type Holding struct {
	Instrument string
	State      CostBasisState
	MarkPrice  float64
}

// PnL returns the unrealized profit of this holding.
func (h Holding) PnL() float64 {
	return UnrealizedPnL(h.State, h.MarkPrice)
}

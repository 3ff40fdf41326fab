// Package metric computes summary statistics for the holdings report.
package metric

import (
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of the values, zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// ProfitFactor is the gross profit over the gross loss of the PnL values.
// A run with no losing positions is capped at a factor of 10.
func ProfitFactor(values []float64) float64 {
	var profit, loss float64
	for _, value := range values {
		if value >= 0 {
			profit += value
		} else {
			loss -= value
		}
	}

	if loss == 0 {
		return 10
	}
	return profit / loss
}

// WinShare returns the fraction of values that are positive.
func WinShare(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var wins int
	for _, value := range values {
		if value > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(values))
}

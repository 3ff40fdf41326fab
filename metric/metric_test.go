package metric

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	require.Zero(t, Mean(nil))
	require.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-9)
}

func TestProfitFactor(t *testing.T) {
	require.InDelta(t, 2.0, ProfitFactor([]float64{4, -2}), 1e-9)
	require.InDelta(t, 3.0, ProfitFactor([]float64{5, 1, -2}), 1e-9)

	// No losses caps the factor instead of dividing by zero.
	require.Equal(t, 10.0, ProfitFactor([]float64{1, 2}))
	require.Equal(t, 10.0, ProfitFactor(nil))
}

func TestWinShare(t *testing.T) {
	require.Zero(t, WinShare(nil))
	require.InDelta(t, 0.5, WinShare([]float64{1, -1}), 1e-9)
	require.InDelta(t, 1.0/3.0, WinShare([]float64{1, -1, 0}), 1e-9)
}

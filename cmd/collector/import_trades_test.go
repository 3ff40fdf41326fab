package main

import (
	"testing"

	"github.com/ktakahiro150397/crypto-spot-collector/core"

	"github.com/stretchr/testify/require"
)

func TestDropHeader(t *testing.T) {
	records := [][]string{
		{"ID", "occurred_at", "side", "price", "quantity", "fee"},
		{"1", "2025-01-01T00:00:00Z", "ACQUIRE", "50000", "1", "50"},
	}

	require.Equal(t, records[1:], dropHeader(records))
	require.Equal(t, records[1:], dropHeader(records[1:]))
	require.Empty(t, dropHeader(nil))
}

func TestParseTradeRecord(t *testing.T) {
	importInstrument = "BTCUSDT"

	trade, err := parseTradeRecord([]string{"7", "2025-01-02T03:04:05Z", "acquire", "50000", "0.5", "25", "USDT"})
	require.NoError(t, err)
	require.Equal(t, core.TradeSideAcquire, trade.Side)
	require.Equal(t, "BTCUSDT", trade.Instrument)
	require.Equal(t, 25.0, trade.Fee)

	// Base-asset fees are converted to quote terms at the trade price.
	trade, err = parseTradeRecord([]string{"8", "2025-01-02T03:04:05Z", "ACQUIRE", "50000", "0.5", "0.001", "BTC"})
	require.NoError(t, err)
	require.InDelta(t, 50.0, trade.Fee, 1e-9)

	_, err = parseTradeRecord([]string{"9", "not-a-time", "ACQUIRE", "50000", "0.5", "0"})
	require.Error(t, err)

	_, err = parseTradeRecord([]string{"10", "2025-01-02T03:04:05Z", "ACQUIRE"})
	require.Error(t, err)
}

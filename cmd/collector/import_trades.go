package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ktakahiro150397/crypto-spot-collector/config"
	"github.com/ktakahiro150397/crypto-spot-collector/core"
	"github.com/ktakahiro150397/crypto-spot-collector/storage"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func buildImportCmd() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import historical trade fills from a CSV file",
		Long: "Import trade fills into the local ledger. Expected columns:\n" +
			"id,occurred_at,side,price,quantity,fee[,fee_asset]\n" +
			"with occurred_at in RFC 3339 and side one of ACQUIRE/DISPOSE.",
		RunE: runImport,
	}

	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV file path")
	importCmd.Flags().StringVarP(&importInstrument, "instrument", "i", "", "Instrument the fills belong to (e.g. BTCUSDT)")
	cobra.CheckErr(importCmd.MarkFlagRequired("file"))
	cobra.CheckErr(importCmd.MarkFlagRequired("instrument"))

	return importCmd
}

func runImport(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	file, err := os.Open(importFile)
	if err != nil {
		return err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read csv: %w", err)
	}

	store, err := storage.FromFile(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	records = dropHeader(records)

	bar := progressbar.Default(int64(len(records)))
	imported := 0

	for line, record := range records {
		if err := bar.Add(1); err != nil {
			return err
		}

		trade, err := parseTradeRecord(record)
		if err != nil {
			return fmt.Errorf("line %d: %w", line+1, err)
		}

		if err := store.SaveTrade(trade); err != nil {
			return fmt.Errorf("line %d: %w", line+1, err)
		}
		imported++
	}

	fmt.Printf("imported %d trade(s) for %s\n", imported, importInstrument)
	return nil
}

// dropHeader removes a leading header row, recognized by its id column
// label, so the progress bar and the imported count both cover data rows
// only.
func dropHeader(records [][]string) [][]string {
	if len(records) > 0 && len(records[0]) > 0 && strings.EqualFold(records[0][0], "id") {
		return records[1:]
	}
	return records
}

func parseTradeRecord(record []string) (core.Trade, error) {
	if len(record) < 6 {
		return core.Trade{}, fmt.Errorf("expected at least 6 columns, got %d", len(record))
	}

	occurredAt, err := time.Parse(time.RFC3339, record[1])
	if err != nil {
		return core.Trade{}, fmt.Errorf("invalid occurred_at: %w", err)
	}

	price, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return core.Trade{}, fmt.Errorf("invalid price: %w", err)
	}

	quantity, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return core.Trade{}, fmt.Errorf("invalid quantity: %w", err)
	}

	fee, err := strconv.ParseFloat(record[5], 64)
	if err != nil {
		return core.Trade{}, fmt.Errorf("invalid fee: %w", err)
	}

	// Fees charged in the base asset are normalized to quote terms at the
	// trade price. The quote asset is the instrument suffix (e.g. USDT in
	// BTCUSDT).
	if len(record) > 6 && record[6] != "" && !strings.HasSuffix(importInstrument, strings.ToUpper(record[6])) {
		fee *= price
	}

	return core.Trade{
		ID:         record[0],
		Instrument: importInstrument,
		Side:       core.TradeSide(strings.ToUpper(record[2])),
		Price:      price,
		Quantity:   quantity,
		Fee:        fee,
		OccurredAt: occurredAt,
	}, nil
}

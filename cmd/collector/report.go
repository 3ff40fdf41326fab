package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ktakahiro150397/crypto-spot-collector/config"
	"github.com/ktakahiro150397/crypto-spot-collector/core"
	"github.com/ktakahiro150397/crypto-spot-collector/ledger"
	zl "github.com/ktakahiro150397/crypto-spot-collector/logger/zerolog"
	"github.com/ktakahiro150397/crypto-spot-collector/metric"
	"github.com/ktakahiro150397/crypto-spot-collector/storage"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func buildReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print holdings, average cost and unrealized PnL",
		RunE:  runReport,
	}

	reportCmd.Flags().StringSliceVarP(&instruments, "instruments", "i", nil, "Instruments to report (e.g. BTCUSDT,ETHUSDT)")
	cobra.CheckErr(reportCmd.MarkFlagRequired("instruments"))

	return reportCmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := zl.New(cfg.LogLevel, dateTimeLayout, true, false)
	if err != nil {
		return err
	}

	store, err := storage.FromFile(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	// Mark prices need exchange access; without credentials the report
	// still shows holdings and cost basis.
	var broker core.Broker
	if cfg.Binance.APIKey != "" {
		broker, err = initializeBroker(cmd.Context(), log, cfg)
		if err != nil {
			return err
		}
	}

	holdings := make([]ledger.Holding, 0, len(instruments))
	for _, instrument := range instruments {
		trades, err := store.Trades(cmd.Context(), instrument)
		if err != nil {
			return err
		}

		state, err := ledger.Compute(trades)
		if err != nil {
			return err
		}

		holding := ledger.Holding{Instrument: instrument, State: state}
		if broker != nil {
			if mark, err := broker.MarkPrice(cmd.Context(), instrument); err != nil {
				log.WithError(err).Warnf("no mark price for %s", instrument)
			} else {
				holding.MarkPrice = mark
			}
		}
		holdings = append(holdings, holding)
	}

	renderHoldings(holdings)
	return nil
}

func renderHoldings(holdings []ledger.Holding) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Instrument", "Held", "Avg Cost", "Mark", "PnL"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})

	for _, holding := range holdings {
		table.Append([]string{
			holding.Instrument,
			fmt.Sprintf("%.8f", holding.State.HeldQuantity),
			fmt.Sprintf("%.4f", holding.State.AveragePrice()),
			fmt.Sprintf("%.4f", holding.MarkPrice),
			fmt.Sprintf("%.4f", holding.PnL()),
		})
	}
	table.Render()

	pnls := lo.Map(holdings, func(holding ledger.Holding, _ int) float64 {
		return holding.PnL()
	})

	summary := []string{
		fmt.Sprintf("mean PnL %.4f", metric.Mean(pnls)),
		fmt.Sprintf("profit factor %.2f", metric.ProfitFactor(pnls)),
		fmt.Sprintf("win share %.0f%%", metric.WinShare(pnls)*100),
	}
	fmt.Println(strings.Join(summary, " | "))
}

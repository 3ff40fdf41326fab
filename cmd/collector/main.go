package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ktakahiro150397/crypto-spot-collector/config"
	"github.com/ktakahiro150397/crypto-spot-collector/core"
	"github.com/ktakahiro150397/crypto-spot-collector/exchange/binance"
	zl "github.com/ktakahiro150397/crypto-spot-collector/logger/zerolog"
	"github.com/ktakahiro150397/crypto-spot-collector/notification"
	"github.com/ktakahiro150397/crypto-spot-collector/reconciler"
	"github.com/ktakahiro150397/crypto-spot-collector/trailing"

	"github.com/spf13/cobra"
)

const dateTimeLayout = "2006-01-02 15:04:05"

// Command line flags
var (
	configPath string

	// Report command flags
	instruments []string

	// Import command flags
	importFile       string
	importInstrument string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "collector",
		Short:   "Position accounting and adaptive trailing stop management",
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Configuration file path")

	rootCmd.AddCommand(buildRunCmd())
	rootCmd.AddCommand(buildReportCmd())
	rootCmd.AddCommand(buildImportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the trailing stop reconciler",
		RunE:  runReconciler,
	}
}

func runReconciler(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := zl.New(cfg.LogLevel, dateTimeLayout, true, false)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker, err := initializeBroker(ctx, log, cfg)
	if err != nil {
		return err
	}

	rec := reconciler.New(broker, log, reconcilerConfig(cfg))

	if cfg.Telegram.Enabled {
		notifier, err := notification.NewTelegram(
			cfg.Telegram.Token,
			cfg.Telegram.Users,
			notification.WithStatusProvider(func() string {
				return formatStatus(rec)
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to start telegram notifier: %w", err)
		}
		notifier.Start()
		rec.SetNotifier(notifier)
	}

	rec.Start(ctx)
	<-ctx.Done()
	rec.Stop()

	return nil
}

func initializeBroker(ctx context.Context, log core.Logger, cfg *config.Config) (core.Broker, error) {
	options := []binance.FuturesOption{
		binance.WithCredentials(cfg.Binance.APIKey, cfg.Binance.SecretKey),
	}
	if cfg.Binance.UseTestnet {
		options = append(options, binance.WithTestnet())
	}

	return binance.NewFutures(ctx, log, options...)
}

func reconcilerConfig(cfg *config.Config) reconciler.Config {
	rc := reconciler.DefaultConfig()
	rc.Trailing = trailing.Config{
		InitialAF:   cfg.Stop.InitialAF,
		AFIncrement: cfg.Stop.AFIncrement,
		MaxAF:       cfg.Stop.MaxAF,
	}
	rc.CheckInterval = cfg.Stop.CheckInterval
	rc.UpdateThreshold = cfg.Stop.SLUpdateThresholdPercent
	rc.Enabled = cfg.Stop.Enabled
	return rc
}

func formatStatus(rec *reconciler.Reconciler) string {
	positions := rec.Positions()
	if len(positions) == 0 {
		return "No tracked positions"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Tracking %d position(s):\n", len(positions)))
	for _, position := range positions {
		sb.WriteString(fmt.Sprintf(
			"%s %s entry %.4f extreme %.4f af %.4f stop %.4f\n",
			position.Instrument,
			position.Trailing.Side,
			position.Trailing.EntryPrice,
			position.Trailing.ExtremePrice,
			position.Trailing.AccelerationFactor,
			position.CurrentStopPrice,
		))
	}
	return sb.String()
}

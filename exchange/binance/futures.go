// Package binance adapts the Binance USD-M futures API to the core broker
// interface.
package binance

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ktakahiro150397/crypto-spot-collector/core"

	"github.com/adshao/go-binance/v2/futures"
)

// assetPrecision holds the price/quantity rounding rules for one symbol.
type assetPrecision struct {
	price    int
	quantity int
}

// Futures is the Binance futures client implementing core.Broker.
type Futures struct {
	client     *futures.Client
	log        core.Logger
	precisions map[string]assetPrecision
}

// FuturesOption is a function that configures a Futures client
type FuturesOption func(*Futures)

// WithCredentials sets the API credentials for the Futures client
func WithCredentials(key, secret string) FuturesOption {
	return func(f *Futures) {
		f.client = futures.NewClient(key, secret)
	}
}

// WithTestnet routes all requests to the Binance futures testnet
func WithTestnet() FuturesOption {
	return func(f *Futures) {
		futures.UseTestnet = true
	}
}

// NewFutures creates a new Binance futures broker. The connection is
// validated and symbol precision rules are loaded up front so order prices
// can be formatted to the venue's tick rules.
func NewFutures(ctx context.Context, log core.Logger, options ...FuturesOption) (*Futures, error) {
	exchange := &Futures{
		client:     futures.NewClient("", ""),
		log:        log,
		precisions: make(map[string]assetPrecision),
	}

	for _, option := range options {
		option(exchange)
	}

	if _, err := exchange.client.NewServerTimeService().Do(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach binance futures: %w", err)
	}

	info, err := exchange.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange info: %w", err)
	}

	for _, symbol := range info.Symbols {
		exchange.precisions[symbol.Symbol] = assetPrecision{
			price:    symbol.PricePrecision,
			quantity: symbol.QuantityPrecision,
		}
	}

	log.Infof("binance futures connected, %d symbols", len(exchange.precisions))
	return exchange, nil
}

// OpenPositions returns the currently open futures positions. Zero-size
// entries from the position risk endpoint are skipped.
func (f *Futures) OpenPositions(ctx context.Context) ([]core.Position, error) {
	risks, err := f.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, err
	}

	positions := make([]core.Position, 0)
	for _, risk := range risks {
		amount, err := strconv.ParseFloat(risk.PositionAmt, 64)
		if err != nil || amount == 0 {
			continue
		}

		entry, err := strconv.ParseFloat(risk.EntryPrice, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse entry price for %s: %w", risk.Symbol, err)
		}

		side := core.SideTypeLong
		if amount < 0 {
			side = core.SideTypeShort
			amount = -amount
		}

		positions = append(positions, core.Position{
			Instrument: risk.Symbol,
			Side:       side,
			EntryPrice: entry,
			Quantity:   amount,
		})
	}

	return positions, nil
}

// MarkPrice returns the current mark price for an instrument, taken from
// the position risk endpoint.
func (f *Futures) MarkPrice(ctx context.Context, instrument string) (float64, error) {
	risks, err := f.client.NewGetPositionRiskService().Symbol(instrument).Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(risks) == 0 {
		return 0, fmt.Errorf("no mark price returned for %s", instrument)
	}

	return strconv.ParseFloat(risks[0].MarkPrice, 64)
}

// CancelStopOrder cancels a resting stop order by its exchange ID.
func (f *Futures) CancelStopOrder(ctx context.Context, instrument, orderID string) error {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", orderID, err)
	}

	_, err = f.client.NewCancelOrderService().
		Symbol(instrument).
		OrderID(id).
		Do(ctx)
	return err
}

// CreateStopOrder places a reduce-only stop-market order that closes the
// given position side when the mark price crosses the trigger.
func (f *Futures) CreateStopOrder(ctx context.Context, instrument string, side core.SideType, triggerPrice, quantity float64) (string, error) {
	orderSide := futures.SideTypeSell
	if side == core.SideTypeShort {
		orderSide = futures.SideTypeBuy
	}

	order, err := f.client.NewCreateOrderService().
		Symbol(instrument).
		Side(orderSide).
		Type(futures.OrderTypeStopMarket).
		WorkingType(futures.WorkingTypeMarkPrice).
		StopPrice(f.formatPrice(instrument, triggerPrice)).
		Quantity(f.formatQuantity(instrument, quantity)).
		ReduceOnly(true).
		Do(ctx)

	if err != nil {
		return "", err
	}

	return strconv.FormatInt(order.OrderID, 10), nil
}

// formatPrice rounds a price to the symbol's tick precision
func (f *Futures) formatPrice(instrument string, value float64) string {
	precision := 8
	if rules, ok := f.precisions[instrument]; ok {
		precision = rules.price
	}
	return strconv.FormatFloat(value, 'f', precision, 64)
}

// formatQuantity rounds a quantity to the symbol's step precision
func (f *Futures) formatQuantity(instrument string, value float64) string {
	precision := 8
	if rules, ok := f.precisions[instrument]; ok {
		precision = rules.quantity
	}
	return strconv.FormatFloat(value, 'f', precision, 64)
}

// Shared numeric helpers used by both the valuation engine and the
// settlement workflow. All money math that feeds the ledger goes through
// shopspring/decimal to avoid float drift on rounding boundaries.
package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// QuoteAsset is appended to bare symbols before price lookups.
	QuoteAsset = "USDT"

	// DefaultFeeRate is the taker fee applied to market closes.
	DefaultFeeRate = 0.001
)

// NormalizeSymbol upper-cases a symbol and appends the quote asset when it
// is absent, so "btc" and "BTCUSDT" both resolve to "BTCUSDT".
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, QuoteAsset) {
		s += QuoteAsset
	}
	return s
}

// BaseSymbol strips the quote asset suffix: "BTCUSDT" -> "BTC".
func BaseSymbol(symbol string) string {
	return strings.TrimSuffix(strings.ToUpper(symbol), QuoteAsset)
}

// PriceFor looks a symbol up in a quote map keyed by either the bare or the
// quote-qualified form. A price of exactly 0 is treated as unavailable.
func PriceFor(quotes map[string]float64, symbol string) (float64, bool) {
	qualified := NormalizeSymbol(symbol)

	if p, ok := quotes[qualified]; ok && p > 0 {
		return p, true
	}
	if p, ok := quotes[BaseSymbol(qualified)]; ok && p > 0 {
		return p, true
	}
	return 0, false
}

// UnrealizedPnl computes the paper profit of a position against a price.
// LONG profits when price rises above entry, SHORT when it falls below.
func UnrealizedPnl(side string, quantity, avgPrice, price float64) float64 {
	qty := math.Abs(quantity)

	q := decimal.NewFromFloat(qty)
	entry := decimal.NewFromFloat(avgPrice)
	mark := decimal.NewFromFloat(price)

	var diff decimal.Decimal
	if strings.EqualFold(side, "SHORT") {
		diff = entry.Sub(mark)
	} else {
		diff = mark.Sub(entry)
	}

	pnl, _ := diff.Mul(q).Float64()
	return pnl
}

// quantityDecimals maps price magnitude to the exchange-mandated quantity
// precision: the higher the price, the smaller the traded quantities and
// the finer the rounding.
func quantityDecimals(price float64) int32 {
	switch {
	case price >= 10000:
		return 3
	case price >= 1000:
		return 2
	case price >= 100:
		return 1
	default:
		return 0
	}
}

// RoundQuantity rounds an order quantity to the precision the exchange
// mandates for the instrument's current price magnitude.
func RoundQuantity(quantity, price float64) float64 {
	q := decimal.NewFromFloat(math.Abs(quantity))
	rounded, _ := q.Round(quantityDecimals(price)).Float64()
	return rounded
}

// Fee computes the taker fee for a fill.
func Fee(quantity, price, rate float64) float64 {
	fee, _ := decimal.NewFromFloat(math.Abs(quantity)).
		Mul(decimal.NewFromFloat(price)).
		Mul(decimal.NewFromFloat(rate)).
		Float64()
	return fee
}

// FallbackMargin derives committed margin for legacy position rows that
// predate the stored initial_margin column.
func FallbackMargin(quantity, avgPrice float64, leverage int) float64 {
	if leverage <= 0 {
		return 0
	}
	return math.Abs(quantity) * avgPrice / float64(leverage)
}

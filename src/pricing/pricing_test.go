package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbol(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"BTC", "BTCUSDT"},
		{"btc", "BTCUSDT"},
		{"BTCUSDT", "BTCUSDT"},
		{" eth ", "ETHUSDT"},
		{"", ""},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizeSymbol(tc.in), "input %q", tc.in)
	}
}

func TestPriceForAcceptsBareAndQualifiedKeys(t *testing.T) {
	quotes := map[string]float64{
		"BTCUSDT": 50000,
		"ETH":     3000,
	}

	p, ok := PriceFor(quotes, "BTC")
	require.True(t, ok)
	require.Equal(t, 50000.0, p)

	p, ok = PriceFor(quotes, "ETHUSDT")
	require.True(t, ok)
	require.Equal(t, 3000.0, p)

	_, ok = PriceFor(quotes, "SOLUSDT")
	require.False(t, ok)
}

func TestPriceForTreatsZeroAsUnavailable(t *testing.T) {
	quotes := map[string]float64{"BTCUSDT": 0}

	_, ok := PriceFor(quotes, "BTCUSDT")
	require.False(t, ok)
}

func TestUnrealizedPnl(t *testing.T) {
	cases := []struct {
		name     string
		side     string
		qty      float64
		avg      float64
		price    float64
		expected float64
	}{
		{"long in profit", "LONG", 1, 100, 120, 20},
		{"long in loss", "LONG", 2, 100, 90, -20},
		{"short in profit", "SHORT", 1, 100, 80, 20},
		{"short in loss", "SHORT", 0.5, 100, 110, -5},
		{"negative quantity uses magnitude", "LONG", -1, 100, 120, 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.InDelta(t, tc.expected, UnrealizedPnl(tc.side, tc.qty, tc.avg, tc.price), 1e-9)
		})
	}
}

// Sign of long pnl must follow sign(price - avg), inverted for shorts.
func TestUnrealizedPnlSign(t *testing.T) {
	require.Positive(t, UnrealizedPnl("LONG", 3, 100, 101))
	require.Negative(t, UnrealizedPnl("LONG", 3, 100, 99))
	require.Negative(t, UnrealizedPnl("SHORT", 3, 100, 101))
	require.Positive(t, UnrealizedPnl("SHORT", 3, 100, 99))
}

func TestRoundQuantityByPriceMagnitude(t *testing.T) {
	cases := []struct {
		qty   float64
		price float64
		want  float64
	}{
		{0.123456, 65000, 0.123}, // BTC-range: 3 decimals
		{1.2345, 3500, 1.23},     // ETH-range: 2 decimals
		{10.55, 150, 10.6},       // SOL-range: 1 decimal
		{123.456, 0.5, 123},      // sub-dollar: whole units
		{-0.1239, 65000, 0.124},  // sign dropped, rounded
	}

	for _, tc := range cases {
		require.InDelta(t, tc.want, RoundQuantity(tc.qty, tc.price), 1e-9,
			"qty %v at price %v", tc.qty, tc.price)
	}
}

func TestFee(t *testing.T) {
	// Closing 1 unit at 125 with the default rate costs 0.125.
	require.InDelta(t, 0.125, Fee(1, 125, DefaultFeeRate), 1e-9)
	require.InDelta(t, 0, Fee(0, 125, DefaultFeeRate), 1e-9)
}

func TestCloseScenarioNumbers(t *testing.T) {
	// LONG qty=1 avg=100 closed at 125, fee rate 0.001:
	// gross=25, fee=0.125, net=24.875.
	gross := UnrealizedPnl("LONG", 1, 100, 125)
	fee := Fee(1, 125, DefaultFeeRate)

	require.InDelta(t, 25.0, gross, 1e-9)
	require.InDelta(t, 0.125, fee, 1e-9)
	require.InDelta(t, 24.875, gross-fee, 1e-9)
}

func TestFallbackMargin(t *testing.T) {
	require.InDelta(t, 10, FallbackMargin(1, 100, 10), 1e-9)
	require.InDelta(t, 0, FallbackMargin(1, 100, 0), 1e-9)
	require.InDelta(t, 20, FallbackMargin(-2, 100, 10), 1e-9)
}

package usecase_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/paper_trading_engine/internal/usecase"
)

var feedStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testSymbols() []usecase.SymbolConfig {
	return []usecase.SymbolConfig{
		{Symbol: "BTC-USD", BasePrice: 50000},
		{Symbol: "ETH-USD", BasePrice: 3000},
	}
}

func TestPriceFeedSameSeedSamePath(t *testing.T) {
	a, err := usecase.NewPriceFeed(testSymbols(), 0.02, 42, feedStart)
	require.NoError(t, err)
	b, err := usecase.NewPriceFeed(testSymbols(), 0.02, 42, feedStart)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		at := feedStart.Add(time.Duration(i+1) * time.Second)
		pa := a.Advance(at)
		pb := b.Advance(at)
		require.Len(t, pa, 2)
		for j := range pa {
			assert.True(t, pa[j].Price.Equal(pb[j].Price),
				"tick %d %s: %s vs %s", i, pa[j].Symbol, pa[j].Price, pb[j].Price)
		}
	}
}

func TestPriceFeedZeroSeedDerivedFromStart(t *testing.T) {
	a, err := usecase.NewPriceFeed(testSymbols(), 0.02, 0, feedStart)
	require.NoError(t, err)
	b, err := usecase.NewPriceFeed(testSymbols(), 0.02, 0, feedStart)
	require.NoError(t, err)

	pa := a.Advance(feedStart.Add(time.Second))
	pb := b.Advance(feedStart.Add(time.Second))
	for j := range pa {
		assert.True(t, pa[j].Price.Equal(pb[j].Price), "%s: %s vs %s", pa[j].Symbol, pa[j].Price, pb[j].Price)
	}
}

func TestPriceFeedStepStaysWithinVolatility(t *testing.T) {
	const vol = 0.05
	feed, err := usecase.NewPriceFeed(testSymbols(), vol, 7, feedStart)
	require.NoError(t, err)

	prev := map[string]decimal.Decimal{}
	for _, mp := range feed.Snapshot() {
		prev[mp.Symbol] = mp.Price
	}

	for i := 0; i < 200; i++ {
		for _, mp := range feed.Advance(feedStart.Add(time.Duration(i+1) * time.Second)) {
			ratio, _ := mp.Price.Div(prev[mp.Symbol]).Sub(decimal.NewFromInt(1)).Float64()
			assert.LessOrEqual(t, ratio, vol+1e-6, "tick %d %s moved up too far", i, mp.Symbol)
			assert.GreaterOrEqual(t, ratio, -vol-1e-6, "tick %d %s moved down too far", i, mp.Symbol)
			assert.True(t, mp.Price.IsPositive(), "tick %d %s price %s", i, mp.Symbol, mp.Price)
			prev[mp.Symbol] = mp.Price
		}
	}
}

func TestPriceFeedNeverBreaksTheFloor(t *testing.T) {
	symbols := []usecase.SymbolConfig{{Symbol: "DUST-USD", BasePrice: 0.00000001}}
	feed, err := usecase.NewPriceFeed(symbols, 1, 3, feedStart)
	require.NoError(t, err)

	floor := decimal.New(1, -8)
	for i := 0; i < 100; i++ {
		prices := feed.Advance(feedStart.Add(time.Duration(i+1) * time.Second))
		require.Len(t, prices, 1)
		assert.False(t, prices[0].Price.LessThan(floor), "tick %d price %s fell through the floor", i, prices[0].Price)
	}
}

func TestPriceFeedChange24hTracksBase(t *testing.T) {
	feed, err := usecase.NewPriceFeed(testSymbols(), 0.05, 11, feedStart)
	require.NoError(t, err)

	base := map[string]float64{"BTC-USD": 50000, "ETH-USD": 3000}
	for i := 0; i < 20; i++ {
		feed.Advance(feedStart.Add(time.Duration(i+1) * time.Second))
	}
	for _, mp := range feed.Snapshot() {
		px, _ := mp.Price.Float64()
		want := (px/base[mp.Symbol] - 1) * 100
		assert.InDelta(t, want, mp.Change24h, 1e-9, "%s", mp.Symbol)
	}
}

func TestPriceFeedLatestAndHas(t *testing.T) {
	feed, err := usecase.NewPriceFeed(testSymbols(), 0.02, 42, feedStart)
	require.NoError(t, err)

	mp, ok := feed.Latest("BTC-USD")
	require.True(t, ok)
	assert.True(t, mp.Price.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, feedStart, mp.UpdatedAt)

	_, ok = feed.Latest("DOGE-USD")
	assert.False(t, ok)
	assert.True(t, feed.Has("ETH-USD"))
	assert.False(t, feed.Has("DOGE-USD"))
}

func TestPriceFeedRejectsBadUniverse(t *testing.T) {
	cases := []struct {
		name       string
		symbols    []usecase.SymbolConfig
		volatility float64
	}{
		{"zero volatility", testSymbols(), 0},
		{"volatility above one", testSymbols(), 1.5},
		{"empty symbol name", []usecase.SymbolConfig{{Symbol: "", BasePrice: 10}}, 0.02},
		{"non-positive base price", []usecase.SymbolConfig{{Symbol: "BTC-USD", BasePrice: 0}}, 0.02},
		{"duplicate symbol", []usecase.SymbolConfig{{Symbol: "BTC-USD", BasePrice: 10}, {Symbol: "BTC-USD", BasePrice: 20}}, 0.02},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := usecase.NewPriceFeed(tc.symbols, tc.volatility, 42, feedStart)
			assert.Error(t, err)
		})
	}
}

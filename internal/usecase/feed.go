package usecase

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_trading_engine/internal/domain"
)

// SymbolConfig seeds one tradable instrument.
type SymbolConfig struct {
	Symbol    string  `yaml:"symbol" json:"symbol"`
	BasePrice float64 `yaml:"base_price" json:"base_price"`
}

// minPrice is the floor no random walk can cross.
var minPrice = decimal.New(1, -8)

// PriceFeed produces a bounded random walk per symbol. Each step
// multiplies the price by 1+u*volatility with u drawn uniformly from
// [-1, 1), so the same seed always replays the same price path. The
// feed is not safe for concurrent use; the engine serializes every
// call.
type PriceFeed struct {
	rng        *rand.Rand
	volatility float64
	symbols    []string // stable walk order
	quotes     map[string]*quote
}

type quote struct {
	base    decimal.Decimal
	price   decimal.Decimal
	updated time.Time
}

// NewPriceFeed builds a feed over the given universe. A zero seed is
// replaced with the current nanosecond timestamp.
func NewPriceFeed(symbols []SymbolConfig, volatility float64, seed int64, now time.Time) (*PriceFeed, error) {
	if volatility <= 0 || volatility > 1 {
		return nil, fmt.Errorf("volatility must be in (0, 1], got %v", volatility)
	}
	if seed == 0 {
		seed = now.UnixNano()
	}
	f := &PriceFeed{
		rng:        rand.New(rand.NewSource(seed)),
		volatility: volatility,
		quotes:     make(map[string]*quote),
	}
	for _, sc := range symbols {
		if sc.Symbol == "" {
			return nil, fmt.Errorf("symbol name must not be empty")
		}
		if sc.BasePrice <= 0 {
			return nil, fmt.Errorf("base price for %s must be positive, got %v", sc.Symbol, sc.BasePrice)
		}
		if _, dup := f.quotes[sc.Symbol]; dup {
			return nil, fmt.Errorf("duplicate symbol %s", sc.Symbol)
		}
		base := decimal.NewFromFloat(sc.BasePrice)
		f.quotes[sc.Symbol] = &quote{base: base, price: base, updated: now}
		f.symbols = append(f.symbols, sc.Symbol)
	}
	return f, nil
}

// Advance walks every symbol one step and stamps the results with now.
func (f *PriceFeed) Advance(now time.Time) []domain.MarketPrice {
	out := make([]domain.MarketPrice, 0, len(f.symbols))
	for _, sym := range f.symbols {
		q := f.quotes[sym]
		u := f.rng.Float64()*2 - 1
		next := q.price.Mul(decimal.NewFromFloat(1 + u*f.volatility)).Round(8)
		if next.LessThan(minPrice) {
			next = minPrice
		}
		q.price = next
		q.updated = now
		out = append(out, f.marketPrice(sym, q))
	}
	return out
}

// Snapshot returns the latest quote for every symbol in walk order.
func (f *PriceFeed) Snapshot() []domain.MarketPrice {
	out := make([]domain.MarketPrice, 0, len(f.symbols))
	for _, sym := range f.symbols {
		out = append(out, f.marketPrice(sym, f.quotes[sym]))
	}
	return out
}

// Latest returns the current quote for one symbol.
func (f *PriceFeed) Latest(symbol string) (domain.MarketPrice, bool) {
	q, ok := f.quotes[symbol]
	if !ok {
		return domain.MarketPrice{}, false
	}
	return f.marketPrice(symbol, q), true
}

// Has reports whether symbol is part of the trading universe.
func (f *PriceFeed) Has(symbol string) bool {
	_, ok := f.quotes[symbol]
	return ok
}

func (f *PriceFeed) marketPrice(sym string, q *quote) domain.MarketPrice {
	change, _ := q.price.Sub(q.base).Div(q.base).Mul(decimal.NewFromInt(100)).Float64()
	return domain.MarketPrice{
		Symbol:    sym,
		Price:     q.price,
		Change24h: change,
		UpdatedAt: q.updated,
	}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketPrice is the feed's latest quote for one symbol. Change24h is
// the percent move of Price against the configured base price.
type MarketPrice struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Change24h float64         `json:"change_24h"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// EquityPoint is a snapshot of an agent's total worth (cash plus open
// positions marked at current prices) at a moment in time.
type EquityPoint struct {
	AgentID string          `json:"agent_id"`
	Cash    decimal.Decimal `json:"cash"`
	Equity  decimal.Decimal `json:"equity"`
	At      time.Time       `json:"at"`
}

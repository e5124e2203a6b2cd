package domain

import "github.com/shopspring/decimal"

type AgentStatus string

const (
	AgentStatusActive  AgentStatus = "active"
	AgentStatusPaused  AgentStatus = "paused"
	AgentStatusStopped AgentStatus = "stopped"
)

// Valid reports whether s is one of the known agent statuses.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusActive, AgentStatusPaused, AgentStatusStopped:
		return true
	}
	return false
}

// Position is a long holding in a single symbol. Quantity never goes
// negative; a position is removed from the portfolio once fully sold.
type Position struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	AvgCost  decimal.Decimal `json:"avg_cost"`
}

// Portfolio holds an agent's cash, open positions and order history.
// Positions keep first-acquired order, orders keep placement order.
type Portfolio struct {
	Cash      decimal.Decimal `json:"cash"`
	Positions []Position      `json:"positions"`
	Orders    []*Order        `json:"orders"`
}

// Position returns the open position for symbol, if any.
func (p *Portfolio) Position(symbol string) (*Position, bool) {
	for i := range p.Positions {
		if p.Positions[i].Symbol == symbol {
			return &p.Positions[i], true
		}
	}
	return nil, false
}

// Agent is a simulated trading account.
type Agent struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Status    AgentStatus `json:"status"`
	Portfolio Portfolio   `json:"portfolio"`
}

// Clone returns a deep copy. Orders are copied by value, so the clone
// stays frozen while the engine keeps mutating the live records.
func (a *Agent) Clone() Agent {
	out := *a
	out.Portfolio.Positions = make([]Position, len(a.Portfolio.Positions))
	copy(out.Portfolio.Positions, a.Portfolio.Positions)
	out.Portfolio.Orders = make([]*Order, len(a.Portfolio.Orders))
	for i, ord := range a.Portfolio.Orders {
		cp := *ord
		out.Portfolio.Orders[i] = &cp
	}
	return out
}

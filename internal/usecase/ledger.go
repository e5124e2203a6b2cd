package usecase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_trading_engine/internal/domain"
)

// Ledger is the sole owner of agent cash and positions. It carries no
// lock of its own: the engine's execution context is the only writer,
// and reads from outside go through the engine's snapshots.
type Ledger struct {
	feeRate decimal.Decimal
	agents  map[string]*domain.Agent
	ids     []string // registration order
}

func NewLedger(feeRate decimal.Decimal) *Ledger {
	return &Ledger{feeRate: feeRate, agents: make(map[string]*domain.Agent)}
}

func (l *Ledger) AddAgent(a *domain.Agent) error {
	if a.ID == "" {
		return fmt.Errorf("%w: agent id must not be empty", domain.ErrValidation)
	}
	if _, ok := l.agents[a.ID]; ok {
		return fmt.Errorf("%w: agent %s already registered", domain.ErrValidation, a.ID)
	}
	if a.Portfolio.Cash.IsNegative() {
		return fmt.Errorf("%w: starting cash %s is negative", domain.ErrValidation, a.Portfolio.Cash)
	}
	l.agents[a.ID] = a
	l.ids = append(l.ids, a.ID)
	return nil
}

func (l *Ledger) RemoveAgent(id string) (*domain.Agent, error) {
	a, ok := l.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, id)
	}
	delete(l.agents, id)
	for i, known := range l.ids {
		if known == id {
			l.ids = append(l.ids[:i], l.ids[i+1:]...)
			break
		}
	}
	return a, nil
}

func (l *Ledger) Agent(id string) (*domain.Agent, bool) {
	a, ok := l.agents[id]
	return a, ok
}

// Agents returns the live agent records in registration order.
func (l *Ledger) Agents() []*domain.Agent {
	out := make([]*domain.Agent, 0, len(l.ids))
	for _, id := range l.ids {
		out = append(out, l.agents[id])
	}
	return out
}

// CheckBuy verifies the agent's cash covers the projected cost.
func (l *Ledger) CheckBuy(agentID string, cost decimal.Decimal) error {
	a, ok := l.agents[agentID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownAgent, agentID)
	}
	if a.Portfolio.Cash.LessThan(cost) {
		return fmt.Errorf("%w: agent %s has %s, needs %s",
			domain.ErrInsufficientFunds, agentID, a.Portfolio.Cash, cost)
	}
	return nil
}

// CheckSell verifies the agent's open position covers the quantity.
func (l *Ledger) CheckSell(agentID, symbol string, qty decimal.Decimal) error {
	a, ok := l.agents[agentID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownAgent, agentID)
	}
	pos, held := a.Portfolio.Position(symbol)
	have := decimal.Zero
	if held {
		have = pos.Quantity
	}
	if have.LessThan(qty) {
		return fmt.Errorf("%w: agent %s holds %s %s, needs %s",
			domain.ErrInsufficientPosition, agentID, have, symbol, qty)
	}
	return nil
}

// ApplyFill settles an executed order against the agent's portfolio and
// returns the fill record. It refuses any fill that would push cash or
// a position below zero, leaving the portfolio untouched.
func (l *Ledger) ApplyFill(ord *domain.Order, price, qty decimal.Decimal, now time.Time) (domain.Fill, error) {
	a, ok := l.agents[ord.AgentID]
	if !ok {
		return domain.Fill{}, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, ord.AgentID)
	}
	notional := price.Mul(qty)
	fee := notional.Mul(l.feeRate)
	fill := domain.Fill{
		OrderID:    ord.ID,
		AgentID:    ord.AgentID,
		Symbol:     ord.Symbol,
		Side:       ord.Side,
		Price:      price,
		Quantity:   qty,
		Fee:        fee,
		ExecutedAt: now,
	}

	switch ord.Side {
	case domain.SideBuy:
		total := notional.Add(fee)
		if a.Portfolio.Cash.LessThan(total) {
			return domain.Fill{}, fmt.Errorf("%w: agent %s has %s, fill costs %s",
				domain.ErrInsufficientFunds, ord.AgentID, a.Portfolio.Cash, total)
		}
		a.Portfolio.Cash = a.Portfolio.Cash.Sub(total)
		addToPosition(&a.Portfolio, ord.Symbol, price, qty)

	case domain.SideSell:
		pos, held := a.Portfolio.Position(ord.Symbol)
		if !held || pos.Quantity.LessThan(qty) {
			have := decimal.Zero
			if held {
				have = pos.Quantity
			}
			return domain.Fill{}, fmt.Errorf("%w: agent %s holds %s %s, fill needs %s",
				domain.ErrInsufficientPosition, ord.AgentID, have, ord.Symbol, qty)
		}
		fill.RealizedPnL = price.Sub(pos.AvgCost).Mul(qty)
		a.Portfolio.Cash = a.Portfolio.Cash.Add(notional).Sub(fee)
		pos.Quantity = pos.Quantity.Sub(qty)
		if pos.Quantity.IsZero() {
			dropPosition(&a.Portfolio, ord.Symbol)
		}

	default:
		return domain.Fill{}, fmt.Errorf("%w: side %q", domain.ErrValidation, ord.Side)
	}
	return fill, nil
}

// Equity values the portfolio at the given quotes: cash plus position
// quantity times last price. A symbol with no quote is valued at its
// average cost.
func (l *Ledger) Equity(a *domain.Agent, latest func(string) (domain.MarketPrice, bool)) decimal.Decimal {
	eq := a.Portfolio.Cash
	for _, pos := range a.Portfolio.Positions {
		px := pos.AvgCost
		if mp, ok := latest(pos.Symbol); ok {
			px = mp.Price
		}
		eq = eq.Add(pos.Quantity.Mul(px))
	}
	return eq
}

func addToPosition(p *domain.Portfolio, symbol string, price, qty decimal.Decimal) {
	if pos, ok := p.Position(symbol); ok {
		newQty := pos.Quantity.Add(qty)
		cost := pos.AvgCost.Mul(pos.Quantity).Add(price.Mul(qty))
		pos.AvgCost = cost.Div(newQty)
		pos.Quantity = newQty
		return
	}
	p.Positions = append(p.Positions, domain.Position{Symbol: symbol, Quantity: qty, AvgCost: price})
}

func dropPosition(p *domain.Portfolio, symbol string) {
	for i := range p.Positions {
		if p.Positions[i].Symbol == symbol {
			p.Positions = append(p.Positions[:i], p.Positions[i+1:]...)
			return
		}
	}
}

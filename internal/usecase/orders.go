package usecase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_trading_engine/internal/domain"
)

// OrderManager admits client orders into the engine and owns the order
// registry. Validation runs in a fixed sequence so callers always see
// the first failure: agent, symbol, request shape, then the risk check.
type OrderManager struct {
	ledger *Ledger
	feed   *PriceFeed
	seq    uint64
	orders map[string]*domain.Order // every admitted order, by id
}

func NewOrderManager(ledger *Ledger, feed *PriceFeed) *OrderManager {
	return &OrderManager{
		ledger: ledger,
		feed:   feed,
		orders: make(map[string]*domain.Order),
	}
}

// Place validates req and, if every check passes, records a new pending
// order under the owning agent. Nothing is mutated on failure.
func (m *OrderManager) Place(agentID string, req domain.OrderRequest, now time.Time) (*domain.Order, error) {
	agent, ok := m.ledger.Agent(agentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, agentID)
	}
	if agent.Status != domain.AgentStatusActive {
		return nil, fmt.Errorf("%w: agent %s is %s", domain.ErrInactiveAgent, agentID, agent.Status)
	}
	if !m.feed.Has(req.Symbol) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, req.Symbol)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	ref := m.referencePrice(req)
	if req.Side == domain.SideBuy {
		if err := m.ledger.CheckBuy(agentID, req.Quantity.Mul(ref)); err != nil {
			return nil, err
		}
	} else {
		if err := m.ledger.CheckSell(agentID, req.Symbol, req.Quantity); err != nil {
			return nil, err
		}
	}

	m.seq++
	ord := &domain.Order{
		ID:         fmt.Sprintf("ord-%d", m.seq),
		AgentID:    agentID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		StopPrice:  req.StopPrice,
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
	}
	m.orders[ord.ID] = ord
	agent.Portfolio.Orders = append(agent.Portfolio.Orders, ord)
	return ord, nil
}

// Get returns the live order record for id.
func (m *OrderManager) Get(id string) (*domain.Order, bool) {
	ord, ok := m.orders[id]
	return ord, ok
}

// Cancel marks the order cancelled. Unknown ids and orders already in a
// terminal state report ErrOrderNotFound.
func (m *OrderManager) Cancel(id string) (*domain.Order, error) {
	ord, ok := m.orders[id]
	if !ok || ord.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	ord.Status = domain.OrderStatusCancelled
	return ord, nil
}

// CancelLiveFor cancels every non-terminal order in the agent's
// portfolio, in placement order, and returns the cancelled records.
func (m *OrderManager) CancelLiveFor(a *domain.Agent) []*domain.Order {
	var out []*domain.Order
	for _, ord := range a.Portfolio.Orders {
		if !ord.Status.Terminal() {
			ord.Status = domain.OrderStatusCancelled
			out = append(out, ord)
		}
	}
	return out
}

func validateRequest(req domain.OrderRequest) error {
	if !req.Side.Valid() {
		return fmt.Errorf("%w: side %q", domain.ErrValidation, req.Side)
	}
	if !req.Type.Valid() {
		return fmt.Errorf("%w: type %q", domain.ErrValidation, req.Type)
	}
	if !req.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity %s must be positive", domain.ErrValidation, req.Quantity)
	}
	needLimit := req.Type == domain.OrderTypeLimit || req.Type == domain.OrderTypeStopLimit
	needStop := req.Type == domain.OrderTypeStop || req.Type == domain.OrderTypeStopLimit
	if needLimit && !req.LimitPrice.IsPositive() {
		return fmt.Errorf("%w: %s order needs a positive limit price", domain.ErrValidation, req.Type)
	}
	if needStop && !req.StopPrice.IsPositive() {
		return fmt.Errorf("%w: %s order needs a positive stop price", domain.ErrValidation, req.Type)
	}
	return nil
}

// referencePrice is what the admission risk check values one unit at:
// the limit price when the order carries one, otherwise the current
// market price.
func (m *OrderManager) referencePrice(req domain.OrderRequest) decimal.Decimal {
	switch req.Type {
	case domain.OrderTypeLimit, domain.OrderTypeStopLimit:
		return req.LimitPrice
	}
	mp, _ := m.feed.Latest(req.Symbol)
	return mp.Price
}

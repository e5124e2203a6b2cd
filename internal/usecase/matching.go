package usecase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_trading_engine/internal/domain"
)

// Executor holds the queue of resting orders and runs the trigger and
// fill rules against fresh quotes. All methods run inside the engine's
// execution context.
type Executor struct {
	ledger *Ledger
	feed   *PriceFeed
	queue  []*domain.Order // FIFO in admission order
}

func NewExecutor(ledger *Ledger, feed *PriceFeed) *Executor {
	return &Executor{ledger: ledger, feed: feed}
}

// Enqueue adds an admitted order to the back of the resting queue.
func (x *Executor) Enqueue(ord *domain.Order) {
	x.queue = append(x.queue, ord)
}

// Pending counts the resting orders that are still live.
func (x *Executor) Pending() int {
	n := 0
	for _, ord := range x.queue {
		if !ord.Status.Terminal() {
			n++
		}
	}
	return n
}

// EvaluateTick walks the queue in admission order, fills or rejects
// every order whose trigger condition holds, and drops terminal orders
// from the queue. Earlier orders settle first, so a later order is
// judged against the portfolio as the earlier fills left it.
func (x *Executor) EvaluateTick(now time.Time, batch *eventBatch) {
	kept := x.queue[:0]
	for _, ord := range x.queue {
		if ord.Status.Terminal() {
			continue // cancelled since the last tick
		}
		mp, ok := x.feed.Latest(ord.Symbol)
		if !ok {
			kept = append(kept, ord)
			continue
		}
		price, ready := trigger(ord, mp.Price)
		if !ready {
			kept = append(kept, ord)
			continue
		}
		x.settle(ord, price, now, batch)
	}
	x.queue = kept
}

// ExecuteMarket fills a just-admitted market order at the current quote
// without it ever entering the queue.
func (x *Executor) ExecuteMarket(ord *domain.Order, now time.Time, batch *eventBatch) {
	mp, ok := x.feed.Latest(ord.Symbol)
	if !ok {
		ord.Status = domain.OrderStatusRejected
		batch.orderRejected(*ord, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, ord.Symbol))
		return
	}
	x.settle(ord, mp.Price, now, batch)
}

// trigger decides whether ord executes at the current price, and at
// what fill price. Limit fills take the better of the two prices for
// the order's side. A stop_limit whose stop level is crossed turns
// active here and is then judged by its limit rule in the same pass.
func trigger(ord *domain.Order, current decimal.Decimal) (decimal.Decimal, bool) {
	switch ord.Type {
	case domain.OrderTypeMarket:
		return current, true

	case domain.OrderTypeLimit:
		if ord.Side == domain.SideBuy && current.LessThanOrEqual(ord.LimitPrice) {
			return decimal.Min(ord.LimitPrice, current), true
		}
		if ord.Side == domain.SideSell && current.GreaterThanOrEqual(ord.LimitPrice) {
			return decimal.Max(ord.LimitPrice, current), true
		}

	case domain.OrderTypeStop:
		if ord.Side == domain.SideBuy && current.GreaterThanOrEqual(ord.StopPrice) {
			return current, true
		}
		if ord.Side == domain.SideSell && current.LessThanOrEqual(ord.StopPrice) {
			return current, true
		}

	case domain.OrderTypeStopLimit:
		if ord.Status == domain.OrderStatusPending {
			crossed := (ord.Side == domain.SideBuy && current.GreaterThanOrEqual(ord.StopPrice)) ||
				(ord.Side == domain.SideSell && current.LessThanOrEqual(ord.StopPrice))
			if !crossed {
				return decimal.Decimal{}, false
			}
			ord.Status = domain.OrderStatusActive
		}
		if ord.Side == domain.SideBuy && current.LessThanOrEqual(ord.LimitPrice) {
			return decimal.Min(ord.LimitPrice, current), true
		}
		if ord.Side == domain.SideSell && current.GreaterThanOrEqual(ord.LimitPrice) {
			return decimal.Max(ord.LimitPrice, current), true
		}
	}
	return decimal.Decimal{}, false
}

// settle re-runs the risk check at the actual fill price, then applies
// the fill. A failed check rejects the order instead of returning an
// error: admission happened in an earlier tick and the portfolio may
// have moved on since.
func (x *Executor) settle(ord *domain.Order, price decimal.Decimal, now time.Time, batch *eventBatch) {
	var err error
	if ord.Side == domain.SideBuy {
		err = x.ledger.CheckBuy(ord.AgentID, ord.Quantity.Mul(price))
	} else {
		err = x.ledger.CheckSell(ord.AgentID, ord.Symbol, ord.Quantity)
	}
	var fill domain.Fill
	if err == nil {
		fill, err = x.ledger.ApplyFill(ord, price, ord.Quantity, now)
	}
	if err != nil {
		ord.Status = domain.OrderStatusRejected
		batch.orderRejected(*ord, err)
		return
	}

	ord.Status = domain.OrderStatusFilled
	ord.FilledAt = now
	ord.FilledPrice = price
	ord.FilledQty = ord.Quantity
	batch.orderFilled(*ord, fill)

	if a, ok := x.ledger.Agent(ord.AgentID); ok {
		batch.agentUpdate(AgentUpdateEvent{
			Agent:  a.Clone(),
			Equity: x.ledger.Equity(a, x.feed.Latest),
			At:     now,
		})
	}
}

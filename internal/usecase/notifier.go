package usecase

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_trading_engine/internal/domain"
	"go.uber.org/zap"
)

// PriceUpdateEvent carries the full quote snapshot produced by one tick.
type PriceUpdateEvent struct {
	Prices  []domain.MarketPrice `json:"prices"`
	At      time.Time            `json:"at"`
	Elapsed time.Duration        `json:"elapsed"`
}

// OrderPlacedEvent announces an order that passed admission.
type OrderPlacedEvent struct {
	Order domain.Order `json:"order"`
}

// OrderFilledEvent announces an executed order together with its fill.
type OrderFilledEvent struct {
	Order domain.Order `json:"order"`
	Fill  domain.Fill  `json:"fill"`
}

// OrderRejectedEvent announces an order rejected after admission, when
// the risk check no longer holds at execution time. Code is a stable
// machine-readable class of the reason.
type OrderRejectedEvent struct {
	Order  domain.Order `json:"order"`
	Reason string       `json:"reason"`
	Code   string       `json:"code"`
}

// AgentUpdateEvent carries a fresh snapshot of an agent after its cash,
// positions or status changed.
type AgentUpdateEvent struct {
	Agent  domain.Agent    `json:"agent"`
	Equity decimal.Decimal `json:"equity"`
	At     time.Time       `json:"at"`
}

// Subscription identifies one registered handler. Tokens are unique
// across all channels of a Notifier.
type Subscription uint64

type streamSub[T any] struct {
	id Subscription
	fn func(T)
}

type stream[T any] struct {
	name string
	subs []streamSub[T]
}

func (s *stream[T]) add(id Subscription, fn func(T)) {
	s.subs = append(s.subs, streamSub[T]{id: id, fn: fn})
}

func (s *stream[T]) remove(id Subscription) bool {
	for i := range s.subs {
		if s.subs[i].id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Notifier fans events out to typed subscriber lists. Delivery is
// synchronous and in subscription order; a panicking handler is logged
// and skipped so one bad subscriber cannot take the engine down.
type Notifier struct {
	mu     sync.RWMutex
	logger *zap.Logger
	nextID Subscription

	priceUpdate   stream[PriceUpdateEvent]
	orderPlaced   stream[OrderPlacedEvent]
	orderFilled   stream[OrderFilledEvent]
	orderRejected stream[OrderRejectedEvent]
	agentUpdate   stream[AgentUpdateEvent]
}

func NewNotifier(logger *zap.Logger) *Notifier {
	n := &Notifier{logger: logger}
	n.priceUpdate.name = "price_update"
	n.orderPlaced.name = "order_placed"
	n.orderFilled.name = "order_filled"
	n.orderRejected.name = "order_rejected"
	n.agentUpdate.name = "agent_update"
	return n
}

func (n *Notifier) SubscribePriceUpdate(fn func(PriceUpdateEvent)) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.priceUpdate.add(n.nextID, fn)
	return n.nextID
}

func (n *Notifier) SubscribeOrderPlaced(fn func(OrderPlacedEvent)) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.orderPlaced.add(n.nextID, fn)
	return n.nextID
}

func (n *Notifier) SubscribeOrderFilled(fn func(OrderFilledEvent)) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.orderFilled.add(n.nextID, fn)
	return n.nextID
}

func (n *Notifier) SubscribeOrderRejected(fn func(OrderRejectedEvent)) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.orderRejected.add(n.nextID, fn)
	return n.nextID
}

func (n *Notifier) SubscribeAgentUpdate(fn func(AgentUpdateEvent)) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.agentUpdate.add(n.nextID, fn)
	return n.nextID
}

// Unsubscribe removes the handler behind sub. Unknown or already
// removed tokens are a no-op.
func (n *Notifier) Unsubscribe(sub Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.priceUpdate.remove(sub) {
		return
	}
	if n.orderPlaced.remove(sub) {
		return
	}
	if n.orderFilled.remove(sub) {
		return
	}
	if n.orderRejected.remove(sub) {
		return
	}
	n.agentUpdate.remove(sub)
}

func (n *Notifier) PublishPriceUpdate(ev PriceUpdateEvent) {
	publish(n, &n.priceUpdate, ev)
}

func (n *Notifier) PublishOrderPlaced(ev OrderPlacedEvent) {
	publish(n, &n.orderPlaced, ev)
}

func (n *Notifier) PublishOrderFilled(ev OrderFilledEvent) {
	publish(n, &n.orderFilled, ev)
}

func (n *Notifier) PublishOrderRejected(ev OrderRejectedEvent) {
	publish(n, &n.orderRejected, ev)
}

func (n *Notifier) PublishAgentUpdate(ev AgentUpdateEvent) {
	publish(n, &n.agentUpdate, ev)
}

// publish snapshots the subscriber list, then invokes handlers outside
// the lock so a handler may subscribe or unsubscribe during delivery.
func publish[T any](n *Notifier, s *stream[T], ev T) {
	n.mu.RLock()
	subs := make([]streamSub[T], len(s.subs))
	copy(subs, s.subs)
	n.mu.RUnlock()

	for _, sub := range subs {
		invoke(n.logger, s.name, sub, ev)
	}
}

func invoke[T any](logger *zap.Logger, channel string, sub streamSub[T], ev T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Event handler panicked",
				zap.String("channel", channel),
				zap.Uint64("subscription", uint64(sub.id)),
				zap.Any("panic", r))
		}
	}()
	sub.fn(ev)
}

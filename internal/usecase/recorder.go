package usecase

import (
	"context"
	"time"

	"github.com/vitos/paper_trading_engine/internal/domain"
	"go.uber.org/zap"
)

const recordTimeout = 5 * time.Second

// TradeRecorder journals fills and equity snapshots to storage as they
// happen. It runs inside event delivery, so each write gets a short
// timeout instead of blocking the publisher indefinitely.
type TradeRecorder struct {
	repo   domain.TradeRepository
	logger *zap.Logger
	subs   []Subscription
}

func NewTradeRecorder(repo domain.TradeRepository, logger *zap.Logger) *TradeRecorder {
	return &TradeRecorder{repo: repo, logger: logger}
}

// Attach subscribes the recorder to the fill and agent streams.
func (r *TradeRecorder) Attach(n *Notifier) {
	r.subs = append(r.subs,
		n.SubscribeOrderFilled(r.onOrderFilled),
		n.SubscribeAgentUpdate(r.onAgentUpdate),
	)
}

// Detach removes the recorder's subscriptions.
func (r *TradeRecorder) Detach(n *Notifier) {
	for _, sub := range r.subs {
		n.Unsubscribe(sub)
	}
	r.subs = nil
}

func (r *TradeRecorder) onOrderFilled(ev OrderFilledEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	fill := ev.Fill
	if err := r.repo.SaveFill(ctx, &fill); err != nil {
		r.logger.Error("Failed to save fill",
			zap.String("order_id", fill.OrderID),
			zap.Error(err))
	}
}

func (r *TradeRecorder) onAgentUpdate(ev AgentUpdateEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	point := &domain.EquityPoint{
		AgentID: ev.Agent.ID,
		Cash:    ev.Agent.Portfolio.Cash,
		Equity:  ev.Equity,
		At:      ev.At,
	}
	if err := r.repo.SaveEquityPoint(ctx, point); err != nil {
		r.logger.Error("Failed to save equity point",
			zap.String("agent_id", ev.Agent.ID),
			zap.Error(err))
	}
}

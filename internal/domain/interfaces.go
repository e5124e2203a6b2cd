package domain

import "context"

// TradeRepository defines storage operations for the execution journal.
type TradeRepository interface {
	SaveFill(ctx context.Context, fill *Fill) error
	ListFills(ctx context.Context, limit int) ([]*Fill, error)
	ListFillsByAgent(ctx context.Context, agentID string, limit int) ([]*Fill, error)

	SaveEquityPoint(ctx context.Context, point *EquityPoint) error
	ListEquityPoints(ctx context.Context, agentID string, limit int) ([]*EquityPoint, error)
}

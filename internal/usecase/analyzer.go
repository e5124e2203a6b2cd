package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_trading_engine/internal/domain"
	"go.uber.org/zap"
)

// AgentSummary aggregates one agent's journaled activity.
type AgentSummary struct {
	AgentID     string
	Trades      int
	Buys        int
	Sells       int
	Volume      decimal.Decimal // filled quantity across both sides
	Notional    decimal.Decimal // price x quantity across both sides
	Fees        decimal.Decimal
	RealizedPnL decimal.Decimal
	LastEquity  decimal.Decimal
	LastTradeAt time.Time
}

// JournalAnalyzer builds offline performance summaries from the fill
// and equity journal.
type JournalAnalyzer struct {
	repo   domain.TradeRepository
	logger *zap.Logger
}

func NewJournalAnalyzer(repo domain.TradeRepository, logger *zap.Logger) *JournalAnalyzer {
	return &JournalAnalyzer{repo: repo, logger: logger}
}

// AgentSummaries aggregates up to limit journaled fills per agent and
// stamps each summary with the agent's latest recorded equity. Results
// come back sorted by realized PnL, best first.
func (s *JournalAnalyzer) AgentSummaries(ctx context.Context, limit int) ([]AgentSummary, error) {
	fills, err := s.repo.ListFills(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list fills: %w", err)
	}

	byAgent := make(map[string]*AgentSummary)
	var ids []string
	for _, f := range fills {
		sum, ok := byAgent[f.AgentID]
		if !ok {
			sum = &AgentSummary{AgentID: f.AgentID}
			byAgent[f.AgentID] = sum
			ids = append(ids, f.AgentID)
		}
		sum.Trades++
		if f.Side == domain.SideBuy {
			sum.Buys++
		} else {
			sum.Sells++
		}
		sum.Volume = sum.Volume.Add(f.Quantity)
		sum.Notional = sum.Notional.Add(f.Price.Mul(f.Quantity))
		sum.Fees = sum.Fees.Add(f.Fee)
		sum.RealizedPnL = sum.RealizedPnL.Add(f.RealizedPnL)
		if f.ExecutedAt.After(sum.LastTradeAt) {
			sum.LastTradeAt = f.ExecutedAt
		}
	}

	for _, id := range ids {
		points, err := s.repo.ListEquityPoints(ctx, id, 1)
		if err != nil {
			s.logger.Error("Failed to load equity history",
				zap.String("agent_id", id),
				zap.Error(err))
			continue
		}
		if len(points) > 0 {
			byAgent[id].LastEquity = points[0].Equity
		}
	}

	out := make([]AgentSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byAgent[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RealizedPnL.GreaterThan(out[j].RealizedPnL)
	})
	return out, nil
}

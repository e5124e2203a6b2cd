package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/paper_trading_engine/internal/domain"
)

// SQLiteStore is the execution journal. Money columns are stored as
// TEXT so decimal values round-trip without float drift.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS fills (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			price TEXT NOT NULL,
			quantity TEXT NOT NULL,
			fee TEXT NOT NULL,
			realized_pnl TEXT NOT NULL,
			executed_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fills_agent ON fills(agent_id);`,
		`CREATE TABLE IF NOT EXISTS equity_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent_id TEXT NOT NULL,
			cash TEXT NOT NULL,
			equity TEXT NOT NULL,
			at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_equity_points_agent ON equity_points(agent_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// TradeRepository Implementation

func (s *SQLiteStore) SaveFill(ctx context.Context, fill *domain.Fill) error {
	query := `INSERT INTO fills (order_id, agent_id, symbol, side, price, quantity, fee, realized_pnl, executed_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		fill.OrderID, fill.AgentID, fill.Symbol, string(fill.Side),
		fill.Price, fill.Quantity, fill.Fee, fill.RealizedPnL, fill.ExecutedAt)
	return err
}

func (s *SQLiteStore) ListFills(ctx context.Context, limit int) ([]*domain.Fill, error) {
	query := `SELECT order_id, agent_id, symbol, side, price, quantity, fee, realized_pnl, executed_at
			  FROM fills ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFills(rows)
}

func (s *SQLiteStore) ListFillsByAgent(ctx context.Context, agentID string, limit int) ([]*domain.Fill, error) {
	query := `SELECT order_id, agent_id, symbol, side, price, quantity, fee, realized_pnl, executed_at
			  FROM fills WHERE agent_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFills(rows)
}

func scanFills(rows *sql.Rows) ([]*domain.Fill, error) {
	var fills []*domain.Fill
	for rows.Next() {
		var f domain.Fill
		if err := rows.Scan(&f.OrderID, &f.AgentID, &f.Symbol, &f.Side,
			&f.Price, &f.Quantity, &f.Fee, &f.RealizedPnL, &f.ExecutedAt); err != nil {
			return nil, err
		}
		fills = append(fills, &f)
	}
	return fills, rows.Err()
}

func (s *SQLiteStore) SaveEquityPoint(ctx context.Context, point *domain.EquityPoint) error {
	query := `INSERT INTO equity_points (agent_id, cash, equity, at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, point.AgentID, point.Cash, point.Equity, point.At)
	return err
}

func (s *SQLiteStore) ListEquityPoints(ctx context.Context, agentID string, limit int) ([]*domain.EquityPoint, error) {
	query := `SELECT agent_id, cash, equity, at
			  FROM equity_points WHERE agent_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []*domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		if err := rows.Scan(&p.AgentID, &p.Cash, &p.Equity, &p.At); err != nil {
			return nil, err
		}
		points = append(points, &p)
	}
	return points, rows.Err()
}

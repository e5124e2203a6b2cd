package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is one of the known order sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// Valid reports whether t is one of the known order types.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusActive    OrderStatus = "active"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// OrderRequest is the client-supplied part of an order. Price fields that
// do not apply to the order type are left as the zero decimal.
type OrderRequest struct {
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Type       OrderType       `json:"type"`
	Quantity   decimal.Decimal `json:"quantity"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	StopPrice  decimal.Decimal `json:"stop_price"`
}

// Order is an admitted order tracked by the engine. Once Status turns
// terminal the record is never mutated again.
type Order struct {
	ID          string          `json:"id"`
	AgentID     string          `json:"agent_id"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Type        OrderType       `json:"type"`
	Quantity    decimal.Decimal `json:"quantity"`
	LimitPrice  decimal.Decimal `json:"limit_price"`
	StopPrice   decimal.Decimal `json:"stop_price"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	FilledAt    time.Time       `json:"filled_at"`
	FilledPrice decimal.Decimal `json:"filled_price"`
	FilledQty   decimal.Decimal `json:"filled_qty"`
}

// Fill records one executed trade settled against a portfolio.
type Fill struct {
	OrderID     string          `json:"order_id"`
	AgentID     string          `json:"agent_id"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Fee         decimal.Decimal `json:"fee"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vitos/paper_trading_engine/internal/usecase"
)

var (
	// Order metrics
	ordersPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_engine_orders_placed_total",
			Help: "Total number of orders admitted",
		},
		[]string{"symbol", "side", "type"},
	)

	ordersFilledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_engine_orders_filled_total",
			Help: "Total number of orders filled",
		},
		[]string{"symbol", "side"},
	)

	ordersRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_engine_orders_rejected_total",
			Help: "Total number of orders rejected at execution time",
		},
		[]string{"symbol", "reason"},
	)

	// Trade metrics
	tradeVolumeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_engine_trade_volume_total",
			Help: "Total filled quantity in base units",
		},
		[]string{"symbol", "side"},
	)

	tradeAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_engine_trade_amount_total",
			Help: "Total filled notional in quote currency",
		},
		[]string{"symbol", "side"},
	)

	feesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paper_engine_fees_total",
			Help: "Total fees charged in quote currency",
		},
		[]string{"symbol"},
	)

	// Portfolio metrics
	agentCash = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paper_engine_agent_cash",
			Help: "Agent cash balance in quote currency",
		},
		[]string{"agent"},
	)

	agentEquity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paper_engine_agent_equity",
			Help: "Agent equity at current prices",
		},
		[]string{"agent"},
	)

	// Market metrics
	lastPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paper_engine_last_price",
			Help: "Last simulated price per symbol",
		},
		[]string{"symbol"},
	)

	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paper_engine_tick_duration_seconds",
			Help:    "Tick evaluation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)
)

// Bridge mirrors engine events into the Prometheus collectors.
type Bridge struct {
	subs []usecase.Subscription
}

// Attach subscribes a bridge to every stream of the notifier.
func Attach(n *usecase.Notifier) *Bridge {
	b := &Bridge{}
	b.subs = append(b.subs,
		n.SubscribePriceUpdate(b.onPriceUpdate),
		n.SubscribeOrderPlaced(b.onOrderPlaced),
		n.SubscribeOrderFilled(b.onOrderFilled),
		n.SubscribeOrderRejected(b.onOrderRejected),
		n.SubscribeAgentUpdate(b.onAgentUpdate),
	)
	return b
}

// Detach removes the bridge's subscriptions.
func (b *Bridge) Detach(n *usecase.Notifier) {
	for _, sub := range b.subs {
		n.Unsubscribe(sub)
	}
	b.subs = nil
}

func (b *Bridge) onPriceUpdate(ev usecase.PriceUpdateEvent) {
	for _, mp := range ev.Prices {
		px, _ := mp.Price.Float64()
		lastPrice.WithLabelValues(mp.Symbol).Set(px)
	}
	tickDuration.Observe(ev.Elapsed.Seconds())
}

func (b *Bridge) onOrderPlaced(ev usecase.OrderPlacedEvent) {
	ord := ev.Order
	ordersPlacedTotal.WithLabelValues(ord.Symbol, string(ord.Side), string(ord.Type)).Inc()
}

func (b *Bridge) onOrderFilled(ev usecase.OrderFilledEvent) {
	fill := ev.Fill
	qty, _ := fill.Quantity.Float64()
	amount, _ := fill.Price.Mul(fill.Quantity).Float64()
	fee, _ := fill.Fee.Float64()
	ordersFilledTotal.WithLabelValues(fill.Symbol, string(fill.Side)).Inc()
	tradeVolumeTotal.WithLabelValues(fill.Symbol, string(fill.Side)).Add(qty)
	tradeAmountTotal.WithLabelValues(fill.Symbol, string(fill.Side)).Add(amount)
	feesTotal.WithLabelValues(fill.Symbol).Add(fee)
}

func (b *Bridge) onOrderRejected(ev usecase.OrderRejectedEvent) {
	ordersRejectedTotal.WithLabelValues(ev.Order.Symbol, ev.Code).Inc()
}

func (b *Bridge) onAgentUpdate(ev usecase.AgentUpdateEvent) {
	cash, _ := ev.Agent.Portfolio.Cash.Float64()
	equity, _ := ev.Equity.Float64()
	agentCash.WithLabelValues(ev.Agent.ID).Set(cash)
	agentEquity.WithLabelValues(ev.Agent.ID).Set(equity)
}

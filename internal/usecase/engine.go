package usecase

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_trading_engine/internal/domain"
	"go.uber.org/zap"
)

// AgentConfig seeds one trading account.
type AgentConfig struct {
	ID   string  `yaml:"id" json:"id"`
	Name string  `yaml:"name" json:"name"`
	Cash float64 `yaml:"cash" json:"cash"`
}

// Config carries everything the engine needs at construction time.
type Config struct {
	TickInterval time.Duration  `yaml:"tick_interval" json:"tick_interval"`
	Volatility   float64        `yaml:"volatility" json:"volatility"`
	FeeRate      float64        `yaml:"fee_rate" json:"fee_rate"`
	Seed         int64          `yaml:"seed" json:"seed"`
	Symbols      []SymbolConfig `yaml:"symbols" json:"symbols"`
	Agents       []AgentConfig  `yaml:"agents" json:"agents"`
}

// Validate checks the configuration before an engine is built from it.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval)
	}
	if c.Volatility <= 0 || c.Volatility > 1 {
		return fmt.Errorf("volatility must be in (0, 1], got %v", c.Volatility)
	}
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		return fmt.Errorf("fee_rate must be in [0, 1), got %v", c.FeeRate)
	}
	for _, ac := range c.Agents {
		if ac.ID == "" {
			return fmt.Errorf("agent id must not be empty")
		}
		if ac.Cash < 0 {
			return fmt.Errorf("agent %s starting cash must not be negative, got %v", ac.ID, ac.Cash)
		}
	}
	return nil
}

// eventBatch queues events composed inside the engine's lock so they
// can be published after it is released. Handlers may then call back
// into the engine without deadlocking.
type eventBatch struct {
	items    []func(*Notifier)
	filled   int
	rejected int
}

func (b *eventBatch) orderPlaced(ord domain.Order) {
	b.items = append(b.items, func(n *Notifier) {
		n.PublishOrderPlaced(OrderPlacedEvent{Order: ord})
	})
}

func (b *eventBatch) orderFilled(ord domain.Order, fill domain.Fill) {
	b.filled++
	b.items = append(b.items, func(n *Notifier) {
		n.PublishOrderFilled(OrderFilledEvent{Order: ord, Fill: fill})
	})
}

func (b *eventBatch) orderRejected(ord domain.Order, reason error) {
	b.rejected++
	msg, code := reason.Error(), rejectCode(reason)
	b.items = append(b.items, func(n *Notifier) {
		n.PublishOrderRejected(OrderRejectedEvent{Order: ord, Reason: msg, Code: code})
	})
}

func rejectCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInsufficientPosition):
		return "insufficient_position"
	case errors.Is(err, domain.ErrUnknownAgent):
		return "unknown_agent"
	case errors.Is(err, domain.ErrUnknownSymbol):
		return "unknown_symbol"
	default:
		return "other"
	}
}

func (b *eventBatch) agentUpdate(ev AgentUpdateEvent) {
	b.items = append(b.items, func(n *Notifier) {
		n.PublishAgentUpdate(ev)
	})
}

func (b *eventBatch) publish(n *Notifier) {
	for _, fn := range b.items {
		fn(n)
	}
}

// Engine ties the feed, ledger, order manager and executor together
// behind a single lock. Ticks and client calls all run through that
// lock, so every order is judged against a consistent portfolio and
// queue.
type Engine struct {
	cfg      Config
	logger   *zap.Logger
	clock    Clock
	notifier *Notifier

	mu     sync.RWMutex
	feed   *PriceFeed
	ledger *Ledger
	orders *OrderManager
	exec   *Executor

	running bool
	started time.Time
	stop    chan struct{}
	done    chan struct{}
}

// New builds a stopped engine from cfg. Production callers pass
// SystemClock(); tests inject a ManualClock and drive Tick directly.
func New(cfg Config, clock Clock, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	now := clock.Now()
	feed, err := NewPriceFeed(cfg.Symbols, cfg.Volatility, cfg.Seed, now)
	if err != nil {
		return nil, fmt.Errorf("price feed: %w", err)
	}
	ledger := NewLedger(decimal.NewFromFloat(cfg.FeeRate))
	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		clock:    clock,
		notifier: NewNotifier(logger),
		feed:     feed,
		ledger:   ledger,
		orders:   NewOrderManager(ledger, feed),
		exec:     NewExecutor(ledger, feed),
	}
	for _, ac := range cfg.Agents {
		agent := &domain.Agent{
			ID:     ac.ID,
			Name:   ac.Name,
			Status: domain.AgentStatusActive,
			Portfolio: domain.Portfolio{
				Cash: decimal.NewFromFloat(ac.Cash),
			},
		}
		if err := ledger.AddAgent(agent); err != nil {
			return nil, fmt.Errorf("agent %s: %w", ac.ID, err)
		}
	}
	return e, nil
}

// Notifier exposes the engine's event hub for subscribers.
func (e *Engine) Notifier() *Notifier { return e.notifier }

// Start launches the tick loop. Starting a running engine is an error.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	e.running = true
	e.started = e.clock.Now()
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	stop, done := e.stop, e.done
	e.mu.Unlock()

	go e.run(stop, done)
	e.logger.Info("Engine started",
		zap.Duration("tick_interval", e.cfg.TickInterval),
		zap.Int("symbols", len(e.cfg.Symbols)),
		zap.Int("agents", len(e.cfg.Agents)))
	return nil
}

func (e *Engine) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := e.clock.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C():
			e.Tick()
		case <-stop:
			return
		}
	}
}

// Stop halts the tick loop and waits for it to drain. Stopping a
// stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	stop, done := e.stop, e.done
	e.mu.Unlock()

	close(stop)
	<-done
	e.logger.Info("Engine stopped")
}

// Running reports whether the tick loop is live.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Tick runs one simulation step: advance every quote, then evaluate the
// resting queue against the new prices in admission order. Events are
// published after the lock is released so handlers can call straight
// back into the engine. Tests drive the engine deterministically by
// calling Tick themselves.
func (e *Engine) Tick() {
	start := e.clock.Now()
	var batch eventBatch

	e.mu.Lock()
	prices := e.feed.Advance(start)
	e.exec.EvaluateTick(start, &batch)
	pending := e.exec.Pending()
	e.mu.Unlock()

	if len(prices) == 0 {
		return
	}
	elapsed := e.clock.Now().Sub(start)
	e.notifier.PublishPriceUpdate(PriceUpdateEvent{Prices: prices, At: start, Elapsed: elapsed})
	batch.publish(e.notifier)

	if batch.filled > 0 || batch.rejected > 0 {
		e.logger.Info("Tick settled orders",
			zap.Int("filled", batch.filled),
			zap.Int("rejected", batch.rejected),
			zap.Int("pending", pending),
			zap.Duration("elapsed", elapsed))
	}
}

// PlaceOrder admits an order for agentID and, for market orders,
// executes it against the current quote before returning. The returned
// record is the caller's own copy; later status changes do not touch
// it.
func (e *Engine) PlaceOrder(agentID string, req domain.OrderRequest) (domain.Order, error) {
	var batch eventBatch

	e.mu.Lock()
	now := e.clock.Now()
	ord, err := e.orders.Place(agentID, req, now)
	if err != nil {
		e.mu.Unlock()
		e.logger.Debug("Order refused at admission",
			zap.String("agent_id", agentID),
			zap.String("symbol", req.Symbol),
			zap.Error(err))
		return domain.Order{}, err
	}
	batch.orderPlaced(*ord)
	if ord.Type == domain.OrderTypeMarket {
		e.exec.ExecuteMarket(ord, now, &batch)
	} else {
		e.exec.Enqueue(ord)
	}
	snap := *ord
	e.mu.Unlock()

	batch.publish(e.notifier)
	e.logger.Info("Order placed",
		zap.String("order_id", snap.ID),
		zap.String("agent_id", snap.AgentID),
		zap.String("symbol", snap.Symbol),
		zap.String("side", string(snap.Side)),
		zap.String("type", string(snap.Type)),
		zap.String("status", string(snap.Status)))
	return snap, nil
}

// CancelOrder cancels a resting order. Orders already in a terminal
// state report ErrOrderNotFound, same as unknown ids.
func (e *Engine) CancelOrder(orderID string) error {
	e.mu.Lock()
	ord, err := e.orders.Cancel(orderID)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.logger.Info("Order cancelled",
		zap.String("order_id", ord.ID),
		zap.String("agent_id", ord.AgentID))
	return nil
}

// RegisterAgent adds a new active account with the given starting cash.
func (e *Engine) RegisterAgent(id, name string, cash decimal.Decimal) (domain.Agent, error) {
	agent := &domain.Agent{
		ID:     id,
		Name:   name,
		Status: domain.AgentStatusActive,
		Portfolio: domain.Portfolio{
			Cash: cash,
		},
	}

	e.mu.Lock()
	if err := e.ledger.AddAgent(agent); err != nil {
		e.mu.Unlock()
		return domain.Agent{}, err
	}
	ev := AgentUpdateEvent{
		Agent:  agent.Clone(),
		Equity: e.ledger.Equity(agent, e.feed.Latest),
		At:     e.clock.Now(),
	}
	e.mu.Unlock()

	e.notifier.PublishAgentUpdate(ev)
	e.logger.Info("Agent registered",
		zap.String("agent_id", id),
		zap.String("cash", cash.String()))
	return ev.Agent, nil
}

// SetAgentStatus moves an agent between active, paused and stopped.
// Resting orders are left alone; pausing only gates new admissions.
func (e *Engine) SetAgentStatus(id string, status domain.AgentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: agent status %q", domain.ErrValidation, status)
	}

	e.mu.Lock()
	agent, ok := e.ledger.Agent(id)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrUnknownAgent, id)
	}
	agent.Status = status
	ev := AgentUpdateEvent{
		Agent:  agent.Clone(),
		Equity: e.ledger.Equity(agent, e.feed.Latest),
		At:     e.clock.Now(),
	}
	e.mu.Unlock()

	e.notifier.PublishAgentUpdate(ev)
	e.logger.Info("Agent status changed",
		zap.String("agent_id", id),
		zap.String("status", string(status)))
	return nil
}

// RemoveAgent cancels the agent's resting orders and deletes the
// account.
func (e *Engine) RemoveAgent(id string) error {
	e.mu.Lock()
	agent, ok := e.ledger.Agent(id)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrUnknownAgent, id)
	}
	cancelled := e.orders.CancelLiveFor(agent)
	_, _ = e.ledger.RemoveAgent(id)
	e.mu.Unlock()

	e.logger.Info("Agent removed",
		zap.String("agent_id", id),
		zap.Int("orders_cancelled", len(cancelled)))
	return nil
}

// Agents returns deep copies of every account in registration order.
func (e *Engine) Agents() []domain.Agent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	live := e.ledger.Agents()
	out := make([]domain.Agent, 0, len(live))
	for _, a := range live {
		out = append(out, a.Clone())
	}
	return out
}

// Agent returns a deep copy of one account.
func (e *Engine) Agent(id string) (domain.Agent, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.ledger.Agent(id)
	if !ok {
		return domain.Agent{}, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, id)
	}
	return a.Clone(), nil
}

// Prices returns the latest quote for every symbol.
func (e *Engine) Prices() []domain.MarketPrice {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.feed.Snapshot()
}

// Orders returns copies of the agent's orders in placement order.
func (e *Engine) Orders(agentID string) ([]domain.Order, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.ledger.Agent(agentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, agentID)
	}
	out := make([]domain.Order, 0, len(a.Portfolio.Orders))
	for _, ord := range a.Portfolio.Orders {
		out = append(out, *ord)
	}
	return out, nil
}

// Order returns a copy of a single order record.
func (e *Engine) Order(id string) (domain.Order, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ord, ok := e.orders.Get(id)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return *ord, nil
}

// Equity values an agent's portfolio at current prices.
func (e *Engine) Equity(agentID string) (decimal.Decimal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.ledger.Agent(agentID)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", domain.ErrUnknownAgent, agentID)
	}
	return e.ledger.Equity(a, e.feed.Latest), nil
}

// EngineStatus is a cheap summary for health endpoints.
type EngineStatus struct {
	Running       bool      `json:"running"`
	TickInterval  string    `json:"tick_interval"`
	Symbols       int       `json:"symbols"`
	Agents        int       `json:"agents"`
	PendingOrders int       `json:"pending_orders"`
	StartedAt     time.Time `json:"started_at"`
}

// Status summarizes the engine's current shape.
func (e *Engine) Status() EngineStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return EngineStatus{
		Running:       e.running,
		TickInterval:  e.cfg.TickInterval.String(),
		Symbols:       len(e.feed.symbols),
		Agents:        len(e.ledger.agents),
		PendingOrders: e.exec.Pending(),
		StartedAt:     e.started,
	}
}

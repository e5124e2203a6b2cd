package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitos/paper_trading_engine/internal/domain"
	"github.com/vitos/paper_trading_engine/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router    *http.ServeMux
	server    *http.Server
	engine    *usecase.Engine
	tradeRepo domain.TradeRepository
	logger    *zap.Logger
}

func NewServer(
	port int,
	engine *usecase.Engine,
	tradeRepo domain.TradeRepository,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		engine:    engine,
		tradeRepo: tradeRepo,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Agents
	s.router.HandleFunc("GET /api/agents", s.handleListAgents)
	s.router.HandleFunc("POST /api/agents", s.handleRegisterAgent)
	s.router.HandleFunc("GET /api/agents/{id}", s.handleGetAgent)
	s.router.HandleFunc("DELETE /api/agents/{id}", s.handleRemoveAgent)
	s.router.HandleFunc("PUT /api/agents/{id}/status", s.handleSetAgentStatus)
	s.router.HandleFunc("GET /api/agents/{id}/orders", s.handleListOrders)
	s.router.HandleFunc("GET /api/agents/{id}/equity", s.handleEquityHistory)

	// Orders
	s.router.HandleFunc("POST /api/orders", s.handlePlaceOrder)
	s.router.HandleFunc("GET /api/orders/{id}", s.handleGetOrder)
	s.router.HandleFunc("DELETE /api/orders/{id}", s.handleCancelOrder)

	// Market
	s.router.HandleFunc("GET /api/prices", s.handleListPrices)
	s.router.HandleFunc("GET /api/trades", s.handleListTrades)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Event stream
	s.router.HandleFunc("GET /ws", s.handleEvents)

	// Metrics
	s.router.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

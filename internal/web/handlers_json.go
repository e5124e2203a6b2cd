package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_trading_engine/internal/domain"
	"go.uber.org/zap"
)

const defaultListLimit = 100

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps the engine's error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownAgent),
		errors.Is(err, domain.ErrUnknownSymbol),
		errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInactiveAgent),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientPosition):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func listLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Agents())
}

func (s *Server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string          `json:"id"`
		Name string          `json:"name"`
		Cash decimal.Decimal `json:"cash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	agent, err := s.engine.RegisterAgent(req.ID, req.Name, req.Cash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.engine.Agent(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleRemoveAgent(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RemoveAgent(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetAgentStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.AgentStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	id := r.PathValue("id")
	if err := s.engine.SetAgentStatus(id, req.Status); err != nil {
		s.writeError(w, err)
		return
	}
	agent, err := s.engine.Agent(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.engine.Orders(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleEquityHistory(w http.ResponseWriter, r *http.Request) {
	points, err := s.tradeRepo.ListEquityPoints(r.Context(), r.PathValue("id"), listLimit(r))
	if err != nil {
		s.logger.Error("Failed to list equity points", zap.Error(err))
		http.Error(w, "Failed to list equity points", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, points)
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID string `json:"agent_id"`
		domain.OrderRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	order, err := s.engine.PlaceOrder(req.AgentID, req.OrderRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.engine.Order(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.CancelOrder(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPrices(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Prices())
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	var (
		fills []*domain.Fill
		err   error
	)
	if agentID := r.URL.Query().Get("agent"); agentID != "" {
		fills, err = s.tradeRepo.ListFillsByAgent(r.Context(), agentID, listLimit(r))
	} else {
		fills, err = s.tradeRepo.ListFills(r.Context(), listLimit(r))
	}
	if err != nil {
		s.logger.Error("Failed to list fills", zap.Error(err))
		http.Error(w, "Failed to list fills", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, fills)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Status())
}

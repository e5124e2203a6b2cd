package web

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/vitos/paper_trading_engine/internal/usecase"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsEvent is one frame pushed to a websocket client.
type wsEvent struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// handleEvents upgrades the connection and streams engine events until
// the client goes away. Frames are fanned in through a buffered queue;
// a client that cannot keep up loses frames rather than stalling event
// delivery.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Websocket upgrade failed", zap.Error(err))
		return
	}

	queue := make(chan wsEvent, 256)
	push := func(channel string, data any) {
		select {
		case queue <- wsEvent{Channel: channel, Data: data}:
		default:
		}
	}

	n := s.engine.Notifier()
	subs := []usecase.Subscription{
		n.SubscribePriceUpdate(func(ev usecase.PriceUpdateEvent) { push("price_update", ev) }),
		n.SubscribeOrderPlaced(func(ev usecase.OrderPlacedEvent) { push("order_placed", ev) }),
		n.SubscribeOrderFilled(func(ev usecase.OrderFilledEvent) { push("order_filled", ev) }),
		n.SubscribeOrderRejected(func(ev usecase.OrderRejectedEvent) { push("order_rejected", ev) }),
		n.SubscribeAgentUpdate(func(ev usecase.AgentUpdateEvent) { push("agent_update", ev) }),
	}
	defer func() {
		for _, sub := range subs {
			n.Unsubscribe(sub)
		}
		conn.Close()
	}()

	s.logger.Info("Websocket client connected", zap.String("remote", conn.RemoteAddr().String()))

	// Reader drains control frames and signals when the peer is gone.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-queue:
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("Websocket write failed", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}

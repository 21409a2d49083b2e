package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"dinein-order-services/internal/auth"
	"dinein-order-services/internal/config"
	"dinein-order-services/internal/http/handlers"
	"dinein-order-services/internal/settlement"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// OrderViewSource loads the settlement snapshot pushed to subscribers.
type OrderViewSource interface {
	GetOrderView(ctx context.Context, orderID int64) (*settlement.OrderView, error)
}

type Server struct {
	Views  OrderViewSource
	Logger *zap.Logger
	Config config.Config

	orders *orderRealtime
}

func New(views OrderViewSource, logger *zap.Logger, cfg config.Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Views: views, Logger: logger, Config: cfg, orders: newOrderRealtime()}
}

type wsRealtimeClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsRealtimeClient) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(value)
}

func (c *wsRealtimeClient) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

type orderRealtime struct {
	mu   sync.RWMutex
	subs map[int64]map[*wsRealtimeClient]struct{}
}

func newOrderRealtime() *orderRealtime {
	return &orderRealtime{subs: make(map[int64]map[*wsRealtimeClient]struct{})}
}

func (rt *orderRealtime) subscribe(orderID int64, client *wsRealtimeClient) (unsubscribe func()) {
	rt.mu.Lock()
	if rt.subs[orderID] == nil {
		rt.subs[orderID] = make(map[*wsRealtimeClient]struct{})
	}
	rt.subs[orderID][client] = struct{}{}
	rt.mu.Unlock()

	return func() {
		rt.mu.Lock()
		rt.remove(orderID, client)
		rt.mu.Unlock()
	}
}

// remove must be called with mu held.
func (rt *orderRealtime) remove(orderID int64, client *wsRealtimeClient) {
	clients := rt.subs[orderID]
	delete(clients, client)
	if len(clients) == 0 {
		delete(rt.subs, orderID)
	}
}

func (rt *orderRealtime) subscribers(orderID int64) int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.subs[orderID])
}

func (rt *orderRealtime) broadcast(orderID int64, message any) {
	rt.mu.RLock()
	clientsMap := rt.subs[orderID]
	clients := make([]*wsRealtimeClient, 0, len(clientsMap))
	for c := range clientsMap {
		clients = append(clients, c)
	}
	rt.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			_ = c.conn.Close()
			rt.mu.Lock()
			rt.remove(orderID, c)
			rt.mu.Unlock()
		}
	}
}

// Publish pushes the event and a fresh snapshot to everyone watching the
// order. Orders nobody watches cost nothing.
func (s *Server) Publish(ctx context.Context, event settlement.Event) error {
	if s.orders.subscribers(event.OrderID) == 0 {
		return nil
	}

	message := map[string]any{"type": event.Type, "event": event}
	view, err := s.Views.GetOrderView(ctx, event.OrderID)
	if err != nil {
		s.Logger.Warn("ws snapshot load failed", zap.Int64("orderId", event.OrderID), zap.Error(err))
	} else {
		message["data"] = handlers.NewOrderViewResponse(*view)
	}
	s.orders.broadcast(event.OrderID, message)
	return nil
}

func (s *Server) heartbeat() time.Duration {
	if s.Config.WSHeartbeatInterval > 0 {
		return s.Config.WSHeartbeatInterval
	}
	return 30 * time.Second
}

// OrderSettlementWS streams settlement snapshots for one order. The staff
// token travels in the token query parameter because browsers cannot set
// headers on a websocket handshake.
func (s *Server) OrderSettlementWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if bearer := auth.ParseBearerToken(token); bearer != "" {
		token = bearer
	}
	if _, err := auth.VerifyAccessToken(token, s.Config.JWTSecret); err != nil {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "unauthorized"})
		return
	}

	orderID, err := parseInt64(chi.URLParam(r, "orderId"))
	if err != nil || orderID <= 0 {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "invalid order id"})
		return
	}

	ctx := r.Context()
	client := &wsRealtimeClient{conn: conn}
	unsubscribe := s.orders.subscribe(orderID, client)
	defer unsubscribe()

	view, err := s.Views.GetOrderView(ctx, orderID)
	if err != nil {
		message := "snapshot unavailable"
		if settlement.IsKind(err, settlement.KindNotFound) {
			message = "order not found"
		}
		_ = client.writeJSON(map[string]any{"type": "error", "message": message})
		return
	}
	_ = client.writeJSON(map[string]any{"type": "order.state", "data": handlers.NewOrderViewResponse(*view)})

	interval := s.heartbeat()
	_ = conn.SetReadDeadline(time.Now().Add(2 * interval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * interval))
	})

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.ping(); err != nil {
				return
			}
		}
	}
}

func parseInt64(value string) (int64, error) {
	var out int64
	_, err := fmt.Sscan(strings.TrimSpace(value), &out)
	return out, err
}

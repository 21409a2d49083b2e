package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dinein-order-services/internal/auth"
	"dinein-order-services/internal/config"
	"dinein-order-services/internal/settlement"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "ws-secret"

type stubViews struct {
	mu    sync.Mutex
	views map[int64]settlement.OrderView
}

func (s *stubViews) GetOrderView(_ context.Context, orderID int64) (*settlement.OrderView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.views[orderID]
	if !ok {
		return nil, settlement.NotFoundError(settlement.ErrOrderNotFound, "Order not found")
	}
	return &view, nil
}

func (s *stubViews) set(view settlement.OrderView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[view.Order.ID] = view
}

func orderView(id int64, status settlement.OrderStatus, total string) settlement.OrderView {
	return settlement.OrderView{
		Order: settlement.Order{
			ID:          id,
			OrderNumber: "T-1",
			Status:      status,
			TotalAmount: decimal.RequireFromString(total),
		},
		BalanceDue:        decimal.RequireFromString(total),
		BalanceConsistent: true,
	}
}

func newTestServer(t *testing.T) (*Server, *stubViews, string) {
	t.Helper()
	views := &stubViews{views: map[int64]settlement.OrderView{}}
	srv := New(views, nil, config.Config{JWTSecret: testSecret, WSHeartbeatInterval: time.Second})

	r := chi.NewRouter()
	r.Get("/ws/orders/{orderId}", srv.OrderSettlementWS)
	httpServer := httptest.NewServer(r)
	t.Cleanup(httpServer.Close)
	return srv, views, "ws" + strings.TrimPrefix(httpServer.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func staffToken(t *testing.T) string {
	t.Helper()
	token, err := auth.SignAccessToken("11", auth.RoleCashier, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func TestOrderSettlementWSRejectsBadToken(t *testing.T) {
	_, _, base := newTestServer(t)
	conn := dial(t, base+"/ws/orders/1?token=nope")

	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "unauthorized", msg["message"])
}

func TestOrderSettlementWSUnknownOrder(t *testing.T) {
	_, _, base := newTestServer(t)
	conn := dial(t, base+"/ws/orders/404?token="+staffToken(t))

	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "order not found", msg["message"])
}

func TestOrderSettlementWSStreamsSnapshots(t *testing.T) {
	srv, views, base := newTestServer(t)
	views.set(orderView(7, settlement.OrderReady, "105"))

	conn := dial(t, base+"/ws/orders/7?token="+staffToken(t))
	msg := readMessage(t, conn)
	require.Equal(t, "order.state", msg["type"])
	data := msg["data"].(map[string]any)
	order := data["order"].(map[string]any)
	assert.Equal(t, "READY", order["status"])
	assert.Equal(t, "105.00", order["totalAmount"])
	assert.Equal(t, 1, srv.orders.subscribers(7))

	views.set(orderView(7, settlement.OrderCompleted, "105"))
	require.NoError(t, srv.Publish(context.Background(), settlement.Event{
		ID:          "evt-1",
		Type:        settlement.EventOrderCompleted,
		OrderID:     7,
		OrderStatus: "COMPLETED",
		TotalAmount: "105.00",
	}))

	msg = readMessage(t, conn)
	assert.Equal(t, settlement.EventOrderCompleted, msg["type"])
	event := msg["event"].(map[string]any)
	assert.Equal(t, "evt-1", event["eventId"])
	order = msg["data"].(map[string]any)["order"].(map[string]any)
	assert.Equal(t, "COMPLETED", order["status"])
}

func TestPublishWithoutSubscribersSkipsSnapshot(t *testing.T) {
	srv, _, _ := newTestServer(t)
	// No view is registered; a lookup would fail, but none should happen.
	assert.NoError(t, srv.Publish(context.Background(), settlement.Event{Type: settlement.EventPaymentProcessed, OrderID: 99}))
}

func TestUnsubscribeDropsEmptyOrders(t *testing.T) {
	rt := newOrderRealtime()
	a, b := &wsRealtimeClient{}, &wsRealtimeClient{}
	unsubA := rt.subscribe(1, a)
	unsubB := rt.subscribe(1, b)
	assert.Equal(t, 2, rt.subscribers(1))

	unsubA()
	assert.Equal(t, 1, rt.subscribers(1))
	unsubB()
	assert.Equal(t, 0, rt.subscribers(1))
	_, ok := rt.subs[1]
	assert.False(t, ok)
}

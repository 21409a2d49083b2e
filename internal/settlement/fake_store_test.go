package settlement

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errInjected = errors.New("injected failure")

// fakeDB is an in-memory Store. InTx holds one mutex for the whole
// transaction, which stands in for the order row lock, and restores a
// snapshot when the callback fails.
type fakeDB struct {
	mu       sync.Mutex
	state    fakeState
	settings RestaurantSettings

	// persistedStatus overrides the status InsertPayment reports back.
	persistedStatus *PaymentStatus
	failOn          map[string]error

	auditMu  sync.Mutex
	audits   []AuditEntry
	auditErr error
}

type fakeState struct {
	nextID   int64
	orders   map[int64]Order
	items    map[int64][]OrderItem
	methods  map[string]PaymentMethod
	payments map[int64]Payment
	bills    map[int64]SplitBill
}

func (s fakeState) clone() fakeState {
	out := fakeState{
		nextID:   s.nextID,
		orders:   make(map[int64]Order, len(s.orders)),
		items:    make(map[int64][]OrderItem, len(s.items)),
		methods:  make(map[string]PaymentMethod, len(s.methods)),
		payments: make(map[int64]Payment, len(s.payments)),
		bills:    make(map[int64]SplitBill, len(s.bills)),
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.items {
		out.items[k] = append([]OrderItem(nil), v...)
	}
	for k, v := range s.methods {
		out.methods[k] = v
	}
	for k, v := range s.payments {
		out.payments[k] = v
	}
	for k, v := range s.bills {
		v.Lines = append([]SplitBillLine(nil), v.Lines...)
		out.bills[k] = v
	}
	return out
}

func newFakeDB(settings RestaurantSettings) *fakeDB {
	return &fakeDB{
		settings: settings,
		failOn:   map[string]error{},
		state: fakeState{
			orders:   map[int64]Order{},
			items:    map[int64][]OrderItem{},
			payments: map[int64]Payment{},
			bills:    map[int64]SplitBill{},
			methods: map[string]PaymentMethod{
				"CASH":          {Code: "CASH", Name: "Cash", RoundsToWholeUnit: true, IsActive: true},
				"CARD":          {Code: "CARD", Name: "Card", RequiresCardInfo: true, IsActive: true},
				"UPI":           {Code: "UPI", Name: "UPI", IsActive: true},
				"COMPLEMENTARY": {Code: "COMPLEMENTARY", Name: "Complementary", IsComplementary: true, IsActive: true},
				"CHEQUE":        {Code: "CHEQUE", Name: "Cheque", IsActive: false},
			},
		},
	}
}

func (f *fakeDB) id() int64 {
	f.state.nextID++
	return f.state.nextID
}

// addOrder seeds an order with one unit of each price. Totals are left at
// zero; call RecalculateOrder or a payment to populate them.
func (f *fakeDB) addOrder(status OrderStatus, prices ...string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	orderID := f.id()
	f.state.orders[orderID] = Order{ID: orderID, OrderNumber: "ORD-TEST", Status: status}
	for _, price := range prices {
		f.state.items[orderID] = append(f.state.items[orderID], OrderItem{
			ID:        f.id(),
			OrderID:   orderID,
			Name:      "item",
			UnitPrice: decimal.RequireFromString(price),
			Quantity:  1,
		})
	}
	return orderID
}

func (f *fakeDB) addItem(orderID int64, price string, quantity int32, fired bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := OrderItem{ID: f.id(), OrderID: orderID, Name: "item", UnitPrice: decimal.RequireFromString(price), Quantity: quantity}
	if fired {
		at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		item.FiredAt = &at
	}
	f.state.items[orderID] = append(f.state.items[orderID], item)
	return item.ID
}

func (f *fakeDB) order(id int64) Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.orders[id]
}

func (f *fakeDB) payment(id int64) Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.payments[id]
}

func (f *fakeDB) paymentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.payments)
}

func (f *fakeDB) InTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := f.state.clone()
	if err := fn(ctx, &fakeTx{db: f}); err != nil {
		f.state = snapshot
		return err
	}
	return nil
}

func (f *fakeDB) Settings(ctx context.Context) (RestaurantSettings, error) {
	if err := f.failOn["Settings"]; err != nil {
		return RestaurantSettings{}, err
	}
	return f.settings, nil
}

func (f *fakeDB) AppendAudit(ctx context.Context, entry AuditEntry) error {
	f.auditMu.Lock()
	defer f.auditMu.Unlock()
	if f.auditErr != nil {
		return f.auditErr
	}
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeDB) auditActions() []string {
	f.auditMu.Lock()
	defer f.auditMu.Unlock()
	out := make([]string, 0, len(f.audits))
	for _, a := range f.audits {
		out = append(out, a.Action)
	}
	return out
}

type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) st() *fakeState {
	return &t.db.state
}

func (t *fakeTx) fail(op string) error {
	return t.db.failOn[op]
}

func (t *fakeTx) LockOrder(ctx context.Context, orderID int64) (Order, error) {
	return t.GetOrder(ctx, orderID)
}

func (t *fakeTx) GetOrder(ctx context.Context, orderID int64) (Order, error) {
	order, ok := t.st().orders[orderID]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

func (t *fakeTx) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	return append([]OrderItem(nil), t.st().items[orderID]...), nil
}

func (t *fakeTx) UpdateOrderTotals(ctx context.Context, orderID int64, totals OrderTotals) error {
	if err := t.fail("UpdateOrderTotals"); err != nil {
		return err
	}
	order := t.st().orders[orderID]
	t.st().orders[orderID] = totals.apply(order)
	return nil
}

func (t *fakeTx) UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus, completedAt *time.Time, cancelledAt *time.Time) error {
	if err := t.fail("UpdateOrderStatus"); err != nil {
		return err
	}
	order := t.st().orders[orderID]
	order.Status = status
	order.CompletedAt = completedAt
	if cancelledAt != nil {
		order.CancelledAt = cancelledAt
	}
	t.st().orders[orderID] = order
	return nil
}

func (t *fakeTx) CancelUnfiredItems(ctx context.Context, orderID int64) (int64, error) {
	var n int64
	items := t.st().items[orderID]
	for i := range items {
		if items[i].FiredAt == nil && !items[i].IsCancelled {
			items[i].IsCancelled = true
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) GetPaymentMethod(ctx context.Context, code string) (PaymentMethod, error) {
	m, ok := t.st().methods[code]
	if !ok {
		return PaymentMethod{}, ErrNotFound
	}
	return m, nil
}

func (t *fakeTx) InsertPayment(ctx context.Context, p Payment) (int64, PaymentStatus, error) {
	if err := t.fail("InsertPayment"); err != nil {
		return 0, 0, err
	}
	p.ID = t.db.id()
	if t.db.persistedStatus != nil {
		p.Status = *t.db.persistedStatus
	}
	t.st().payments[p.ID] = p
	return p.ID, p.Status, nil
}

func (t *fakeTx) PaymentOrderID(ctx context.Context, paymentID int64) (int64, error) {
	p, ok := t.st().payments[paymentID]
	if !ok {
		return 0, ErrNotFound
	}
	return p.OrderID, nil
}

func (t *fakeTx) GetPayment(ctx context.Context, paymentID int64) (Payment, error) {
	p, ok := t.st().payments[paymentID]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

func (t *fakeTx) LockPayment(ctx context.Context, paymentID int64) (Payment, error) {
	return t.GetPayment(ctx, paymentID)
}

func (t *fakeTx) ListPayments(ctx context.Context, orderID int64) ([]Payment, error) {
	out := make([]Payment, 0)
	for _, p := range t.st().payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *fakeTx) UpdatePaymentStatus(ctx context.Context, update PaymentStatusUpdate) error {
	if err := t.fail("UpdatePaymentStatus"); err != nil {
		return err
	}
	p, ok := t.st().payments[update.PaymentID]
	if !ok || p.Status != update.From {
		return errors.New("stale payment status")
	}
	p.Status = update.To
	if update.Reason != "" {
		p.StatusReason = update.Reason
	}
	actor := update.ActorID
	at := update.At
	p.DecidedBy = &actor
	p.DecidedAt = &at
	t.st().payments[update.PaymentID] = p
	return nil
}

func (t *fakeTx) InsertSplitBill(ctx context.Context, bill SplitBill) (int64, error) {
	bill.ID = t.db.id()
	bill.Lines = append([]SplitBillLine(nil), bill.Lines...)
	t.st().bills[bill.ID] = bill
	return bill.ID, nil
}

func (t *fakeTx) LockSplitBill(ctx context.Context, splitBillID int64) (SplitBill, error) {
	bill, ok := t.st().bills[splitBillID]
	if !ok {
		return SplitBill{}, ErrNotFound
	}
	return bill, nil
}

func (t *fakeTx) SplitBillOrderID(ctx context.Context, splitBillID int64) (int64, error) {
	bill, ok := t.st().bills[splitBillID]
	if !ok {
		return 0, ErrNotFound
	}
	return bill.OrderID, nil
}

func (t *fakeTx) ListSplitBills(ctx context.Context, orderID int64) ([]SplitBill, error) {
	out := make([]SplitBill, 0)
	for _, bill := range t.st().bills {
		if bill.OrderID == orderID {
			out = append(out, bill)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *fakeTx) UpdateSplitBillStatus(ctx context.Context, splitBillID int64, status SplitBillStatus, at time.Time) error {
	bill := t.st().bills[splitBillID]
	bill.Status = status
	if status == SplitBillSettled {
		bill.SettledAt = &at
	}
	t.st().bills[splitBillID] = bill
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *eventRecorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// memoryKeys is a minimal IdempotencyStore for service tests.
type memoryKeys struct {
	mu      sync.Mutex
	claimed map[string]bool
	results map[string]string
}

func newMemoryKeys() *memoryKeys {
	return &memoryKeys{claimed: map[string]bool{}, results: map[string]string{}}
}

func (m *memoryKeys) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[key] {
		return false, nil
	}
	m.claimed[key] = true
	return true, nil
}

func (m *memoryKeys) Result(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.results[key]
	return v, ok, nil
}

func (m *memoryKeys) Complete(ctx context.Context, key string, result string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = result
	return nil
}

func (m *memoryKeys) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, key)
	delete(m.results, key)
	return nil
}

var testNow = time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

func gst5() RestaurantSettings {
	return RestaurantSettings{DefaultGSTPercentage: decimal.NewFromInt(5)}
}

func newTestService(t *testing.T, settings RestaurantSettings) (*Service, *fakeDB, *eventRecorder) {
	t.Helper()
	db := newFakeDB(settings)
	events := &eventRecorder{}
	svc := NewService(db, db, zap.NewNop())
	svc.Audit = db
	svc.Events = events
	svc.Now = func() time.Time { return testNow }
	return svc, db, events
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

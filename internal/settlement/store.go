package settlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the transactional view of the order, ledger and split bill
// tables. A Store handed out by TxRunner.InTx is bound to one transaction.
type Store interface {
	// LockOrder reads the order row and holds a row lock on it until the
	// transaction ends.
	LockOrder(ctx context.Context, orderID int64) (Order, error)
	GetOrder(ctx context.Context, orderID int64) (Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	UpdateOrderTotals(ctx context.Context, orderID int64, totals OrderTotals) error
	UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus, completedAt *time.Time, cancelledAt *time.Time) error
	CancelUnfiredItems(ctx context.Context, orderID int64) (int64, error)

	GetPaymentMethod(ctx context.Context, code string) (PaymentMethod, error)
	InsertPayment(ctx context.Context, p Payment) (id int64, persisted PaymentStatus, err error)
	PaymentOrderID(ctx context.Context, paymentID int64) (int64, error)
	GetPayment(ctx context.Context, paymentID int64) (Payment, error)
	LockPayment(ctx context.Context, paymentID int64) (Payment, error)
	ListPayments(ctx context.Context, orderID int64) ([]Payment, error)
	UpdatePaymentStatus(ctx context.Context, update PaymentStatusUpdate) error

	InsertSplitBill(ctx context.Context, bill SplitBill) (int64, error)
	LockSplitBill(ctx context.Context, splitBillID int64) (SplitBill, error)
	SplitBillOrderID(ctx context.Context, splitBillID int64) (int64, error)
	ListSplitBills(ctx context.Context, orderID int64) ([]SplitBill, error)
	UpdateSplitBillStatus(ctx context.Context, splitBillID int64, status SplitBillStatus, at time.Time) error
}

type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

type SettingsProvider interface {
	Settings(ctx context.Context) (RestaurantSettings, error)
}

// AuditEntry is written after commit; losing one never fails the operation.
type AuditEntry struct {
	CorrelationID string
	OrderID       int64
	PaymentID     *int64
	Action        string
	ActorID       int64
	Reason        string
	Payload       map[string]any
	At            time.Time
}

type AuditSink interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
}

type OrderTotals struct {
	Subtotal              decimal.Decimal
	DiscountAmount        decimal.Decimal
	TaxAmount             decimal.Decimal
	CGSTAmount            decimal.Decimal
	SGSTAmount            decimal.Decimal
	TipAmount             decimal.Decimal
	TotalAmount           decimal.Decimal
	RoundoffAdjustmentAmt decimal.Decimal
}

func (t OrderTotals) apply(o Order) Order {
	o.Subtotal = t.Subtotal
	o.DiscountAmount = t.DiscountAmount
	o.TaxAmount = t.TaxAmount
	o.CGSTAmount = t.CGSTAmount
	o.SGSTAmount = t.SGSTAmount
	o.TipAmount = t.TipAmount
	o.TotalAmount = t.TotalAmount
	o.RoundoffAdjustmentAmt = t.RoundoffAdjustmentAmt
	return o
}

type PaymentStatusUpdate struct {
	PaymentID int64
	From      PaymentStatus
	To        PaymentStatus
	Reason    string
	ActorID   int64
	At        time.Time
}

package settlement

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus int

const (
	OrderOpen OrderStatus = iota
	OrderInProgress
	OrderReady
	OrderCompleted
	OrderCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderOpen:
		return "OPEN"
	case OrderInProgress:
		return "IN_PROGRESS"
	case OrderReady:
		return "READY"
	case OrderCompleted:
		return "COMPLETED"
	case OrderCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

func ParseOrderStatus(value string) (OrderStatus, bool) {
	for _, status := range []OrderStatus{OrderOpen, OrderInProgress, OrderReady, OrderCompleted, OrderCancelled} {
		if strings.EqualFold(strings.TrimSpace(value), status.String()) {
			return status, true
		}
	}
	return 0, false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

func (s OrderStatus) CanCancel() bool {
	return s == OrderOpen || s == OrderInProgress || s == OrderReady
}

type PaymentStatus int

const (
	PaymentPending PaymentStatus = iota
	PaymentApproved
	PaymentRejected
	PaymentVoided
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentPending:
		return "PENDING"
	case PaymentApproved:
		return "APPROVED"
	case PaymentRejected:
		return "REJECTED"
	case PaymentVoided:
		return "VOIDED"
	default:
		return "UNKNOWN"
	}
}

// IsActive reports whether the payment still counts toward order discount,
// tip and roundoff.
func (s PaymentStatus) IsActive() bool {
	return s == PaymentPending || s == PaymentApproved
}

type SplitBillStatus int

const (
	SplitBillActive SplitBillStatus = iota
	SplitBillSettled
	SplitBillVoided
)

func (s SplitBillStatus) String() string {
	switch s {
	case SplitBillActive:
		return "ACTIVE"
	case SplitBillSettled:
		return "SETTLED"
	case SplitBillVoided:
		return "VOIDED"
	default:
		return "UNKNOWN"
	}
}

type Order struct {
	ID                    int64
	OrderNumber           string
	Status                OrderStatus
	Subtotal              decimal.Decimal
	TaxAmount             decimal.Decimal
	CGSTAmount            decimal.Decimal
	SGSTAmount            decimal.Decimal
	DiscountAmount        decimal.Decimal
	TipAmount             decimal.Decimal
	TotalAmount           decimal.Decimal
	RoundoffAdjustmentAmt decimal.Decimal
	CompletedAt           *time.Time
	CancelledAt           *time.Time
	UpdatedAt             time.Time
}

type OrderItem struct {
	ID          int64
	OrderID     int64
	Name        string
	UnitPrice   decimal.Decimal
	Quantity    int32
	IsCancelled bool
	FiredAt     *time.Time
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

type PaymentMethod struct {
	Code              string
	Name              string
	RequiresCardInfo  bool
	RoundsToWholeUnit bool
	IsComplementary   bool
	IsActive          bool
}

type Payment struct {
	ID                    int64
	OrderID               int64
	Method                string
	Amount                decimal.Decimal
	TipAmount             decimal.Decimal
	DiscAmount            decimal.Decimal
	GSTAmount             decimal.Decimal
	CGSTAmount            decimal.Decimal
	SGSTAmount            decimal.Decimal
	RoundoffAdjustmentAmt decimal.Decimal
	ReferenceNumber       string
	CardType              string
	CardLast4             string
	Notes                 string
	Status                PaymentStatus
	StatusReason          string
	CreatedBy             int64
	CreatedAt             time.Time
	DecidedBy             *int64
	DecidedAt             *time.Time
}

// Collected is what the payment contributes toward an order total.
func (p Payment) Collected() decimal.Decimal {
	return p.Amount.Add(p.TipAmount).Add(p.RoundoffAdjustmentAmt)
}

type RestaurantSettings struct {
	DefaultGSTPercentage          decimal.Decimal
	IsDiscountApprovalRequired    bool
	IsCardPaymentApprovalRequired bool
	ManagerPinHash                string
}

type SplitBill struct {
	ID         int64
	OrderID    int64
	Amount     decimal.Decimal
	TaxAmount  decimal.Decimal
	CGSTAmount decimal.Decimal
	SGSTAmount decimal.Decimal
	Total      decimal.Decimal
	Status     SplitBillStatus
	Lines      []SplitBillLine
	CreatedAt  time.Time
	SettledAt  *time.Time
}

type SplitBillLine struct {
	OrderItemID int64
	Quantity    int32
}

// ItemAvailability is how much of an order item can still be carved into a
// new split bill.
type ItemAvailability struct {
	Item              OrderItem
	SplitQuantity     int32
	AvailableQuantity int32
}

package handlers

import (
	"time"

	"dinein-order-services/internal/money"
	"dinein-order-services/internal/settlement"
)

// Money is always rendered as a two-decimal string so clients never parse
// floats.

type OrderResponse struct {
	ID                    int64      `json:"id"`
	OrderNumber           string     `json:"orderNumber"`
	Status                string     `json:"status"`
	Subtotal              string     `json:"subtotal"`
	TaxAmount             string     `json:"taxAmount"`
	CGSTAmount            string     `json:"cgstAmount"`
	SGSTAmount            string     `json:"sgstAmount"`
	DiscountAmount        string     `json:"discountAmount"`
	TipAmount             string     `json:"tipAmount"`
	RoundoffAdjustmentAmt string     `json:"roundoffAdjustmentAmt"`
	TotalAmount           string     `json:"totalAmount"`
	CompletedAt           *time.Time `json:"completedAt"`
	CancelledAt           *time.Time `json:"cancelledAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

type PaymentResponse struct {
	ID                    int64      `json:"id"`
	OrderID               int64      `json:"orderId"`
	Method                string     `json:"paymentMethod"`
	Status                string     `json:"status"`
	Amount                string     `json:"amount"`
	TipAmount             string     `json:"tipAmount"`
	DiscountAmount        string     `json:"discountAmount"`
	GSTAmount             string     `json:"gstAmount"`
	CGSTAmount            string     `json:"cgstAmount"`
	SGSTAmount            string     `json:"sgstAmount"`
	RoundoffAdjustmentAmt string     `json:"roundoffAdjustmentAmt"`
	ReferenceNumber       string     `json:"referenceNumber,omitempty"`
	CardType              string     `json:"cardType,omitempty"`
	CardLast4             string     `json:"cardLast4,omitempty"`
	Notes                 string     `json:"notes,omitempty"`
	StatusReason          string     `json:"statusReason,omitempty"`
	CreatedBy             int64      `json:"createdBy"`
	CreatedAt             time.Time  `json:"createdAt"`
	DecidedBy             *int64     `json:"decidedBy"`
	DecidedAt             *time.Time `json:"decidedAt"`
}

type SplitBillLineResponse struct {
	OrderItemID int64 `json:"orderItemId"`
	Quantity    int32 `json:"quantity"`
}

type SplitBillResponse struct {
	ID         int64                   `json:"id"`
	OrderID    int64                   `json:"orderId"`
	Status     string                  `json:"status"`
	Amount     string                  `json:"amount"`
	TaxAmount  string                  `json:"taxAmount"`
	CGSTAmount string                  `json:"cgstAmount"`
	SGSTAmount string                  `json:"sgstAmount"`
	Total      string                  `json:"total"`
	Items      []SplitBillLineResponse `json:"items"`
	CreatedAt  time.Time               `json:"createdAt"`
	SettledAt  *time.Time              `json:"settledAt"`
}

type OrderViewResponse struct {
	Order             OrderResponse       `json:"order"`
	Payments          []PaymentResponse   `json:"payments"`
	SplitBills        []SplitBillResponse `json:"splitBills"`
	ApprovedSum       string              `json:"approvedSum"`
	PendingSum        string              `json:"pendingSum"`
	BalanceDue        string              `json:"balanceDue"`
	BalanceConsistent bool                `json:"balanceConsistent"`
}

type AvailableItemResponse struct {
	OrderItemID       int64  `json:"orderItemId"`
	Name              string `json:"name"`
	UnitPrice         string `json:"unitPrice"`
	Quantity          int32  `json:"quantity"`
	SplitQuantity     int32  `json:"splitQuantity"`
	AvailableQuantity int32  `json:"availableQuantity"`
}

func NewOrderResponse(o settlement.Order) OrderResponse {
	return OrderResponse{
		ID:                    o.ID,
		OrderNumber:           o.OrderNumber,
		Status:                o.Status.String(),
		Subtotal:              money.Format(o.Subtotal),
		TaxAmount:             money.Format(o.TaxAmount),
		CGSTAmount:            money.Format(o.CGSTAmount),
		SGSTAmount:            money.Format(o.SGSTAmount),
		DiscountAmount:        money.Format(o.DiscountAmount),
		TipAmount:             money.Format(o.TipAmount),
		RoundoffAdjustmentAmt: money.Format(o.RoundoffAdjustmentAmt),
		TotalAmount:           money.Format(o.TotalAmount),
		CompletedAt:           o.CompletedAt,
		CancelledAt:           o.CancelledAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

func NewPaymentResponse(p settlement.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                    p.ID,
		OrderID:               p.OrderID,
		Method:                p.Method,
		Status:                p.Status.String(),
		Amount:                money.Format(p.Amount),
		TipAmount:             money.Format(p.TipAmount),
		DiscountAmount:        money.Format(p.DiscAmount),
		GSTAmount:             money.Format(p.GSTAmount),
		CGSTAmount:            money.Format(p.CGSTAmount),
		SGSTAmount:            money.Format(p.SGSTAmount),
		RoundoffAdjustmentAmt: money.Format(p.RoundoffAdjustmentAmt),
		ReferenceNumber:       p.ReferenceNumber,
		CardType:              p.CardType,
		CardLast4:             p.CardLast4,
		Notes:                 p.Notes,
		StatusReason:          p.StatusReason,
		CreatedBy:             p.CreatedBy,
		CreatedAt:             p.CreatedAt,
		DecidedBy:             p.DecidedBy,
		DecidedAt:             p.DecidedAt,
	}
}

func NewSplitBillResponse(b settlement.SplitBill) SplitBillResponse {
	items := make([]SplitBillLineResponse, 0, len(b.Lines))
	for _, line := range b.Lines {
		items = append(items, SplitBillLineResponse{OrderItemID: line.OrderItemID, Quantity: line.Quantity})
	}
	return SplitBillResponse{
		ID:         b.ID,
		OrderID:    b.OrderID,
		Status:     b.Status.String(),
		Amount:     money.Format(b.Amount),
		TaxAmount:  money.Format(b.TaxAmount),
		CGSTAmount: money.Format(b.CGSTAmount),
		SGSTAmount: money.Format(b.SGSTAmount),
		Total:      money.Format(b.Total),
		Items:      items,
		CreatedAt:  b.CreatedAt,
		SettledAt:  b.SettledAt,
	}
}

// NewOrderViewResponse is shared with the websocket feed so both surfaces
// render the same snapshot.
func NewOrderViewResponse(view settlement.OrderView) OrderViewResponse {
	payments := make([]PaymentResponse, 0, len(view.Payments))
	for _, p := range view.Payments {
		payments = append(payments, NewPaymentResponse(p))
	}
	bills := make([]SplitBillResponse, 0, len(view.SplitBills))
	for _, b := range view.SplitBills {
		bills = append(bills, NewSplitBillResponse(b))
	}
	return OrderViewResponse{
		Order:             NewOrderResponse(view.Order),
		Payments:          payments,
		SplitBills:        bills,
		ApprovedSum:       money.Format(view.ApprovedSum),
		PendingSum:        money.Format(view.PendingSum),
		BalanceDue:        money.Format(view.BalanceDue),
		BalanceConsistent: view.BalanceConsistent,
	}
}

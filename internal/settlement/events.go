package settlement

import (
	"context"
	"errors"
	"time"
)

const (
	EventPaymentProcessed  = "payment.processed"
	EventPaymentApproved   = "payment.approved"
	EventPaymentRejected   = "payment.rejected"
	EventPaymentVoided     = "payment.voided"
	EventOrderCompleted    = "order.completed"
	EventOrderReopened     = "order.reopened"
	EventOrderCancelled    = "order.cancelled"
	EventOrderStatus       = "order.status.updated"
	EventOrderRecalculated = "order.recalculated"
	EventSplitBillCreated  = "split_bill.created"
	EventSplitBillSettled  = "split_bill.settled"
	EventSplitBillVoided   = "split_bill.voided"
)

type Event struct {
	ID            string    `json:"eventId"`
	Type          string    `json:"type"`
	OrderID       int64     `json:"orderId"`
	PaymentID     *int64    `json:"paymentId,omitempty"`
	SplitBillID   *int64    `json:"splitBillId,omitempty"`
	OrderStatus   string    `json:"orderStatus"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	TotalAmount   string    `json:"totalAmount"`
	ApprovedSum   string    `json:"approvedSum,omitempty"`
	ActorID       int64     `json:"actorId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Notifier fans settlement events out after commit.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

type Notifiers []Notifier

func (n Notifiers) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, notifier := range n {
		if notifier == nil {
			continue
		}
		if err := notifier.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IdempotencyStore remembers the outcome of a keyed request so that a retry
// returns the first result instead of recording a second payment.
type IdempotencyStore interface {
	// Reserve claims key. It returns false if the key is already claimed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Result(ctx context.Context, key string) (string, bool, error)
	Complete(ctx context.Context, key string, result string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

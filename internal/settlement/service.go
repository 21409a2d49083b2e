package settlement

import (
	"context"
	"time"

	"dinein-order-services/internal/money"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultIdempotencyTTL = 24 * time.Hour

// Service runs every settlement operation as one transaction: the ledger is
// mutated first, then order totals are recomputed from items and ledger, then
// completion is evaluated.
type Service struct {
	Tx             TxRunner
	Settings       SettingsProvider
	Audit          AuditSink
	Events         Notifier
	Idempotency    IdempotencyStore
	Logger         *zap.Logger
	IdempotencyTTL time.Duration
	Now            func() time.Time
}

func NewService(tx TxRunner, settings SettingsProvider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Tx:             tx,
		Settings:       settings,
		Logger:         logger,
		IdempotencyTTL: defaultIdempotencyTTL,
		Now:            time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// loadSettings reads the restaurant settings once per operation so a policy
// change mid-operation cannot split a decision.
func (s *Service) loadSettings(ctx context.Context) (RestaurantSettings, error) {
	settings, err := s.Settings.Settings(ctx)
	if err != nil {
		return RestaurantSettings{}, PersistenceError(err)
	}
	return settings, nil
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	return asPersistence(s.Tx.InTx(ctx, fn))
}

// lockPaymentOrder resolves the payment's order and locks order then payment,
// in that order, so two operations on one order never deadlock.
func lockPaymentOrder(ctx context.Context, store Store, paymentID int64) (Order, Payment, error) {
	orderID, err := store.PaymentOrderID(ctx, paymentID)
	if err != nil {
		return Order{}, Payment{}, notFoundOr(err, ErrPaymentNotFound, "Payment not found")
	}
	order, err := store.LockOrder(ctx, orderID)
	if err != nil {
		return Order{}, Payment{}, notFoundOr(err, ErrOrderNotFound, "Order not found")
	}
	payment, err := store.LockPayment(ctx, paymentID)
	if err != nil {
		return Order{}, Payment{}, notFoundOr(err, ErrPaymentNotFound, "Payment not found")
	}
	return order, payment, nil
}

func (s *Service) afterCommit(ctx context.Context, entry AuditEntry, events ...Event) {
	if s.Audit != nil {
		if err := s.Audit.AppendAudit(ctx, entry); err != nil {
			s.Logger.Warn("audit write failed",
				zap.String("action", entry.Action),
				zap.Int64("orderId", entry.OrderID),
				zap.String("correlationId", entry.CorrelationID),
				zap.Error(err),
			)
		}
	}
	if s.Events == nil {
		return
	}
	for _, event := range events {
		if err := s.Events.Publish(ctx, event); err != nil {
			s.Logger.Warn("settlement event publish failed",
				zap.String("type", event.Type),
				zap.Int64("orderId", event.OrderID),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) newEvent(eventType string, order Order, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderStatus: order.Status.String(),
		TotalAmount: money.Format(order.TotalAmount),
		OccurredAt:  at.UTC(),
	}
}

func (s *Service) paymentEvent(eventType string, order Order, payment Payment, ledger Ledger, actorID int64, at time.Time) Event {
	event := s.newEvent(eventType, order, at)
	id := payment.ID
	event.PaymentID = &id
	event.PaymentStatus = payment.Status.String()
	event.ApprovedSum = money.Format(ledger.ApprovedSum())
	event.ActorID = actorID
	return event
}

func (s *Service) logCompletion(order Order, decision CompletionDecision) {
	s.Logger.Info("order completed",
		zap.Int64("orderId", order.ID),
		zap.String("rule", string(decision.Rule)),
		zap.String("tolerance", decision.Tolerance.String()),
		zap.String("approvedSum", money.Format(decision.ApprovedSum)),
		zap.String("total", money.Format(decision.Target)),
	)
}

package settlement

import (
	"context"
	"strings"

	"dinein-order-services/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CancelResult struct {
	Order          Order
	ItemsCancelled int64
}

// CancelOrder cancels an order that is not yet Completed or Cancelled, along
// with its unfired items.
func (s *Service) CancelOrder(ctx context.Context, orderID int64, actorID int64, reason string) (*CancelResult, error) {
	now := s.now()
	var result CancelResult
	err := s.inTx(ctx, func(ctx context.Context, store Store) error {
		order, err := store.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, ErrOrderNotFound, "Order not found")
		}
		if !order.Status.CanCancel() {
			return InvalidTransition(ErrOrderNotCancellable, "Order is already "+strings.ToLower(order.Status.String()), map[string]any{"status": order.Status.String()})
		}

		cancelled, err := store.CancelUnfiredItems(ctx, orderID)
		if err != nil {
			return err
		}
		if err := store.UpdateOrderStatus(ctx, orderID, OrderCancelled, nil, &now); err != nil {
			return err
		}
		order.Status = OrderCancelled
		order.CancelledAt = &now
		result = CancelResult{Order: order, ItemsCancelled: cancelled}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("order cancelled", zap.Int64("orderId", orderID), zap.Int64("itemsCancelled", result.ItemsCancelled))
	event := s.newEvent(EventOrderCancelled, result.Order, now)
	event.ActorID = actorID
	s.afterCommit(ctx, AuditEntry{
		CorrelationID: uuid.NewString(),
		OrderID:       orderID,
		Action:        EventOrderCancelled,
		ActorID:       actorID,
		Reason:        strings.TrimSpace(reason),
		Payload:       map[string]any{"itemsCancelled": result.ItemsCancelled},
		At:            now,
	}, event)
	return &result, nil
}

// AdvanceOrderStatus moves an order forward through InProgress and Ready as
// its items progress. Completed is only reached through payments.
func (s *Service) AdvanceOrderStatus(ctx context.Context, orderID int64, to OrderStatus, actorID int64) (*Order, error) {
	if to != OrderInProgress && to != OrderReady {
		return nil, InvalidTransition(ErrOrderStatusBackwards, "Only IN_PROGRESS and READY can be set directly", map[string]any{"to": to.String()})
	}

	now := s.now()
	var order Order
	err := s.inTx(ctx, func(ctx context.Context, store Store) error {
		var err error
		order, err = store.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, ErrOrderNotFound, "Order not found")
		}
		if order.Status.IsTerminal() {
			return InvalidTransition(ErrOrderClosed, "Order is already "+strings.ToLower(order.Status.String()), map[string]any{"status": order.Status.String()})
		}
		if to <= order.Status {
			return InvalidTransition(ErrOrderStatusBackwards, "Order status can only move forward", map[string]any{
				"from": order.Status.String(),
				"to":   to.String(),
			})
		}
		if err := store.UpdateOrderStatus(ctx, orderID, to, nil, nil); err != nil {
			return err
		}
		order.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := s.newEvent(EventOrderStatus, order, now)
	event.ActorID = actorID
	s.afterCommit(ctx, AuditEntry{
		CorrelationID: uuid.NewString(),
		OrderID:       orderID,
		Action:        EventOrderStatus,
		ActorID:       actorID,
		Payload:       map[string]any{"status": to.String()},
		At:            now,
	}, event)
	return &order, nil
}

type RecalculateResult struct {
	Order          Order
	OrderCompleted bool
}

// RecalculateOrder is called by the item component after items are added,
// cancelled or change quantity. It is the only way totals are written.
func (s *Service) RecalculateOrder(ctx context.Context, orderID int64) (*RecalculateResult, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var (
		result   RecalculateResult
		decision CompletionDecision
	)
	err = s.inTx(ctx, func(ctx context.Context, store Store) error {
		order, err := store.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, ErrOrderNotFound, "Order not found")
		}
		if order.Status.IsTerminal() {
			return InvalidTransition(ErrOrderClosed, "Order is already "+strings.ToLower(order.Status.String()), map[string]any{"status": order.Status.String()})
		}
		order, ledger, err := recalculate(ctx, store, order, settings)
		if err != nil {
			return err
		}
		order, decision, err = tryComplete(ctx, store, order, ledger, settings, now)
		if err != nil {
			return err
		}
		result = RecalculateResult{Order: order, OrderCompleted: decision.Complete}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Debug("order recalculated",
		zap.Int64("orderId", orderID),
		zap.String("subtotal", money.Format(result.Order.Subtotal)),
		zap.String("total", money.Format(result.Order.TotalAmount)),
	)
	events := []Event{s.newEvent(EventOrderRecalculated, result.Order, now)}
	if result.OrderCompleted {
		s.logCompletion(result.Order, decision)
		events = append(events, s.newEvent(EventOrderCompleted, result.Order, now))
	}
	s.afterCommit(ctx, AuditEntry{
		CorrelationID: uuid.NewString(),
		OrderID:       orderID,
		Action:        EventOrderRecalculated,
		Payload: map[string]any{
			"subtotal": money.Format(result.Order.Subtotal),
			"total":    money.Format(result.Order.TotalAmount),
		},
		At: now,
	}, events...)
	return &result, nil
}

// OrderView is the read projection of an order's settlement state.
type OrderView struct {
	Order       Order
	Payments    []Payment
	SplitBills  []SplitBill
	ApprovedSum decimal.Decimal
	PendingSum  decimal.Decimal
	BalanceDue  decimal.Decimal

	// BalanceConsistent is false when the stored total no longer reconciles
	// with its components.
	BalanceConsistent bool
}

func (s *Service) GetOrderView(ctx context.Context, orderID int64) (*OrderView, error) {
	var view OrderView
	err := s.inTx(ctx, func(ctx context.Context, store Store) error {
		order, err := store.GetOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, ErrOrderNotFound, "Order not found")
		}
		payments, err := store.ListPayments(ctx, orderID)
		if err != nil {
			return err
		}
		bills, err := store.ListSplitBills(ctx, orderID)
		if err != nil {
			return err
		}
		ledger := NewLedger(payments)
		view = OrderView{
			Order:             order,
			Payments:          payments,
			SplitBills:        bills,
			ApprovedSum:       ledger.ApprovedSum(),
			PendingSum:        ledger.PendingSum(),
			BalanceDue:        money.Max(order.TotalAmount.Sub(ledger.ApprovedSum()), decimal.Zero),
			BalanceConsistent: CheckTotalsInvariant(order),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

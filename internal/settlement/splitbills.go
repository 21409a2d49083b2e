package settlement

import (
	"context"
	"sort"
	"time"

	"dinein-order-services/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ComputeAvailability subtracts quantities held by non-voided split bills
// from each live order item.
func ComputeAvailability(items []OrderItem, bills []SplitBill) []ItemAvailability {
	held := make(map[int64]int32)
	for _, bill := range bills {
		if bill.Status == SplitBillVoided {
			continue
		}
		for _, line := range bill.Lines {
			held[line.OrderItemID] += line.Quantity
		}
	}

	out := make([]ItemAvailability, 0, len(items))
	for _, item := range items {
		if item.IsCancelled {
			continue
		}
		available := item.Quantity - held[item.ID]
		if available < 0 {
			available = 0
		}
		out = append(out, ItemAvailability{Item: item, SplitQuantity: held[item.ID], AvailableQuantity: available})
	}
	return out
}

func mergeSplitLines(lines []SplitBillLine) []SplitBillLine {
	merged := make(map[int64]int32)
	for _, line := range lines {
		merged[line.OrderItemID] += line.Quantity
	}
	out := make([]SplitBillLine, 0, len(merged))
	for id, qty := range merged {
		out = append(out, SplitBillLine{OrderItemID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderItemID < out[j].OrderItemID })
	return out
}

func (s *Service) AvailableItems(ctx context.Context, orderID int64) ([]ItemAvailability, error) {
	var out []ItemAvailability
	err := s.inTx(ctx, func(ctx context.Context, store Store) error {
		if _, err := store.GetOrder(ctx, orderID); err != nil {
			return notFoundOr(err, ErrOrderNotFound, "Order not found")
		}
		items, err := store.ListOrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		bills, err := store.ListSplitBills(ctx, orderID)
		if err != nil {
			return err
		}
		out = ComputeAvailability(items, bills)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSplitBill carves quantities of order items into an independently
// payable bill. Parent order totals are not touched.
func (s *Service) CreateSplitBill(ctx context.Context, orderID int64, lines []SplitBillLine, actorID int64) (*SplitBill, error) {
	if len(lines) == 0 {
		return nil, ValidationError(ErrSplitEmpty, "At least one item is required", nil)
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, ValidationError(ErrSplitQuantity, "Split quantity must be positive", map[string]any{"orderItemId": line.OrderItemID})
		}
	}
	lines = mergeSplitLines(lines)

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var bill SplitBill
	err = s.inTx(ctx, func(ctx context.Context, store Store) error {
		order, err := store.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, ErrOrderNotFound, "Order not found")
		}
		if order.Status.IsTerminal() {
			return InvalidTransition(ErrOrderClosed, "Order is already closed", map[string]any{"status": order.Status.String()})
		}
		items, err := store.ListOrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		bills, err := store.ListSplitBills(ctx, orderID)
		if err != nil {
			return err
		}

		availability := make(map[int64]ItemAvailability)
		for _, a := range ComputeAvailability(items, bills) {
			availability[a.Item.ID] = a
		}

		amount := decimal.Zero
		for _, line := range lines {
			a, ok := availability[line.OrderItemID]
			if !ok {
				return NotFoundError(ErrOrderItemNotFound, "Order item not found on this order")
			}
			if line.Quantity > a.AvailableQuantity {
				return ValidationError(ErrSplitQuantity, "Requested quantity is no longer available", map[string]any{
					"orderItemId": line.OrderItemID,
					"requested":   line.Quantity,
					"available":   a.AvailableQuantity,
				})
			}
			amount = amount.Add(a.Item.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity)))
		}
		amount = money.Round2(amount)
		tax := money.ComputeTax(amount, decimal.Zero, settings.DefaultGSTPercentage)

		bill = SplitBill{
			OrderID:    orderID,
			Amount:     amount,
			TaxAmount:  tax.Tax,
			CGSTAmount: tax.CGST,
			SGSTAmount: tax.SGST,
			Total:      amount.Add(tax.Tax),
			Status:     SplitBillActive,
			Lines:      lines,
			CreatedAt:  now,
		}
		id, err := store.InsertSplitBill(ctx, bill)
		if err != nil {
			return err
		}
		bill.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("split bill created", zap.Int64("orderId", orderID), zap.Int64("splitBillId", bill.ID), zap.String("total", money.Format(bill.Total)))
	s.afterCommit(ctx, s.splitAudit(EventSplitBillCreated, bill, actorID, now), s.splitEvent(EventSplitBillCreated, bill, actorID, now))
	return &bill, nil
}

func (s *Service) SettleSplitBill(ctx context.Context, splitBillID int64, actorID int64) (*SplitBill, error) {
	return s.transitionSplitBill(ctx, splitBillID, SplitBillSettled, actorID, EventSplitBillSettled)
}

func (s *Service) VoidSplitBill(ctx context.Context, splitBillID int64, actorID int64) (*SplitBill, error) {
	return s.transitionSplitBill(ctx, splitBillID, SplitBillVoided, actorID, EventSplitBillVoided)
}

// Only Active bills move; Settled and Voided are final.
func (s *Service) transitionSplitBill(ctx context.Context, splitBillID int64, to SplitBillStatus, actorID int64, eventType string) (*SplitBill, error) {
	now := s.now()
	var bill SplitBill
	err := s.inTx(ctx, func(ctx context.Context, store Store) error {
		orderID, err := store.SplitBillOrderID(ctx, splitBillID)
		if err != nil {
			return notFoundOr(err, ErrSplitBillNotFound, "Split bill not found")
		}
		if _, err := store.LockOrder(ctx, orderID); err != nil {
			return notFoundOr(err, ErrOrderNotFound, "Order not found")
		}
		bill, err = store.LockSplitBill(ctx, splitBillID)
		if err != nil {
			return notFoundOr(err, ErrSplitBillNotFound, "Split bill not found")
		}
		if bill.Status != SplitBillActive {
			return InvalidTransition(ErrSplitBillNotActive, "Split bill is "+bill.Status.String(), map[string]any{"splitBillId": splitBillID})
		}
		if err := store.UpdateSplitBillStatus(ctx, splitBillID, to, now); err != nil {
			return err
		}
		bill.Status = to
		if to == SplitBillSettled {
			bill.SettledAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, s.splitAudit(eventType, bill, actorID, now), s.splitEvent(eventType, bill, actorID, now))
	return &bill, nil
}

func (s *Service) splitEvent(eventType string, bill SplitBill, actorID int64, at time.Time) Event {
	id := bill.ID
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		OrderID:     bill.OrderID,
		SplitBillID: &id,
		TotalAmount: money.Format(bill.Total),
		ActorID:     actorID,
		OccurredAt:  at.UTC(),
	}
}

func (s *Service) splitAudit(action string, bill SplitBill, actorID int64, at time.Time) AuditEntry {
	return AuditEntry{
		CorrelationID: uuid.NewString(),
		OrderID:       bill.OrderID,
		Action:        action,
		ActorID:       actorID,
		Payload: map[string]any{
			"splitBillId": bill.ID,
			"status":      bill.Status.String(),
			"total":       money.Format(bill.Total),
		},
		At: at,
	}
}

package settlement

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"dinein-order-services/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProcessPaymentRequest struct {
	OrderID         int64
	Method          string
	Amount          decimal.Decimal
	TipAmount       decimal.Decimal
	DiscountAmount  decimal.Decimal
	ApplyRoundoff   bool
	RoundoffHint    *decimal.Decimal
	ReferenceNumber string
	CardType        string
	CardLast4       string
	Notes           string
	ActorID         int64
	IdempotencyKey  string
}

type ProcessPaymentResult struct {
	PaymentID        int64
	PaymentStatus    PaymentStatus
	ApprovalRequired bool
	ApprovalReason   ApprovalReason
	Payment          Payment
	Order            Order
	OrderCompleted   bool
	Replayed         bool
}

type PaymentTransitionResult struct {
	Payment        Payment
	Order          Order
	OrderCompleted bool
	OrderReopened  bool
	ApprovedSum    decimal.Decimal
	PendingSum     decimal.Decimal
}

type replayRecord struct {
	PaymentID int64 `json:"paymentId"`
	OrderID   int64 `json:"orderId"`
}

func validateProcessRequest(req ProcessPaymentRequest) error {
	if req.OrderID <= 0 {
		return ValidationError(ErrInvalidAmount, "Order ID is required", nil)
	}
	if strings.TrimSpace(req.Method) == "" {
		return ValidationError(ErrMethodNotFound, "Payment method is required", nil)
	}
	for field, value := range map[string]decimal.Decimal{
		"amount":         req.Amount,
		"tipAmount":      req.TipAmount,
		"discountAmount": req.DiscountAmount,
	} {
		if value.IsNegative() {
			return ValidationError(ErrInvalidAmount, "Amounts must not be negative", map[string]any{"field": field})
		}
	}
	return nil
}

func validateCardInfo(req ProcessPaymentRequest) error {
	last4 := strings.TrimSpace(req.CardLast4)
	valid := len(last4) == 4
	for _, r := range last4 {
		if !unicode.IsDigit(r) {
			valid = false
		}
	}
	if !valid || strings.TrimSpace(req.CardType) == "" {
		return ValidationError(ErrCardInfoRequired, "Card type and last 4 digits are required for this payment method", map[string]any{"method": req.Method})
	}
	return nil
}

// ProcessPayment records a payment against an order. A payment the approval
// policy parks as Pending is a successful outcome with ApprovalRequired set.
func (s *Service) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (*ProcessPaymentResult, error) {
	if err := validateProcessRequest(req); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" && s.Idempotency != nil {
		replay, err := s.claimIdempotencyKey(ctx, key)
		if err != nil || replay != nil {
			return replay, err
		}
	}

	result, err := s.processPayment(ctx, req)
	if key != "" && s.Idempotency != nil {
		s.settleIdempotencyKey(ctx, key, result, err)
	}
	return result, err
}

func (s *Service) claimIdempotencyKey(ctx context.Context, key string) (*ProcessPaymentResult, error) {
	reserved, err := s.Idempotency.Reserve(ctx, key, s.IdempotencyTTL)
	if err != nil {
		return nil, DuplicateError(ErrIdempotencyUnavailable, "Idempotency store unavailable, retry the request")
	}
	if reserved {
		return nil, nil
	}

	raw, found, err := s.Idempotency.Result(ctx, key)
	if err != nil {
		return nil, DuplicateError(ErrIdempotencyUnavailable, "Idempotency store unavailable, retry the request")
	}
	if !found {
		return nil, DuplicateError(ErrRequestInFlight, "A request with this idempotency key is still being processed")
	}

	var record replayRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, PersistenceError(err)
	}
	return s.replay(ctx, record)
}

func (s *Service) settleIdempotencyKey(ctx context.Context, key string, result *ProcessPaymentResult, opErr error) {
	if opErr != nil || result == nil {
		if err := s.Idempotency.Release(ctx, key); err != nil {
			s.Logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
		}
		return
	}
	body, _ := json.Marshal(replayRecord{PaymentID: result.PaymentID, OrderID: result.Order.ID})
	if err := s.Idempotency.Complete(ctx, key, string(body), s.IdempotencyTTL); err != nil {
		s.Logger.Warn("idempotency completion failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) replay(ctx context.Context, record replayRecord) (*ProcessPaymentResult, error) {
	var result *ProcessPaymentResult
	err := s.inTx(ctx, func(ctx context.Context, store Store) error {
		payment, err := store.GetPayment(ctx, record.PaymentID)
		if err != nil {
			return notFoundOr(err, ErrPaymentNotFound, "Payment not found")
		}
		order, err := store.GetOrder(ctx, record.OrderID)
		if err != nil {
			return notFoundOr(err, ErrOrderNotFound, "Order not found")
		}
		result = &ProcessPaymentResult{
			PaymentID:        payment.ID,
			PaymentStatus:    payment.Status,
			ApprovalRequired: payment.Status == PaymentPending,
			Payment:          payment,
			Order:            order,
			Replayed:         true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) processPayment(ctx context.Context, req ProcessPaymentRequest) (*ProcessPaymentResult, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var (
		result   ProcessPaymentResult
		ledger   Ledger
		decision CompletionDecision
	)

	err = s.inTx(ctx, func(ctx context.Context, store Store) error {
		order, err := store.LockOrder(ctx, req.OrderID)
		if err != nil {
			return notFoundOr(err, ErrOrderNotFound, "Order not found")
		}
		if order.Status.IsTerminal() {
			return InvalidTransition(ErrOrderClosed, "Order is already "+strings.ToLower(order.Status.String()), map[string]any{"status": order.Status.String()})
		}

		method, err := store.GetPaymentMethod(ctx, strings.TrimSpace(req.Method))
		if err != nil {
			return notFoundOr(err, ErrMethodNotFound, "Payment method not found")
		}
		if !method.IsActive {
			return ValidationError(ErrMethodInactive, "Payment method is not active", map[string]any{"method": method.Code})
		}
		if method.RequiresCardInfo {
			if err := validateCardInfo(req); err != nil {
				return err
			}
		}

		items, err := store.ListOrderItems(ctx, order.ID)
		if err != nil {
			return err
		}
		existing, err := store.ListPayments(ctx, order.ID)
		if err != nil {
			return err
		}
		base := ComputeOrderTotals(items, NewLedger(existing), settings.DefaultGSTPercentage)
		remainingNet := money.NetSubtotal(base.Subtotal, base.DiscountAmount)

		payment := Payment{
			OrderID:         order.ID,
			Method:          method.Code,
			Amount:          money.Round2(req.Amount),
			TipAmount:       money.Round2(req.TipAmount),
			DiscAmount:      money.Round2(req.DiscountAmount),
			ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
			Notes:           strings.TrimSpace(req.Notes),
			CreatedBy:       req.ActorID,
			CreatedAt:       now,
		}
		if method.RequiresCardInfo {
			payment.CardType = strings.ToUpper(strings.TrimSpace(req.CardType))
			payment.CardLast4 = strings.TrimSpace(req.CardLast4)
		}

		if method.IsComplementary {
			payment.DiscAmount = remainingNet
			payment.Amount = decimal.Zero
			payment.TipAmount = decimal.Zero
		} else if payment.DiscAmount.GreaterThan(remainingNet) {
			return ValidationError(ErrDiscountExceedsNet, "Discount exceeds the remaining subtotal", map[string]any{
				"discountAmount":    money.Format(payment.DiscAmount),
				"remainingSubtotal": money.Format(remainingNet),
			})
		}
		if !method.IsComplementary && payment.Amount.IsZero() && payment.TipAmount.IsZero() && payment.DiscAmount.IsZero() {
			return ValidationError(ErrInvalidAmount, "Payment must carry an amount, tip or discount", map[string]any{"method": method.Code})
		}

		projected := money.ComputeTax(base.Subtotal, base.DiscountAmount.Add(payment.DiscAmount), settings.DefaultGSTPercentage)
		paymentTax := money.ProrateTax(projected.Tax, payment.Amount, projected.NetSubtotal.Add(projected.Tax))
		payment.GSTAmount = paymentTax.Tax
		payment.CGSTAmount = paymentTax.CGST
		payment.SGSTAmount = paymentTax.SGST

		roundoff := money.NoRoundoff(payment.Amount)
		if method.RoundsToWholeUnit || req.ApplyRoundoff {
			roundoff = money.ComputeRoundoff(payment.Amount)
		}
		payment.RoundoffAdjustmentAmt = roundoff.Adjustment
		if req.RoundoffHint != nil && !req.RoundoffHint.Equal(roundoff.Adjustment) {
			s.Logger.Warn("roundoff hint disagrees with server computation",
				zap.Int64("orderId", order.ID),
				zap.String("hint", req.RoundoffHint.String()),
				zap.String("adjustment", money.Format(roundoff.Adjustment)),
			)
		}

		approval := DecideInitialStatus(payment, method, settings)
		payment.Status = approval.Status

		id, persisted, err := store.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		if persisted != approval.Status {
			s.Logger.Warn("payment status corrected after insert",
				zap.Int64("paymentId", id),
				zap.String("persisted", persisted.String()),
				zap.String("decided", approval.Status.String()),
			)
			if err := store.UpdatePaymentStatus(ctx, PaymentStatusUpdate{
				PaymentID: id,
				From:      persisted,
				To:        approval.Status,
				Reason:    "approval policy " + string(approval.Reason),
				ActorID:   req.ActorID,
				At:        now,
			}); err != nil {
				return err
			}
		}

		order, ledger, err = recalculate(ctx, store, order, settings)
		if err != nil {
			return err
		}
		order, decision, err = tryComplete(ctx, store, order, ledger, settings, now)
		if err != nil {
			return err
		}

		result = ProcessPaymentResult{
			PaymentID:        id,
			PaymentStatus:    payment.Status,
			ApprovalRequired: approval.RequiresApproval(),
			ApprovalReason:   approval.Reason,
			Payment:          payment,
			Order:            order,
			OrderCompleted:   decision.Complete,
		}
		return nil
	})
	if err != nil {
		s.Logger.Info("payment rejected", zap.Int64("orderId", req.OrderID), zap.String("method", req.Method), zap.Error(err))
		return nil, err
	}

	s.Logger.Info("payment processed",
		zap.Int64("orderId", result.Order.ID),
		zap.Int64("paymentId", result.PaymentID),
		zap.String("status", result.PaymentStatus.String()),
		zap.String("approvalReason", string(result.ApprovalReason)),
		zap.String("amount", money.Format(result.Payment.Amount)),
	)
	events := []Event{s.paymentEvent(EventPaymentProcessed, result.Order, result.Payment, ledger, req.ActorID, now)}
	if result.OrderCompleted {
		s.logCompletion(result.Order, decision)
		events = append(events, s.newEvent(EventOrderCompleted, result.Order, now))
	}
	paymentID := result.PaymentID
	s.afterCommit(ctx, AuditEntry{
		CorrelationID: uuid.NewString(),
		OrderID:       result.Order.ID,
		PaymentID:     &paymentID,
		Action:        EventPaymentProcessed,
		ActorID:       req.ActorID,
		Payload: map[string]any{
			"method":         result.Payment.Method,
			"amount":         money.Format(result.Payment.Amount),
			"tipAmount":      money.Format(result.Payment.TipAmount),
			"discountAmount": money.Format(result.Payment.DiscAmount),
			"roundoff":       money.Format(result.Payment.RoundoffAdjustmentAmt),
			"status":         result.PaymentStatus.String(),
		},
		At: now,
	}, events...)

	return &result, nil
}

// ApprovePayment moves a Pending payment to Approved and re-evaluates the
// order.
func (s *Service) ApprovePayment(ctx context.Context, paymentID int64, actorID int64, note string) (*PaymentTransitionResult, error) {
	return s.transitionPayment(ctx, paymentID, actorID, note, PaymentPending, PaymentApproved, EventPaymentApproved)
}

// RejectPayment moves a Pending payment to Rejected. Its discount and tip
// drop out of the order totals.
func (s *Service) RejectPayment(ctx context.Context, paymentID int64, actorID int64, reason string) (*PaymentTransitionResult, error) {
	return s.transitionPayment(ctx, paymentID, actorID, reason, PaymentPending, PaymentRejected, EventPaymentRejected)
}

// VoidPayment moves an Approved payment to Voided and recomputes discount,
// tax and total from the remaining payments. A Completed order that is no
// longer covered is reopened to Ready.
func (s *Service) VoidPayment(ctx context.Context, paymentID int64, actorID int64, reason string) (*PaymentTransitionResult, error) {
	return s.transitionPayment(ctx, paymentID, actorID, reason, PaymentApproved, PaymentVoided, EventPaymentVoided)
}

func (s *Service) transitionPayment(ctx context.Context, paymentID int64, actorID int64, reason string, from, to PaymentStatus, eventType string) (*PaymentTransitionResult, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var (
		result   PaymentTransitionResult
		ledger   Ledger
		decision CompletionDecision
	)

	err = s.inTx(ctx, func(ctx context.Context, store Store) error {
		order, payment, err := lockPaymentOrder(ctx, store, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != from {
			code := ErrPaymentNotPending
			if from == PaymentApproved {
				code = ErrPaymentNotApproved
			}
			return InvalidTransition(code, "Payment is "+strings.ToLower(payment.Status.String()), map[string]any{
				"paymentId": paymentID,
				"status":    payment.Status.String(),
				"required":  from.String(),
			})
		}
		if to == PaymentApproved && order.Status == OrderCancelled {
			return InvalidTransition(ErrOrderClosed, "Order is cancelled", map[string]any{"status": order.Status.String()})
		}

		if err := store.UpdatePaymentStatus(ctx, PaymentStatusUpdate{
			PaymentID: paymentID,
			From:      from,
			To:        to,
			Reason:    strings.TrimSpace(reason),
			ActorID:   actorID,
			At:        now,
		}); err != nil {
			return err
		}
		payment.Status = to
		payment.StatusReason = strings.TrimSpace(reason)
		payment.DecidedBy = &actorID
		payment.DecidedAt = &now

		if order.Status == OrderCancelled {
			// Totals of a cancelled order are frozen; only the ledger moves.
			payments, err := store.ListPayments(ctx, order.ID)
			if err != nil {
				return err
			}
			ledger = NewLedger(payments)
		} else {
			order, ledger, err = recalculate(ctx, store, order, settings)
			if err != nil {
				return err
			}
		}

		if to == PaymentVoided && order.Status == OrderCompleted {
			open := order
			open.Status = OrderReady
			if !EvaluateCompletion(open, ledger, settings).Complete {
				if err := store.UpdateOrderStatus(ctx, order.ID, OrderReady, nil, nil); err != nil {
					return err
				}
				order.Status = OrderReady
				order.CompletedAt = nil
				result.OrderReopened = true
			}
		}

		order, decision, err = tryComplete(ctx, store, order, ledger, settings, now)
		if err != nil {
			return err
		}

		result.Payment = payment
		result.Order = order
		result.OrderCompleted = decision.Complete
		result.ApprovedSum = ledger.ApprovedSum()
		result.PendingSum = ledger.PendingSum()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("payment status changed",
		zap.Int64("paymentId", paymentID),
		zap.Int64("orderId", result.Order.ID),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int64("actorId", actorID),
	)
	events := []Event{s.paymentEvent(eventType, result.Order, result.Payment, ledger, actorID, now)}
	if result.OrderCompleted {
		s.logCompletion(result.Order, decision)
		events = append(events, s.newEvent(EventOrderCompleted, result.Order, now))
	}
	if result.OrderReopened {
		s.Logger.Warn("order reopened after void",
			zap.Int64("orderId", result.Order.ID),
			zap.String("approvedSum", money.Format(result.ApprovedSum)),
			zap.String("total", money.Format(result.Order.TotalAmount)),
		)
		events = append(events, s.newEvent(EventOrderReopened, result.Order, now))
	}
	s.afterCommit(ctx, AuditEntry{
		CorrelationID: uuid.NewString(),
		OrderID:       result.Order.ID,
		PaymentID:     &paymentID,
		Action:        eventType,
		ActorID:       actorID,
		Reason:        strings.TrimSpace(reason),
		Payload: map[string]any{
			"from":        from.String(),
			"to":          to.String(),
			"orderStatus": result.Order.Status.String(),
		},
		At: now,
	}, events...)

	return &result, nil
}

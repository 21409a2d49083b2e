package settlement

import (
	"context"
	"time"

	"dinein-order-services/internal/money"

	"github.com/shopspring/decimal"
)

type CompletionRule string

const (
	RuleNone            CompletionRule = ""
	RuleApproved        CompletionRule = "approved"
	RuleApprovedPending CompletionRule = "approved_with_pending"
)

type CompletionDecision struct {
	Complete     bool
	Rule         CompletionRule
	Tolerance    decimal.Decimal
	ApprovedSum  decimal.Decimal
	EligibleSum  decimal.Decimal
	Target       decimal.Decimal
	AlreadyFinal bool

	// AwaitingDiscount is set when an unapproved discount still shapes the
	// total and the payments do not cover the undiscounted total either.
	AwaitingDiscount bool
}

var completionTolerances = []decimal.Decimal{money.StrictTolerance, money.FallbackTolerance}

// EvaluateCompletion decides whether an order's ledger settles its total.
// Approved payments are checked first, then approved plus the pending
// payments the discount policy allows to count. The strict tolerance is
// tried before the fallback tolerance. While a discount awaits approval the
// target is the total without that discount. A ledger with nothing approved
// and nothing eligible pending never completes an order.
func EvaluateCompletion(order Order, ledger Ledger, settings RestaurantSettings) CompletionDecision {
	approved := ledger.ApprovedSum()
	pending := ledger.PendingSum()
	if settings.IsDiscountApprovalRequired {
		pending = ledger.PendingSumWithoutDiscount()
	}
	eligible := approved.Add(pending)

	target := order.TotalAmount
	awaiting := settings.IsDiscountApprovalRequired && ledger.HasPendingDiscount()
	if awaiting {
		undiscounted := ledger.WithoutPendingDiscounts()
		target = totalsForSubtotal(order.Subtotal, undiscounted, settings.DefaultGSTPercentage).TotalAmount
	}

	decision := CompletionDecision{ApprovedSum: approved, EligibleSum: eligible, Target: target}
	if order.Status.IsTerminal() {
		decision.AlreadyFinal = true
		return decision
	}
	if !ledger.HasSettlingRows(settings.IsDiscountApprovalRequired) {
		decision.AwaitingDiscount = awaiting
		return decision
	}

	for _, tol := range completionTolerances {
		if money.Covers(approved, target, tol) {
			decision.Complete, decision.Rule, decision.Tolerance = true, RuleApproved, tol
			return decision
		}
		if money.Covers(eligible, target, tol) {
			decision.Complete, decision.Rule, decision.Tolerance = true, RuleApprovedPending, tol
			return decision
		}
	}
	decision.AwaitingDiscount = awaiting
	return decision
}

// tryComplete moves the order to Completed when the ledger settles it. It
// never moves an order backwards and is a no-op on terminal orders.
func tryComplete(ctx context.Context, store Store, order Order, ledger Ledger, settings RestaurantSettings, now time.Time) (Order, CompletionDecision, error) {
	decision := EvaluateCompletion(order, ledger, settings)
	if !decision.Complete {
		return order, decision, nil
	}

	completedAt := order.CompletedAt
	if completedAt == nil {
		completedAt = &now
	}
	if err := store.UpdateOrderStatus(ctx, order.ID, OrderCompleted, completedAt, nil); err != nil {
		return order, decision, err
	}
	order.Status = OrderCompleted
	order.CompletedAt = completedAt
	return order, decision, nil
}

package handlers

import (
	"net/http"
	"strings"

	"dinein-order-services/internal/money"
	"dinein-order-services/internal/settlement"
	"dinein-order-services/pkg/response"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type processPaymentRequest struct {
	PaymentMethod         string           `json:"paymentMethod" validate:"required,max=32"`
	Amount                decimal.Decimal  `json:"amount" validate:"gte=0"`
	TipAmount             decimal.Decimal  `json:"tipAmount" validate:"gte=0"`
	DiscountAmount        decimal.Decimal  `json:"discountAmount" validate:"gte=0"`
	ApplyRoundoff         bool             `json:"applyRoundoff"`
	RoundoffAdjustmentAmt *decimal.Decimal `json:"roundoffAdjustmentAmt"`
	ReferenceNumber       string           `json:"referenceNumber" validate:"max=64"`
	CardType              string           `json:"cardType" validate:"max=20"`
	CardLast4             string           `json:"cardLast4" validate:"omitempty,len=4,numeric"`
	Notes                 string           `json:"notes" validate:"max=500"`
}

type paymentNoteRequest struct {
	Note string `json:"note" validate:"max=500"`
}

type rejectPaymentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type voidPaymentRequest struct {
	Reason     string `json:"reason" validate:"required,max=500"`
	ManagerPin string `json:"managerPin" validate:"required,max=32"`
}

type processPaymentResponse struct {
	PaymentID        int64           `json:"paymentId"`
	PaymentStatus    string          `json:"paymentStatus"`
	ApprovalRequired bool            `json:"approvalRequired"`
	ApprovalReason   string          `json:"approvalReason"`
	Payment          PaymentResponse `json:"payment"`
	Order            OrderResponse   `json:"order"`
	OrderCompleted   bool            `json:"orderCompleted"`
	Replayed         bool            `json:"replayed"`
}

type paymentTransitionResponse struct {
	Payment        PaymentResponse `json:"payment"`
	Order          OrderResponse   `json:"order"`
	OrderCompleted bool            `json:"orderCompleted"`
	OrderReopened  bool            `json:"orderReopened"`
	ApprovedSum    string          `json:"approvedSum"`
	PendingSum     string          `json:"pendingSum"`
}

func newPaymentTransitionResponse(result *settlement.PaymentTransitionResult) paymentTransitionResponse {
	return paymentTransitionResponse{
		Payment:        NewPaymentResponse(result.Payment),
		Order:          NewOrderResponse(result.Order),
		OrderCompleted: result.OrderCompleted,
		OrderReopened:  result.OrderReopened,
		ApprovedSum:    money.Format(result.ApprovedSum),
		PendingSum:     money.Format(result.PendingSum),
	}
}

// POSProcessPayment records a payment against an order. A repeated
// Idempotency-Key returns the first outcome.
func (h *Handler) POSProcessPayment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	orderID, ok := readPathID(w, r, "orderId", "Order ID")
	if !ok {
		return
	}

	var body processPaymentRequest
	if !h.decodeBody(w, r, &body, false) {
		return
	}

	result, err := h.Settlement.ProcessPayment(r.Context(), settlement.ProcessPaymentRequest{
		OrderID:         orderID,
		Method:          strings.TrimSpace(body.PaymentMethod),
		Amount:          body.Amount,
		TipAmount:       body.TipAmount,
		DiscountAmount:  body.DiscountAmount,
		ApplyRoundoff:   body.ApplyRoundoff,
		RoundoffHint:    body.RoundoffAdjustmentAmt,
		ReferenceNumber: body.ReferenceNumber,
		CardType:        body.CardType,
		CardLast4:       body.CardLast4,
		Notes:           body.Notes,
		ActorID:         actorID,
		IdempotencyKey:  strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		h.writeServiceError(w, r, "process payment", err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	response.JSON(w, status, map[string]any{
		"success": true,
		"data": processPaymentResponse{
			PaymentID:        result.PaymentID,
			PaymentStatus:    result.PaymentStatus.String(),
			ApprovalRequired: result.ApprovalRequired,
			ApprovalReason:   string(result.ApprovalReason),
			Payment:          NewPaymentResponse(result.Payment),
			Order:            NewOrderResponse(result.Order),
			OrderCompleted:   result.OrderCompleted,
			Replayed:         result.Replayed,
		},
	})
}

func (h *Handler) POSApprovePayment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	paymentID, ok := readPathID(w, r, "paymentId", "Payment ID")
	if !ok {
		return
	}
	var body paymentNoteRequest
	if !h.decodeBody(w, r, &body, true) {
		return
	}

	result, err := h.Settlement.ApprovePayment(r.Context(), paymentID, actorID, strings.TrimSpace(body.Note))
	if err != nil {
		h.writeServiceError(w, r, "approve payment", err)
		return
	}
	response.Success(w, newPaymentTransitionResponse(result))
}

func (h *Handler) POSRejectPayment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	paymentID, ok := readPathID(w, r, "paymentId", "Payment ID")
	if !ok {
		return
	}
	var body rejectPaymentRequest
	if !h.decodeBody(w, r, &body, true) {
		return
	}

	result, err := h.Settlement.RejectPayment(r.Context(), paymentID, actorID, strings.TrimSpace(body.Reason))
	if err != nil {
		h.writeServiceError(w, r, "reject payment", err)
		return
	}
	response.Success(w, newPaymentTransitionResponse(result))
}

// POSVoidPayment requires the manager PIN on top of the manager role.
func (h *Handler) POSVoidPayment(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	paymentID, ok := readPathID(w, r, "paymentId", "Payment ID")
	if !ok {
		return
	}
	var body voidPaymentRequest
	if !h.decodeBody(w, r, &body, false) {
		return
	}

	settings, err := h.Settings.Settings(r.Context())
	if err != nil {
		h.Logger.Error("void payment settings lookup failed", zapError(err))
		response.Error(w, http.StatusServiceUnavailable, string(settlement.ErrTransactionFailed), "Settings are unavailable, retry the operation")
		return
	}
	if settings.ManagerPinHash == "" {
		response.Error(w, http.StatusBadRequest, "PIN_NOT_SET", "Manager PIN is not configured")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(settings.ManagerPinHash), []byte(strings.TrimSpace(body.ManagerPin))) != nil {
		h.Logger.Warn("void payment rejected: invalid manager pin", zap.Int64("paymentId", paymentID), zap.Int64("actorId", actorID))
		response.Error(w, http.StatusUnauthorized, "INVALID_PIN", "Invalid PIN")
		return
	}

	result, err := h.Settlement.VoidPayment(r.Context(), paymentID, actorID, strings.TrimSpace(body.Reason))
	if err != nil {
		h.writeServiceError(w, r, "void payment", err)
		return
	}
	response.Success(w, newPaymentTransitionResponse(result))
}

package handlers

import (
	"net/http"
	"strings"

	"dinein-order-services/internal/settlement"
	"dinein-order-services/pkg/response"
)

type advanceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=IN_PROGRESS READY in_progress ready"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handler) POSOrderView(w http.ResponseWriter, r *http.Request) {
	orderID, ok := readPathID(w, r, "orderId", "Order ID")
	if !ok {
		return
	}
	view, err := h.Settlement.GetOrderView(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, r, "order view", err)
		return
	}
	response.Success(w, NewOrderViewResponse(*view))
}

func (h *Handler) POSRecalculateOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := readPathID(w, r, "orderId", "Order ID")
	if !ok {
		return
	}
	result, err := h.Settlement.RecalculateOrder(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, r, "recalculate order", err)
		return
	}
	response.Success(w, map[string]any{
		"order":          NewOrderResponse(result.Order),
		"orderCompleted": result.OrderCompleted,
	})
}

func (h *Handler) POSAdvanceOrderStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	orderID, ok := readPathID(w, r, "orderId", "Order ID")
	if !ok {
		return
	}
	var body advanceStatusRequest
	if !h.decodeBody(w, r, &body, false) {
		return
	}
	to, ok := settlement.ParseOrderStatus(body.Status)
	if !ok {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order status")
		return
	}

	order, err := h.Settlement.AdvanceOrderStatus(r.Context(), orderID, to, actorID)
	if err != nil {
		h.writeServiceError(w, r, "advance order status", err)
		return
	}
	response.Success(w, NewOrderResponse(*order))
}

func (h *Handler) POSCancelOrder(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	orderID, ok := readPathID(w, r, "orderId", "Order ID")
	if !ok {
		return
	}
	var body cancelOrderRequest
	if !h.decodeBody(w, r, &body, true) {
		return
	}

	result, err := h.Settlement.CancelOrder(r.Context(), orderID, actorID, strings.TrimSpace(body.Reason))
	if err != nil {
		h.writeServiceError(w, r, "cancel order", err)
		return
	}
	response.Success(w, map[string]any{
		"order":          NewOrderResponse(result.Order),
		"itemsCancelled": result.ItemsCancelled,
	})
}

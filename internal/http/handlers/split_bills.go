package handlers

import (
	"context"
	"net/http"

	"dinein-order-services/internal/money"
	"dinein-order-services/internal/settlement"
	"dinein-order-services/pkg/response"
)

type splitBillLineRequest struct {
	OrderItemID int64 `json:"orderItemId" validate:"required,gt=0"`
	Quantity    int32 `json:"quantity" validate:"required,gt=0"`
}

type createSplitBillRequest struct {
	Items []splitBillLineRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) POSAvailableSplitItems(w http.ResponseWriter, r *http.Request) {
	orderID, ok := readPathID(w, r, "orderId", "Order ID")
	if !ok {
		return
	}
	items, err := h.Settlement.AvailableItems(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, r, "available split items", err)
		return
	}

	out := make([]AvailableItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, AvailableItemResponse{
			OrderItemID:       item.Item.ID,
			Name:              item.Item.Name,
			UnitPrice:         money.Format(item.Item.UnitPrice),
			Quantity:          item.Item.Quantity,
			SplitQuantity:     item.SplitQuantity,
			AvailableQuantity: item.AvailableQuantity,
		})
	}
	response.Success(w, out)
}

func (h *Handler) POSCreateSplitBill(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	orderID, ok := readPathID(w, r, "orderId", "Order ID")
	if !ok {
		return
	}
	var body createSplitBillRequest
	if !h.decodeBody(w, r, &body, false) {
		return
	}

	lines := make([]settlement.SplitBillLine, 0, len(body.Items))
	for _, item := range body.Items {
		lines = append(lines, settlement.SplitBillLine{OrderItemID: item.OrderItemID, Quantity: item.Quantity})
	}
	bill, err := h.Settlement.CreateSplitBill(r.Context(), orderID, lines, actorID)
	if err != nil {
		h.writeServiceError(w, r, "create split bill", err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]any{"success": true, "data": NewSplitBillResponse(*bill)})
}

func (h *Handler) POSSettleSplitBill(w http.ResponseWriter, r *http.Request) {
	h.transitionSplitBill(w, r, "settle split bill", h.Settlement.SettleSplitBill)
}

func (h *Handler) POSVoidSplitBill(w http.ResponseWriter, r *http.Request) {
	h.transitionSplitBill(w, r, "void split bill", h.Settlement.VoidSplitBill)
}

func (h *Handler) transitionSplitBill(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, splitBillID int64, actorID int64) (*settlement.SplitBill, error)) {
	actorID, ok := h.actorID(w, r)
	if !ok {
		return
	}
	splitBillID, ok := readPathID(w, r, "splitBillId", "Split bill ID")
	if !ok {
		return
	}
	bill, err := fn(r.Context(), splitBillID, actorID)
	if err != nil {
		h.writeServiceError(w, r, op, err)
		return
	}
	response.Success(w, NewSplitBillResponse(*bill))
}

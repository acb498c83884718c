package handlers

import (
	"net/http"
	"strconv"

	"github.com/kudimart/checkout-engine/internal/interfaces/rest"
)

type orderDetailResponse struct {
	Order   orderDTO    `json:"order"`
	Invoice *invoiceDTO `json:"invoice,omitempty"`
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	order, invoice, err := h.checkoutService.GetOrder(r.Context(), r.PathValue("id"), ownerID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, orderDetailResponse{
		Order:   toOrderDTO(order),
		Invoice: toInvoiceDTO(invoice),
	})
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	orders, err := h.checkoutService.ListOrders(r.Context(), ownerID, limit, offset)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	dtos := make([]orderDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, toOrderDTO(order))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

package handlers

import (
	"net/http"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/application/services"
	"github.com/kudimart/checkout-engine/internal/interfaces/rest"
)

type confirmTransferRequest struct {
	TransactionID string `json:"transaction_id"`
	AmountPaid    int64  `json:"amount_paid"`
}

// ConfirmTransfer settles a bank transfer order after an operator has
// sighted the credit on the account statement.
func (h *Handlers) ConfirmTransfer(w http.ResponseWriter, r *http.Request) {
	var req confirmTransferRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.TransactionID == "" {
		rest.WriteError(w, application.NewValidationError("transaction_id is required", nil), h.logger)
		return
	}

	result, err := h.reconcileService.ConfirmManualPayment(r.Context(), services.ConfirmTransferCommand{
		OrderID:       r.PathValue("id"),
		TransactionID: req.TransactionID,
		AmountPaid:    req.AmountPaid,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toVerificationDTO(result))
}

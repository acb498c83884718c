package handlers

import (
	"net/http"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/application/services"
	"github.com/kudimart/checkout-engine/internal/interfaces/rest"
)

func (h *Handlers) GetWallet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	wallet, transactions, err := h.walletService.Balance(r.Context(), ownerID, 20, 0)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toWalletDTO(wallet, transactions))
}

type depositRequest struct {
	Amount        int64  `json:"amount"`
	CustomerEmail string `json:"customer_email"`
}

type depositResponse struct {
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
	Amount      int64  `json:"amount"`
}

func (h *Handlers) InitiateDeposit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req depositRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.walletService.InitiateDeposit(r.Context(), services.DepositCommand{
		OwnerID:       ownerID,
		Amount:        req.Amount,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, depositResponse{
		Reference:   result.Reference,
		RedirectURL: result.RedirectURL,
		Amount:      result.Amount,
	})
}

type verifyDepositRequest struct {
	Reference string `json:"reference"`
}

func (h *Handlers) VerifyDeposit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req verifyDepositRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Reference == "" {
		rest.WriteError(w, application.NewValidationError("reference is required", nil), h.logger)
		return
	}

	result, err := h.reconcileService.VerifyDeposit(r.Context(), ownerID, req.Reference)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toVerificationDTO(result))
}

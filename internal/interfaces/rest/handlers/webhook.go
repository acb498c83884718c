package handlers

import (
	"io"
	"net/http"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/interfaces/rest"
)

// maxWebhookBody caps what a provider may post.
const maxWebhookBody = 1 << 20

// Webhook receives provider payment events. The raw body is read once
// and handed to reconciliation untouched; the signature is checked over
// these exact bytes. Responses: 400 for a bad signature, 404 for an
// unknown provider, 200 for everything the pipeline handled, 5xx only
// when storage failed and the provider should redeliver.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		rest.WriteError(w, application.NewValidationError("unreadable webhook body", err), h.logger)
		return
	}

	gw, err := h.gateways.ForWebhook(provider)
	if err != nil {
		rest.WriteError(w, application.NewNotFoundError("provider"), h.logger)
		return
	}
	signature := r.Header.Get(gw.SignatureHeader())

	if err := h.reconcileService.ProcessWebhook(r.Context(), provider, rawBody, signature); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, nil)
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	result, err := h.reconcileService.VerifyOwnedPayment(r.Context(), ownerID, r.PathValue("reference"))
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toVerificationDTO(result))
}

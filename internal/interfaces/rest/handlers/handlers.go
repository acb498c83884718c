package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/application/services"
	"github.com/kudimart/checkout-engine/internal/gateway"
	"github.com/kudimart/checkout-engine/internal/interfaces/rest"
	"github.com/kudimart/checkout-engine/internal/interfaces/rest/middleware"
)

type Handlers struct {
	checkoutService  *services.CheckoutService
	reconcileService *services.ReconcileService
	walletService    *services.WalletService
	gateways         *gateway.Registry
	logger           *slog.Logger
}

func NewHandlers(
	checkoutService *services.CheckoutService,
	reconcileService *services.ReconcileService,
	walletService *services.WalletService,
	gateways *gateway.Registry,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		checkoutService:  checkoutService,
		reconcileService: reconcileService,
		walletService:    walletService,
		gateways:         gateways,
		logger:           logger,
	}
}

// Routes registers every endpoint. Admin routes go through adminGuard;
// webhook routes carry no user identity at all.
func (h *Handlers) Routes(mux *http.ServeMux, adminGuard func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /checkout", h.CreateCheckout)
	mux.HandleFunc("GET /checkout/{id}", h.GetCheckout)
	mux.HandleFunc("PATCH /checkout/{id}", h.AbandonCheckout)
	mux.HandleFunc("POST /checkout/{id}/retry", h.RetryCheckout)

	mux.HandleFunc("POST /webhooks/{provider}", h.Webhook)
	mux.HandleFunc("GET /payments/verify/{reference}", h.VerifyPayment)

	mux.HandleFunc("GET /wallet", h.GetWallet)
	mux.HandleFunc("POST /wallet/deposit", h.InitiateDeposit)
	mux.HandleFunc("POST /wallet/verify", h.VerifyDeposit)

	mux.HandleFunc("GET /orders", h.ListOrders)
	mux.HandleFunc("GET /orders/{id}", h.GetOrder)

	mux.Handle("POST /admin/orders/{id}/confirm-transfer", adminGuard(http.HandlerFunc(h.ConfirmTransfer)))
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// owner extracts the authenticated user or writes a 401.
func (h *Handlers) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		rest.WriteError(w, application.NewUnauthorizedError(), h.logger)
		return "", false
	}
	return ownerID, true
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		rest.WriteError(w, application.NewValidationError("invalid request body", err), h.logger)
		return false
	}
	return true
}

package handlers

import (
	"net/http"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/application/services"
	"github.com/kudimart/checkout-engine/internal/interfaces/rest"
)

type checkoutItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutRequest struct {
	Items           []checkoutItemRequest `json:"items"`
	CouponCode      string                `json:"coupon_code"`
	PaymentMethod   string                `json:"payment_method"`
	CustomerEmail   string                `json:"customer_email"`
	ShippingAddress addressDTO            `json:"shipping_address"`
	BillingAddress  *addressDTO           `json:"billing_address,omitempty"`
}

type quoteResponse struct {
	Subtotal    int64  `json:"subtotal"`
	DeliveryFee int64  `json:"delivery_fee"`
	Discount    int64  `json:"discount"`
	Tax         int64  `json:"tax"`
	Total       int64  `json:"total"`
	WeightKg    string `json:"weight_kg"`
}

type checkoutResponse struct {
	Checkout     checkoutDTO   `json:"checkout"`
	Order        orderDTO      `json:"order"`
	Quote        quoteResponse `json:"quote"`
	RedirectURL  string        `json:"redirect_url,omitempty"`
	Instructions string        `json:"instructions,omitempty"`
	Warnings     []warningDTO  `json:"warnings,omitempty"`
}

func (h *Handlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	items := make([]services.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.CheckoutItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	cmd := services.CheckoutCommand{
		OwnerID:         ownerID,
		Items:           items,
		CouponCode:      req.CouponCode,
		PaymentMethod:   req.PaymentMethod,
		CustomerEmail:   req.CustomerEmail,
		ShippingAddress: req.ShippingAddress.toDomain(),
	}
	if req.BillingAddress != nil {
		cmd.BillingAddress = req.BillingAddress.toDomain()
	}

	result, err := h.checkoutService.Checkout(r.Context(), cmd)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, checkoutResponse{
		Checkout: toCheckoutDTO(result.Checkout),
		Order:    toOrderDTO(result.Order),
		Quote: quoteResponse{
			Subtotal:    result.Quote.Subtotal,
			DeliveryFee: result.Quote.DeliveryFee,
			Discount:    result.Quote.Discount,
			Tax:         result.Quote.Tax,
			Total:       result.Quote.Total,
			WeightKg:    result.Quote.TotalWeight.String(),
		},
		RedirectURL:  result.RedirectURL,
		Instructions: result.Instructions,
		Warnings:     toWarningDTOs(result.Warnings),
	})
}

func (h *Handlers) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	checkout, err := h.checkoutService.GetCheckout(r.Context(), r.PathValue("id"), ownerID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toCheckoutDTO(checkout))
}

type abandonRequest struct {
	Status string `json:"status"`
}

// AbandonCheckout is the only PATCH the checkout accepts; any target
// status other than ABANDONED is rejected.
func (h *Handlers) AbandonCheckout(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req abandonRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Status != "ABANDONED" {
		rest.WriteError(w, application.NewValidationError("only status ABANDONED may be requested", nil), h.logger)
		return
	}

	checkout, err := h.checkoutService.Abandon(r.Context(), r.PathValue("id"), ownerID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toCheckoutDTO(checkout))
}

func (h *Handlers) RetryCheckout(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	result, err := h.checkoutService.RetryInitiation(r.Context(), r.PathValue("id"), ownerID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, checkoutResponse{
		Checkout:     toCheckoutDTO(result.Checkout),
		Order:        toOrderDTO(result.Order),
		RedirectURL:  result.RedirectURL,
		Instructions: result.Instructions,
	})
}

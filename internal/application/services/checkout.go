package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/domain"
	"github.com/kudimart/checkout-engine/internal/gateway"
	"github.com/kudimart/checkout-engine/internal/infrastructure/persistence/postgres"
	"github.com/kudimart/checkout-engine/internal/notify"
	"github.com/kudimart/checkout-engine/internal/pricing"
)

// orderNumberAttempts bounds retries against the unique constraint on
// order_number.
const orderNumberAttempts = 3

// paymentVerifier settles a payment synchronously by reference.
// Implemented by the reconcile service; the checkout service uses it
// for wallet payments, which have no webhook.
type paymentVerifier interface {
	VerifyPayment(ctx context.Context, reference string) (*VerificationResult, error)
}

// CheckoutService turns a submitted cart into a checkout, an order and
// an invoice, then hands payment off to the selected gateway.
type CheckoutService struct {
	checkouts application.CheckoutStore
	orders    application.OrderStore
	invoices  application.InvoiceStore
	catalog   application.CatalogStore
	tx        application.Atomic
	gateways  *gateway.Registry
	calc      *pricing.Calculator
	verifier  paymentVerifier
	notifier  notify.Notifier
	currency  string
	callback  string
	logger    *slog.Logger
}

func NewCheckoutService(
	checkouts application.CheckoutStore,
	orders application.OrderStore,
	invoices application.InvoiceStore,
	catalog application.CatalogStore,
	tx application.Atomic,
	gateways *gateway.Registry,
	calc *pricing.Calculator,
	verifier paymentVerifier,
	notifier notify.Notifier,
	currency string,
	callback string,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		checkouts: checkouts,
		orders:    orders,
		invoices:  invoices,
		catalog:   catalog,
		tx:        tx,
		gateways:  gateways,
		calc:      calc,
		verifier:  verifier,
		notifier:  notifier,
		currency:  currency,
		callback:  callback,
		logger:    logger,
	}
}

type CheckoutResult struct {
	Checkout     *domain.Checkout
	Order        *domain.Order
	Quote        pricing.Quote
	RedirectURL  string
	Instructions string
	Warnings     []pricing.Warning
}

// Checkout validates the cart against the live catalog, prices it,
// creates the checkout/order/invoice triple atomically and initiates
// payment. Client-submitted prices are never trusted; every unit price
// is re-read from the catalog here.
func (s *CheckoutService) Checkout(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error) {
	method, err := domain.ParsePaymentMethod(cmd.PaymentMethod)
	if err != nil {
		return nil, application.NewValidationError("unknown payment method", err)
	}
	if len(cmd.Items) == 0 {
		return nil, application.NewValidationError("checkout requires at least one item", nil)
	}
	if cmd.ShippingAddress.Zone == "" {
		return nil, application.NewValidationError("shipping address requires a delivery zone", nil)
	}

	priceLines := make([]pricing.Line, 0, len(cmd.Items))
	checkoutLines := make([]domain.CheckoutLine, 0, len(cmd.Items))
	orderItems := make([]domain.OrderItem, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		if item.Quantity <= 0 {
			return nil, application.NewValidationError("item quantity must be positive", nil)
		}
		product, err := s.catalog.FindProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, postgres.ErrProductNotFound) {
				return nil, application.NewValidationError("item is unavailable", domain.NewItemUnavailableError(item.ProductID))
			}
			return nil, application.NewInternalError(err)
		}
		if !product.Active {
			return nil, application.NewValidationError("item is unavailable", domain.NewItemUnavailableError(item.ProductID))
		}

		priceLines = append(priceLines, pricing.Line{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			WeightKg:  product.WeightKg,
		})
		checkoutLines = append(checkoutLines, domain.CheckoutLine{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
		orderItems = append(orderItems, domain.OrderItem{
			ProductID: product.ID,
			Title:     product.Title,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			LineTotal: product.Price * int64(item.Quantity),
		})
	}

	var coupon *domain.Coupon
	var couponID *string
	var warnings []pricing.Warning
	if cmd.CouponCode != "" {
		coupon, err = s.catalog.FindCouponByCode(ctx, cmd.CouponCode)
		if err != nil {
			if !errors.Is(err, postgres.ErrCouponNotFound) {
				return nil, application.NewInternalError(err)
			}
			warnings = append(warnings, pricing.Warning{
				Code:    pricing.WarnCouponUnusable,
				Message: "coupon " + cmd.CouponCode + " does not exist",
			})
			coupon = nil
		} else {
			couponID = &coupon.ID
		}
	}

	quote, priceWarnings, err := s.calc.Calculate(priceLines, coupon, cmd.ShippingAddress.Zone)
	if err != nil {
		return nil, application.NewValidationError("cart could not be priced", err)
	}
	warnings = append(warnings, priceWarnings...)

	checkout, err := domain.NewCheckout(uuid.New().String(), cmd.OwnerID, checkoutLines, couponID)
	if err != nil {
		return nil, application.NewValidationError("invalid checkout", err)
	}

	order, err := domain.NewOrder(
		uuid.New().String(), cmd.OwnerID, orderItems,
		quote.Subtotal, quote.Tax, quote.DeliveryFee, quote.Discount, quote.Total,
		quote.TotalWeight, method,
	)
	if err != nil {
		return nil, application.NewValidationError("invalid order", err)
	}
	order.ShippingAddress = cmd.ShippingAddress
	order.BillingAddress = cmd.BillingAddress
	if order.BillingAddress.IsZero() {
		order.BillingAddress = cmd.ShippingAddress
	}
	checkout.AttachOrder(order.ID)

	invoice, err := domain.NewInvoice(uuid.New().String(), order.ID, quote.Total)
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	gw, err := s.gateways.Get(method)
	if err != nil {
		return nil, application.NewGatewayUnavailableError(err)
	}

	if err := s.createAtomically(ctx, checkout, order, invoice); err != nil {
		return nil, application.NewInternalError(err)
	}

	result := &CheckoutResult{
		Checkout: checkout,
		Order:    order,
		Quote:    quote,
		Warnings: warnings,
	}

	initRes, err := gw.Initiate(ctx, gateway.InitiateRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		OwnerID:       cmd.OwnerID,
		Amount:        order.Total,
		Currency:      s.currency,
		CustomerEmail: cmd.CustomerEmail,
		CallbackURL:   s.callback,
	})
	if err != nil {
		// The triple stays PENDING. The handoff can be re-run through
		// RetryInitiation and the sweeper ignores orders that never got
		// a reference, so nothing is lost by not settling here.
		s.logger.Warn("payment initiation failed",
			"checkout_id", checkout.ID,
			"order_number", order.OrderNumber,
			"method", string(method),
			"error", err,
		)
		return nil, mapGatewayError(err)
	}

	if err := s.attachReference(ctx, checkout.ID, order.ID, initRes.Reference); err != nil {
		return nil, application.NewInternalError(err)
	}
	checkout.Status = domain.CheckoutProcessing
	order.PaymentReference = initRes.Reference
	result.RedirectURL = initRes.RedirectURL
	result.Instructions = initRes.Instructions

	s.logger.Info("checkout initiated",
		"checkout_id", checkout.ID,
		"order_number", order.OrderNumber,
		"method", string(method),
		"reference", initRes.Reference,
		"total", order.Total,
	)
	s.publish(ctx, notify.Event{
		Type:        notify.EventCheckoutCreated,
		OwnerID:     cmd.OwnerID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Reference:   initRes.Reference,
		Amount:      order.Total,
		Currency:    s.currency,
		OccurredAt:  time.Now(),
	})

	// Wallet debits settle synchronously; there is no webhook to wait
	// for, so reconcile the outcome before responding.
	if method == domain.MethodWallet && s.verifier != nil {
		if _, err := s.verifier.VerifyPayment(ctx, initRes.Reference); err != nil {
			s.logger.Warn("wallet settlement deferred to sweeper",
				"reference", initRes.Reference, "error", err)
		} else if settled, err := s.checkouts.FindByID(ctx, checkout.ID); err == nil {
			result.Checkout = settled
		}
	}

	return result, nil
}

// createAtomically inserts the triple, retrying the whole transaction
// when the generated order number collides.
func (s *CheckoutService) createAtomically(ctx context.Context, checkout *domain.Checkout, order *domain.Order, invoice *domain.Invoice) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		err = s.tx.WithTransaction(ctx, func(ctx context.Context, stores *application.Stores) error {
			if err := stores.Checkouts.Create(ctx, checkout); err != nil {
				return err
			}
			if err := stores.Orders.Create(ctx, order); err != nil {
				return err
			}
			return stores.Invoices.Create(ctx, invoice)
		})
		if err == nil {
			return nil
		}
		if !postgres.IsUniqueViolation(err) {
			return err
		}
		order.OrderNumber = domain.GenerateOrderNumber()
	}
	return err
}

// attachReference records the gateway reference and moves the checkout
// to PROCESSING in one transaction.
func (s *CheckoutService) attachReference(ctx context.Context, checkoutID, orderID, reference string) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context, stores *application.Stores) error {
		order, err := stores.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		order.PaymentReference = reference
		if err := stores.Orders.Update(ctx, order); err != nil {
			return err
		}

		checkout, err := stores.Checkouts.FindByIDForUpdate(ctx, checkoutID)
		if err != nil {
			return err
		}
		// Wallet settlement may already have completed the checkout
		// between initiation and this write.
		if checkout.IsTerminal() {
			return nil
		}
		if err := checkout.StartProcessing(); err != nil {
			return err
		}
		return stores.Checkouts.Update(ctx, checkout)
	})
}

// GetCheckout returns the checkout if the caller owns it.
func (s *CheckoutService) GetCheckout(ctx context.Context, checkoutID, ownerID string) (*domain.Checkout, error) {
	checkout, err := s.checkouts.FindByID(ctx, checkoutID)
	if err != nil {
		if errors.Is(err, postgres.ErrCheckoutNotFound) {
			return nil, application.NewNotFoundError("checkout")
		}
		return nil, application.NewInternalError(err)
	}
	if checkout.OwnerID != ownerID {
		return nil, application.NewForbiddenError()
	}
	return checkout, nil
}

// Abandon terminal-states a checkout the customer walked away from.
// The order and invoice stay as they are for reconciliation history.
func (s *CheckoutService) Abandon(ctx context.Context, checkoutID, ownerID string) (*domain.Checkout, error) {
	var abandoned *domain.Checkout
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, stores *application.Stores) error {
		checkout, err := stores.Checkouts.FindByIDForUpdate(ctx, checkoutID)
		if err != nil {
			return err
		}
		if checkout.OwnerID != ownerID {
			return application.NewForbiddenError()
		}
		if err := checkout.Abandon(time.Now()); err != nil {
			return application.NewStateConflictError(err)
		}
		if err := stores.Checkouts.Update(ctx, checkout); err != nil {
			return err
		}
		abandoned = checkout
		return nil
	})
	if err != nil {
		if errors.Is(err, postgres.ErrCheckoutNotFound) {
			return nil, application.NewNotFoundError("checkout")
		}
		if _, ok := application.IsServiceError(err); ok {
			return nil, err
		}
		return nil, application.NewInternalError(err)
	}
	return abandoned, nil
}

// RetryInitiation re-runs payment initiation for a checkout whose
// first handoff failed or was never completed. A fresh reference is
// issued; the old one can no longer settle anything.
func (s *CheckoutService) RetryInitiation(ctx context.Context, checkoutID, ownerID string) (*CheckoutResult, error) {
	checkout, err := s.GetCheckout(ctx, checkoutID, ownerID)
	if err != nil {
		return nil, err
	}
	if checkout.IsTerminal() {
		return nil, application.NewStateConflictError(domain.ErrInvalidTransition)
	}
	if checkout.OrderID == nil {
		return nil, application.NewStateConflictError(errors.New("checkout has no order"))
	}

	order, err := s.orders.FindByID(ctx, *checkout.OrderID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if order.HasTerminalPayment() {
		return nil, application.NewStateConflictError(errors.New("payment already settled"))
	}

	gw, err := s.gateways.Get(order.PaymentMethod)
	if err != nil {
		return nil, application.NewGatewayUnavailableError(err)
	}

	initRes, err := gw.Initiate(ctx, gateway.InitiateRequest{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OwnerID:     ownerID,
		Amount:      order.Total,
		Currency:    s.currency,
		CallbackURL: s.callback,
	})
	if err != nil {
		return nil, mapGatewayError(err)
	}

	if err := s.attachReference(ctx, checkout.ID, order.ID, initRes.Reference); err != nil {
		return nil, application.NewInternalError(err)
	}
	order.PaymentReference = initRes.Reference

	s.logger.Info("checkout initiation retried",
		"checkout_id", checkout.ID,
		"reference", initRes.Reference,
	)

	return &CheckoutResult{
		Checkout:     checkout,
		Order:        order,
		RedirectURL:  initRes.RedirectURL,
		Instructions: initRes.Instructions,
	}, nil
}

// GetOrder returns the order and its invoice if the caller owns them.
func (s *CheckoutService) GetOrder(ctx context.Context, orderID, ownerID string) (*domain.Order, *domain.Invoice, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			return nil, nil, application.NewNotFoundError("order")
		}
		return nil, nil, application.NewInternalError(err)
	}
	if order.OwnerID != ownerID {
		return nil, nil, application.NewForbiddenError()
	}

	invoice, err := s.invoices.FindByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, postgres.ErrInvoiceNotFound) {
		return nil, nil, application.NewInternalError(err)
	}
	return order, invoice, nil
}

// ListOrders returns the owner's orders, newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Order, error) {
	orders, err := s.orders.FindByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	return orders, nil
}

func (s *CheckoutService) publish(ctx context.Context, event notify.Event) {
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "type", event.Type, "error", err)
	}
}

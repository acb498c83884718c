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
)

// ReconcileService applies verified payment outcomes to orders,
// invoices and checkouts. Webhooks, the verify endpoints, the wallet
// path, admin confirmation and the sweeper all converge on the same
// apply step, so the idempotency rules live in exactly one place.
//
// Webhook payloads are never trusted beyond the reference they carry:
// the outcome that gets applied always comes from an independent
// provider verification.
type ReconcileService struct {
	orders   application.OrderStore
	tx       application.Atomic
	gateways *gateway.Registry
	wallet   *WalletService
	notifier notify.Notifier
	currency string
	logger   *slog.Logger
}

func NewReconcileService(
	orders application.OrderStore,
	tx application.Atomic,
	gateways *gateway.Registry,
	wallet *WalletService,
	notifier notify.Notifier,
	currency string,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		orders:   orders,
		tx:       tx,
		gateways: gateways,
		wallet:   wallet,
		notifier: notifier,
		currency: currency,
		logger:   logger,
	}
}

type VerificationResult struct {
	Reference   string
	Outcome     gateway.Outcome
	OrderID     string
	OrderNumber string

	// Applied reports whether this call changed state. False means the
	// outcome was already settled or still pending.
	Applied   bool
	AuditFlag bool
}

// ProcessWebhook runs the full reconciliation pipeline for an inbound
// provider event. The signature gate runs before the body is parsed;
// everything after resolution is driven by an independent Verify, never
// by the payload's claimed status.
func (s *ReconcileService) ProcessWebhook(ctx context.Context, provider string, rawBody []byte, signature string) error {
	gw, err := s.gateways.ForWebhook(provider)
	if err != nil {
		return application.NewNotFoundError("provider")
	}

	if !gw.ValidateSignature(rawBody, signature) {
		s.logger.Warn("webhook signature rejected", "provider", provider)
		return application.NewSignatureInvalidError()
	}

	event, err := gw.ParseWebhook(rawBody)
	if err != nil {
		s.logger.Warn("webhook body unparseable", "provider", provider, "error", err)
		return nil
	}

	order, err := s.orders.FindByReference(ctx, event.Reference)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			return s.settleDepositWebhook(ctx, gw, event)
		}
		return application.NewInternalError(err)
	}

	if order.HasTerminalPayment() {
		s.logger.Debug("webhook for settled payment ignored", "reference", event.Reference)
		return nil
	}

	verified, err := gw.Verify(ctx, event.Reference)
	if err != nil {
		if errors.Is(err, gateway.ErrManualVerification) {
			s.logger.Warn("webhook claimed outcome for manual-only provider", "reference", event.Reference)
			return nil
		}
		// Leave the order pending; the sweeper retries verification.
		s.logger.Warn("verification unavailable, deferring",
			"reference", event.Reference, "error", err)
		return nil
	}

	if verified.Outcome != event.ClaimedOutcome {
		s.logger.Warn("webhook outcome contradicts verification",
			"reference", event.Reference,
			"claimed", string(event.ClaimedOutcome),
			"verified", string(verified.Outcome),
		)
	}

	result, err := s.apply(ctx, order.ID, verified, order.PaymentMethod)
	if err != nil {
		return application.NewInternalError(err)
	}
	s.notifyOutcome(ctx, order, result)
	return nil
}

// settleDepositWebhook handles webhook references that resolve to a
// wallet deposit instead of an order.
func (s *ReconcileService) settleDepositWebhook(ctx context.Context, gw gateway.PaymentGateway, event *gateway.WebhookEvent) error {
	if _, err := s.wallet.FindTransaction(ctx, event.Reference); err != nil {
		s.logger.Info("webhook reference matches nothing", "reference", event.Reference)
		return nil
	}

	verified, err := gw.Verify(ctx, event.Reference)
	if err != nil {
		s.logger.Warn("deposit verification unavailable, deferring",
			"reference", event.Reference, "error", err)
		return nil
	}
	return s.wallet.SettleDeposit(ctx, event.Reference, verified.ProviderTransactionID, verified.Outcome)
}

// VerifyOwnedPayment is VerifyPayment with an ownership gate for the
// customer-facing verify endpoint.
func (s *ReconcileService) VerifyOwnedPayment(ctx context.Context, ownerID, reference string) (*VerificationResult, error) {
	order, err := s.orders.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			return nil, application.NewNotFoundError("payment reference")
		}
		return nil, application.NewInternalError(err)
	}
	if order.OwnerID != ownerID {
		return nil, application.NewForbiddenError()
	}
	return s.VerifyPayment(ctx, reference)
}

// VerifyPayment verifies a reference with its provider and applies the
// outcome. Safe to call any number of times.
func (s *ReconcileService) VerifyPayment(ctx context.Context, reference string) (*VerificationResult, error) {
	order, err := s.orders.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			return nil, application.NewNotFoundError("payment reference")
		}
		return nil, application.NewInternalError(err)
	}

	if order.HasTerminalPayment() {
		return &VerificationResult{
			Reference:   reference,
			Outcome:     settledOutcome(order),
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Applied:     false,
		}, nil
	}

	gw, err := s.gateways.Get(order.PaymentMethod)
	if err != nil {
		return nil, application.NewGatewayUnavailableError(err)
	}

	verified, err := gw.Verify(ctx, reference)
	if err != nil {
		if errors.Is(err, gateway.ErrManualVerification) {
			return &VerificationResult{
				Reference:   reference,
				Outcome:     gateway.OutcomePending,
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
			}, nil
		}
		return nil, mapGatewayError(err)
	}

	result, err := s.apply(ctx, order.ID, verified, order.PaymentMethod)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	s.notifyOutcome(ctx, order, result)
	return result, nil
}

// VerifyDeposit verifies a wallet top-up reference and settles the
// credit if the card payment went through.
func (s *ReconcileService) VerifyDeposit(ctx context.Context, ownerID, reference string) (*VerificationResult, error) {
	walletTx, err := s.wallet.FindOwnedTransaction(ctx, ownerID, reference)
	if err != nil {
		return nil, err
	}

	if walletTx.Status != domain.WalletTxPending {
		outcome := gateway.OutcomeFailed
		if walletTx.Status == domain.WalletTxSuccess {
			outcome = gateway.OutcomeSuccess
		}
		return &VerificationResult{Reference: reference, Outcome: outcome, Applied: false}, nil
	}

	gw, err := s.gateways.Get(domain.MethodCard)
	if err != nil {
		return nil, application.NewGatewayUnavailableError(err)
	}
	verified, err := gw.Verify(ctx, reference)
	if err != nil {
		return nil, mapGatewayError(err)
	}

	if err := s.wallet.SettleDeposit(ctx, reference, verified.ProviderTransactionID, verified.Outcome); err != nil {
		return nil, application.NewInternalError(err)
	}
	return &VerificationResult{
		Reference: reference,
		Outcome:   verified.Outcome,
		Applied:   verified.Outcome != gateway.OutcomePending,
	}, nil
}

// ConfirmManualPayment settles a bank transfer order on an operator's
// say-so. This is the only settlement path for transfers; customers
// cannot trigger it.
func (s *ReconcileService) ConfirmManualPayment(ctx context.Context, cmd ConfirmTransferCommand) (*VerificationResult, error) {
	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		if errors.Is(err, postgres.ErrOrderNotFound) {
			return nil, application.NewNotFoundError("order")
		}
		return nil, application.NewInternalError(err)
	}
	if order.PaymentMethod != domain.MethodBankTransfer {
		return nil, application.NewStateConflictError(errors.New("order is not a bank transfer"))
	}

	verified := &gateway.VerifyResult{
		Outcome:               gateway.OutcomeSuccess,
		Reference:             order.PaymentReference,
		ProviderTransactionID: cmd.TransactionID,
		AmountPaid:            cmd.AmountPaid,
	}

	result, err := s.apply(ctx, order.ID, verified, order.PaymentMethod)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	s.notifyOutcome(ctx, order, result)

	s.logger.Info("bank transfer confirmed",
		"order_number", order.OrderNumber,
		"transaction_id", cmd.TransactionID,
		"applied", result.Applied,
	)
	return result, nil
}

// ReconcileStale verifies orders whose webhooks never arrived. Returns
// how many outcomes were applied.
func (s *ReconcileService) ReconcileStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	orders, err := s.orders.FindStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	var applied int
	for _, order := range orders {
		if order.PaymentReference == "" {
			continue
		}
		result, err := s.VerifyPayment(ctx, order.PaymentReference)
		if err != nil {
			s.logger.Warn("stale order verification failed",
				"order_number", order.OrderNumber, "error", err)
			continue
		}
		if result.Applied {
			applied++
		}
	}
	return applied, nil
}

// apply is the single writer of payment outcomes. It locks the order,
// short-circuits on terminal state, and commits the order, invoice,
// settlement row and checkout together. A PENDING outcome never
// overwrites anything.
func (s *ReconcileService) apply(ctx context.Context, orderID string, verified *gateway.VerifyResult, provider domain.PaymentMethod) (*VerificationResult, error) {
	result := &VerificationResult{
		Reference: verified.Reference,
		Outcome:   verified.Outcome,
		OrderID:   orderID,
		AuditFlag: verified.AuditFlag,
	}

	if verified.Outcome == gateway.OutcomePending {
		return result, nil
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, stores *application.Stores) error {
		order, err := stores.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		result.OrderNumber = order.OrderNumber

		if order.HasTerminalPayment() {
			return nil
		}

		now := time.Now()
		if verified.Outcome == gateway.OutcomeSuccess {
			if verified.AmountPaid != 0 && verified.AmountPaid != order.Total {
				s.logger.Warn("settled amount differs from order total",
					"order_number", order.OrderNumber,
					"expected", order.Total,
					"paid", verified.AmountPaid,
				)
				result.AuditFlag = true
			}

			if err := order.MarkPaid(verified.ProviderTransactionID, now); err != nil {
				return err
			}
			if err := stores.Orders.Update(ctx, order); err != nil {
				return err
			}

			invoice, err := stores.Invoices.FindByOrderIDForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			if err := invoice.Settle(now); err != nil {
				return err
			}
			if err := stores.Invoices.Update(ctx, invoice); err != nil {
				return err
			}

			amount := verified.AmountPaid
			if amount == 0 {
				amount = order.Total
			}
			payment := &domain.InvoicePayment{
				ID:            uuid.New().String(),
				InvoiceID:     invoice.ID,
				Amount:        amount,
				Gateway:       string(provider),
				Reference:     verified.Reference,
				TransactionID: verified.ProviderTransactionID,
				VerifiedAt:    now,
			}
			if err := stores.Invoices.CreatePayment(ctx, payment); err != nil {
				return err
			}

			if err := s.completeCheckout(ctx, stores, orderID, now); err != nil {
				return err
			}
		} else {
			if err := order.MarkFailed(); err != nil {
				return err
			}
			if err := stores.Orders.Update(ctx, order); err != nil {
				return err
			}

			invoice, err := stores.Invoices.FindByOrderIDForUpdate(ctx, orderID)
			if err == nil {
				if err := invoice.VoidOut(); err != nil {
					return err
				}
				if err := stores.Invoices.Update(ctx, invoice); err != nil {
					return err
				}
			} else if !errors.Is(err, postgres.ErrInvoiceNotFound) {
				return err
			}

			if err := s.failCheckout(ctx, stores, orderID); err != nil {
				return err
			}
		}

		result.Applied = true
		return nil
	})
	if err != nil {
		// A concurrent settlement got there first; the unique reference
		// constraint proves the outcome is already recorded.
		if domain.IsErrorCode(err, domain.ErrCodeDuplicateReference) {
			s.logger.Debug("settlement already recorded", "reference", verified.Reference)
			result.Applied = false
			return result, nil
		}
		return nil, err
	}

	if result.Applied && result.AuditFlag {
		s.logger.Warn("outcome applied with audit flag",
			"reference", verified.Reference,
			"order_id", orderID,
		)
	}
	return result, nil
}

func (s *ReconcileService) completeCheckout(ctx context.Context, stores *application.Stores, orderID string, at time.Time) error {
	checkout, err := stores.Checkouts.FindByOrderIDForUpdate(ctx, orderID)
	if err != nil {
		// Deposits and admin-seeded orders have no checkout.
		if errors.Is(err, postgres.ErrCheckoutNotFound) {
			return nil
		}
		return err
	}
	if checkout.IsTerminal() {
		return nil
	}
	if err := checkout.Complete(at); err != nil {
		return err
	}
	return stores.Checkouts.Update(ctx, checkout)
}

func (s *ReconcileService) failCheckout(ctx context.Context, stores *application.Stores, orderID string) error {
	checkout, err := stores.Checkouts.FindByOrderIDForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, postgres.ErrCheckoutNotFound) {
			return nil
		}
		return err
	}
	if checkout.IsTerminal() {
		return nil
	}
	if err := checkout.Fail(); err != nil {
		return err
	}
	return stores.Checkouts.Update(ctx, checkout)
}

func (s *ReconcileService) notifyOutcome(ctx context.Context, order *domain.Order, result *VerificationResult) {
	if !result.Applied {
		return
	}

	eventType := notify.EventPaymentFailed
	if result.Outcome == gateway.OutcomeSuccess {
		eventType = notify.EventPaymentSucceeded
	}
	event := notify.Event{
		Type:        eventType,
		OwnerID:     order.OwnerID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Reference:   result.Reference,
		Amount:      order.Total,
		Currency:    s.currency,
		OccurredAt:  time.Now(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}

func settledOutcome(order *domain.Order) gateway.Outcome {
	if order.PaymentStatus == domain.PaymentPaid {
		return gateway.OutcomeSuccess
	}
	return gateway.OutcomeFailed
}

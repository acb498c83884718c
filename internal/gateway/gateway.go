// Package gateway wraps the external payment providers behind one
// initiate/verify contract. Each adapter owns its provider's API shape
// and signing scheme; nothing provider-specific leaks past this package.
package gateway

import (
	"context"
	"fmt"

	"github.com/kudimart/checkout-engine/internal/domain"
)

// Outcome is the internal payment outcome vocabulary every provider
// status maps into.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
	OutcomePending Outcome = "PENDING"
)

type InitiateRequest struct {
	OrderID       string
	OrderNumber   string
	OwnerID       string
	Amount        int64
	Currency      string
	CustomerEmail string
	CallbackURL   string
}

// InitiateResult carries what the caller needs to send the customer to
// the provider. Reference is the sole correlation key for later
// reconciliation.
type InitiateResult struct {
	Reference       string
	RedirectURL     string
	ProviderOrderID string
	Instructions    string
}

type VerifyResult struct {
	Outcome               Outcome
	Reference             string
	ProviderTransactionID string
	AmountPaid            int64

	// AuditFlag marks an outcome settled from an ambiguous provider
	// status; reconciliation applies it but logs it for manual review.
	AuditFlag bool
}

// WebhookEvent is the untrusted view of an inbound webhook body.
// Only Reference may be used to resolve local state. ClaimedOutcome is
// compared against an independent Verify and is never applied directly.
type WebhookEvent struct {
	Reference      string
	ClaimedOutcome Outcome
	EventType      string
}

// PaymentGateway is the contract every provider adapter implements.
//
// Initiate must be called at most once per order. Verify is idempotent
// and must never be assumed to have provider-side effects; a timed-out
// Verify mutates nothing and the caller retries.
type PaymentGateway interface {
	Name() domain.PaymentMethod
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)

	// ValidateSignature authenticates an inbound webhook over the exact
	// raw body, using the provider's webhook secret. It must run before
	// any parsing of the payload.
	ValidateSignature(rawBody []byte, signatureHeader string) bool

	// SignatureHeader names the HTTP header the provider delivers its
	// webhook signature in. Empty means the provider sends no webhooks.
	SignatureHeader() string

	// ParseWebhook extracts the untrusted event from a raw webhook body
	// that has already passed signature validation.
	ParseWebhook(rawBody []byte) (*WebhookEvent, error)
}

// Registry resolves a gateway by payment-method key once at
// orchestration time, keeping provider branches out of the
// reconciliation core.
type Registry struct {
	gateways map[domain.PaymentMethod]PaymentGateway
}

func NewRegistry(gateways ...PaymentGateway) *Registry {
	m := make(map[domain.PaymentMethod]PaymentGateway, len(gateways))
	for _, g := range gateways {
		m[g.Name()] = g
	}
	return &Registry{gateways: m}
}

// Register adds a gateway after construction. The wallet gateway is
// wired this way: it needs the wallet service, which itself initiates
// card deposits through this registry.
func (r *Registry) Register(g PaymentGateway) {
	r.gateways[g.Name()] = g
}

func (r *Registry) Get(method domain.PaymentMethod) (PaymentGateway, error) {
	g, ok := r.gateways[method]
	if !ok {
		return nil, fmt.Errorf("no gateway registered for method %q", method)
	}
	return g, nil
}

// ForWebhook resolves by the provider path segment of a webhook URL.
func (r *Registry) ForWebhook(provider string) (PaymentGateway, error) {
	return r.Get(domain.PaymentMethod(provider))
}

package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/kudimart/checkout-engine/internal/domain"
)

// WalletFunds is the slice of the wallet ledger this gateway needs.
// Implemented by the wallet service; the gateway never touches the
// store directly.
type WalletFunds interface {
	DebitForOrder(ctx context.Context, ownerID string, amount int64, reference string) error
	DebitStatus(ctx context.Context, reference string) (domain.WalletTransactionStatus, error)
}

// WalletGateway settles orders from the customer's internal wallet.
// The debit is synchronous: Initiate either moves the funds or fails,
// there is no redirect and no webhook.
type WalletGateway struct {
	funds WalletFunds
}

func NewWalletGateway(funds WalletFunds) *WalletGateway {
	return &WalletGateway{funds: funds}
}

func (g *WalletGateway) Name() domain.PaymentMethod {
	return domain.MethodWallet
}

func (g *WalletGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	reference := "WAL-" + uuid.New().String()

	if err := g.funds.DebitForOrder(ctx, req.OwnerID, req.Amount, reference); err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return nil, &GatewayError{
				Provider:   "wallet",
				Code:       domain.ErrCodeInsufficientFunds,
				Message:    "wallet balance is insufficient",
				StatusCode: http.StatusPaymentRequired,
			}
		}
		return nil, err
	}

	return &InitiateResult{Reference: reference}, nil
}

func (g *WalletGateway) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	status, err := g.funds.DebitStatus(ctx, reference)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Reference: reference}
	switch status {
	case domain.WalletTxSuccess:
		result.Outcome = OutcomeSuccess
	case domain.WalletTxFailed:
		result.Outcome = OutcomeFailed
	default:
		result.Outcome = OutcomePending
	}
	return result, nil
}

// ValidateSignature always fails: the wallet is internal and sends no
// webhooks.
func (g *WalletGateway) ValidateSignature(rawBody []byte, signatureHeader string) bool {
	return false
}

func (g *WalletGateway) SignatureHeader() string {
	return ""
}

func (g *WalletGateway) ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	return nil, errors.New("wallet gateway sends no webhooks")
}

var _ PaymentGateway = (*WalletGateway)(nil)

package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kudimart/checkout-engine/internal/config"
	"github.com/kudimart/checkout-engine/internal/domain"
)

// BankTransferGateway has no live provider behind it. Initiate hands
// back static account details and a reference; settlement happens only
// through an explicit admin confirmation, never a webhook.
type BankTransferGateway struct {
	bankName      string
	accountName   string
	accountNumber string
}

func NewBankTransferGateway(cfg config.BankTransferConfig) *BankTransferGateway {
	return &BankTransferGateway{
		bankName:      cfg.BankName,
		accountName:   cfg.AccountName,
		accountNumber: cfg.AccountNumber,
	}
}

func (g *BankTransferGateway) Name() domain.PaymentMethod {
	return domain.MethodBankTransfer
}

func (g *BankTransferGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	reference := "BT-" + uuid.New().String()
	return &InitiateResult{
		Reference: reference,
		Instructions: fmt.Sprintf(
			"Transfer %d %s to %s, account %s (%s). Quote reference %s in the transfer narration.",
			req.Amount, req.Currency, g.bankName, g.accountNumber, g.accountName, reference,
		),
	}, nil
}

func (g *BankTransferGateway) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	return nil, ErrManualVerification
}

// ValidateSignature always fails: this gateway sends no webhooks, so
// any delivery claiming to be one is forged.
func (g *BankTransferGateway) ValidateSignature(rawBody []byte, signatureHeader string) bool {
	return false
}

func (g *BankTransferGateway) SignatureHeader() string {
	return ""
}

func (g *BankTransferGateway) ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	return nil, fmt.Errorf("bank transfer sends no webhooks")
}

var _ PaymentGateway = (*BankTransferGateway)(nil)

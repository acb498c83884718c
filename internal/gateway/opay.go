package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/kudimart/checkout-engine/internal/config"
	"github.com/kudimart/checkout-engine/internal/domain"
)

// OpayGateway is the mobile wallet gateway. Cashier creation
// authenticates with the public key; status queries and webhook bodies
// are signed with the private key. Mixing the two keys up is the
// provider's best-documented failure mode, so they are held in
// separate fields and never substituted.
type OpayGateway struct {
	baseURL    string
	merchantID string
	publicKey  string
	privateKey string
	httpClient *http.Client
}

func NewOpayGateway(cfg config.OpayConfig) *OpayGateway {
	timeout := cfg.ConnTimeout
	if timeout == 0 {
		timeout = defaultConnTimeout
	}
	return &OpayGateway{
		baseURL:    cfg.BaseURL,
		merchantID: cfg.MerchantID,
		publicKey:  cfg.PublicKey,
		privateKey: cfg.PrivateKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *OpayGateway) Name() domain.PaymentMethod {
	return domain.MethodMobileWallet
}

type opayCashierRequest struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	UserID    string `json:"userId"`
	ReturnURL string `json:"returnUrl,omitempty"`
}

type opayCashierResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		CashierURL string `json:"cashierUrl"`
		OrderNo    string `json:"orderNo"`
		Reference  string `json:"reference"`
	} `json:"data"`
}

type opayStatusRequest struct {
	Reference string `json:"reference"`
}

type opayStatusResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		OrderNo   string `json:"orderNo"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

func (g *OpayGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	reference := "OPY-" + uuid.New().String()
	url := fmt.Sprintf("%s/api/v1/international/cashier/create", g.baseURL)

	body := opayCashierRequest{
		Reference: reference,
		Amount:    req.Amount,
		Currency:  req.Currency,
		UserID:    req.OwnerID,
		ReturnURL: req.CallbackURL,
	}

	headers := map[string]string{
		"Authorization": "Bearer " + g.publicKey,
		"MerchantId":    g.merchantID,
	}

	resp, err := sendRequest[opayCashierRequest, opayCashierResponse](
		ctx, g.httpClient, "opay", http.MethodPost, url, headers, &body,
	)
	if err != nil {
		return nil, err
	}
	if resp.Code != "00000" {
		return nil, &GatewayError{
			Provider:   "opay",
			Code:       resp.Code,
			Message:    resp.Message,
			StatusCode: http.StatusBadRequest,
		}
	}

	return &InitiateResult{
		Reference:       resp.Data.Reference,
		RedirectURL:     resp.Data.CashierURL,
		ProviderOrderID: resp.Data.OrderNo,
	}, nil
}

func (g *OpayGateway) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	url := fmt.Sprintf("%s/api/v1/international/cashier/status", g.baseURL)

	body := opayStatusRequest{Reference: reference}

	// Status queries are signed with the private key over the request
	// payload, unlike cashier creation which carries the public key.
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshalling status request: %w", err)
	}
	headers := map[string]string{
		"Authorization": "Bearer " + signHMAC(g.privateKey, payload),
		"MerchantId":    g.merchantID,
	}

	resp, err := sendRequest[opayStatusRequest, opayStatusResponse](
		ctx, g.httpClient, "opay", http.MethodPost, url, headers, &body,
	)
	if err != nil {
		return nil, err
	}
	if resp.Code != "00000" {
		return nil, &GatewayError{
			Provider:   "opay",
			Code:       resp.Code,
			Message:    resp.Message,
			StatusCode: http.StatusBadRequest,
		}
	}

	outcome, audit := mapOpayStatus(resp.Data.Status)
	return &VerifyResult{
		Outcome:               outcome,
		Reference:             resp.Data.Reference,
		ProviderTransactionID: resp.Data.OrderNo,
		AmountPaid:            resp.Data.Amount,
		AuditFlag:             audit,
	}, nil
}

// mapOpayStatus folds the provider vocabulary into ours. The provider
// reports both SUCCESS and CLOSE for settled payments without a
// documented distinction; CLOSE settles the payment but is flagged for
// manual audit until the provider confirms the semantics.
func mapOpayStatus(status string) (Outcome, bool) {
	switch status {
	case "SUCCESS":
		return OutcomeSuccess, false
	case "CLOSE":
		return OutcomeSuccess, true
	case "FAIL":
		return OutcomeFailed, false
	default: // INITIAL, PENDING
		return OutcomePending, false
	}
}

// ValidateSignature authenticates webhook deliveries with the private
// (signing) key.
func (g *OpayGateway) ValidateSignature(rawBody []byte, signatureHeader string) bool {
	return checkHMAC(g.privateKey, rawBody, signatureHeader)
}

func (g *OpayGateway) SignatureHeader() string {
	return "X-Opay-Signature"
}

type opayWebhookPayload struct {
	Type    string `json:"type"`
	Payload struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"payload"`
}

func (g *OpayGateway) ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	var payload opayWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("error parsing opay webhook: %w", err)
	}
	if payload.Payload.Reference == "" {
		return nil, fmt.Errorf("opay webhook missing reference")
	}
	outcome, _ := mapOpayStatus(payload.Payload.Status)
	return &WebhookEvent{
		Reference:      payload.Payload.Reference,
		ClaimedOutcome: outcome,
		EventType:      payload.Type,
	}, nil
}

var _ PaymentGateway = (*OpayGateway)(nil)

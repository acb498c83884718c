package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kudimart/checkout-engine/internal/config"
	"github.com/kudimart/checkout-engine/internal/domain"
)

// PaystackGateway is the card gateway. API calls authenticate with the
// secret (request) key; webhook bodies are authenticated with the
// separate webhook secret. The two keys are never interchangeable.
type PaystackGateway struct {
	baseURL       string
	requestKey    string
	webhookSecret string
	httpClient    *http.Client
}

func NewPaystackGateway(cfg config.PaystackConfig) *PaystackGateway {
	timeout := cfg.ConnTimeout
	if timeout == 0 {
		timeout = defaultConnTimeout
	}
	return &PaystackGateway{
		baseURL:       cfg.BaseURL,
		requestKey:    cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *PaystackGateway) Name() domain.PaymentMethod {
	return domain.MethodCard
}

type paystackInitializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	Reference   string `json:"reference"`
	Currency    string `json:"currency"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type paystackInitializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

func (g *PaystackGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	reference := "PSK-" + uuid.New().String()
	url := fmt.Sprintf("%s/transaction/initialize", g.baseURL)

	body := paystackInitializeRequest{
		Email:       req.CustomerEmail,
		Amount:      req.Amount,
		Reference:   reference,
		Currency:    req.Currency,
		CallbackURL: req.CallbackURL,
	}

	resp, err := sendRequest[paystackInitializeRequest, paystackInitializeResponse](
		ctx, g.httpClient, "paystack", http.MethodPost, url, g.authHeaders(), &body,
	)
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, &GatewayError{
			Provider:   "paystack",
			Code:       "initialize_rejected",
			Message:    resp.Message,
			StatusCode: http.StatusBadRequest,
		}
	}

	return &InitiateResult{
		Reference:       resp.Data.Reference,
		RedirectURL:     resp.Data.AuthorizationURL,
		ProviderOrderID: resp.Data.AccessCode,
	}, nil
}

func (g *PaystackGateway) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	url := fmt.Sprintf("%s/transaction/verify/%s", g.baseURL, reference)

	resp, err := sendRequest[struct{}, paystackVerifyResponse](
		ctx, g.httpClient, "paystack", http.MethodGet, url, g.authHeaders(), nil,
	)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Outcome:               mapPaystackStatus(resp.Data.Status),
		Reference:             resp.Data.Reference,
		ProviderTransactionID: fmt.Sprintf("%d", resp.Data.ID),
		AmountPaid:            resp.Data.Amount,
	}, nil
}

func mapPaystackStatus(status string) Outcome {
	switch strings.ToLower(status) {
	case "success":
		return OutcomeSuccess
	case "failed", "abandoned", "reversed":
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

// ValidateSignature checks the x-paystack-signature header: HMAC-SHA512
// of the raw body keyed by the webhook secret, not the request key.
func (g *PaystackGateway) ValidateSignature(rawBody []byte, signatureHeader string) bool {
	return checkHMAC(g.webhookSecret, rawBody, signatureHeader)
}

func (g *PaystackGateway) SignatureHeader() string {
	return "X-Paystack-Signature"
}

type paystackWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

func (g *PaystackGateway) ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	var payload paystackWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("error parsing paystack webhook: %w", err)
	}
	if payload.Data.Reference == "" {
		return nil, fmt.Errorf("paystack webhook missing reference")
	}
	return &WebhookEvent{
		Reference:      payload.Data.Reference,
		ClaimedOutcome: mapPaystackStatus(payload.Data.Status),
		EventType:      payload.Event,
	}, nil
}

func (g *PaystackGateway) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + g.requestKey,
	}
}

// interface guard
var _ PaymentGateway = (*PaystackGateway)(nil)

// default connection timeout when config omits one
const defaultConnTimeout = 30 * time.Second

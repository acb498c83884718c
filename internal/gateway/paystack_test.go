package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kudimart/checkout-engine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaystackInitiate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_xyz", r.Header.Get("Authorization"))

		var req paystackInitializeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(6500), req.Amount)

		json.NewEncoder(w).Encode(paystackInitializeResponse{
			Status: true,
			Data: struct {
				AuthorizationURL string `json:"authorization_url"`
				AccessCode       string `json:"access_code"`
				Reference        string `json:"reference"`
			}{
				AuthorizationURL: "https://checkout.paystack.com/abc",
				AccessCode:       "ACC_1",
				Reference:        req.Reference,
			},
		})
	}))
	defer server.Close()

	g := NewPaystackGateway(config.PaystackConfig{
		BaseURL:       server.URL,
		SecretKey:     "sk_test_xyz",
		WebhookSecret: "whsec_abc",
	})

	result, err := g.Initiate(context.Background(), InitiateRequest{
		OrderID:       "order-1",
		OwnerID:       "user-1",
		Amount:        6500,
		Currency:      "NGN",
		CustomerEmail: "shopper@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", result.RedirectURL)
	assert.Contains(t, result.Reference, "PSK-")
	assert.Equal(t, "ACC_1", result.ProviderOrderID)
}

func TestPaystackVerify(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     Outcome
	}{
		{"success maps to SUCCESS", "success", OutcomeSuccess},
		{"failed maps to FAILED", "failed", OutcomeFailed},
		{"abandoned maps to FAILED", "abandoned", OutcomeFailed},
		{"ongoing maps to PENDING", "ongoing", OutcomePending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transaction/verify/PSK-ref", r.URL.Path)
				json.NewEncoder(w).Encode(paystackVerifyResponse{
					Status: true,
					Data: struct {
						ID        int64  `json:"id"`
						Status    string `json:"status"`
						Reference string `json:"reference"`
						Amount    int64  `json:"amount"`
					}{ID: 42, Status: tt.provider, Reference: "PSK-ref", Amount: 6500},
				})
			}))
			defer server.Close()

			g := NewPaystackGateway(config.PaystackConfig{
				BaseURL: server.URL, SecretKey: "sk", WebhookSecret: "wh",
			})

			result, err := g.Verify(context.Background(), "PSK-ref")

			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Outcome)
			assert.Equal(t, "42", result.ProviderTransactionID)
		})
	}
}

func TestPaystackVerifyProviderDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(providerErrorResponse{Code: "gateway_down", Message: "try later"})
	}))
	defer server.Close()

	g := NewPaystackGateway(config.PaystackConfig{BaseURL: server.URL, SecretKey: "sk", WebhookSecret: "wh"})

	_, err := g.Verify(context.Background(), "PSK-ref")

	gwErr, ok := IsGatewayError(err)
	require.True(t, ok)
	assert.True(t, gwErr.IsRetryable())
}

func TestPaystackValidateSignature(t *testing.T) {
	g := NewPaystackGateway(config.PaystackConfig{
		BaseURL: "http://localhost", SecretKey: "sk_request", WebhookSecret: "whsec_abc",
	})
	body := []byte(`{"event":"charge.success","data":{"reference":"PSK-ref"}}`)

	t.Run("accepts a signature from the webhook secret", func(t *testing.T) {
		assert.True(t, g.ValidateSignature(body, signHMAC("whsec_abc", body)))
	})

	t.Run("rejects a signature from the request key", func(t *testing.T) {
		// signing with the wrong key of the pair must never validate
		assert.False(t, g.ValidateSignature(body, signHMAC("sk_request", body)))
	})

	t.Run("rejects a missing signature", func(t *testing.T) {
		assert.False(t, g.ValidateSignature(body, ""))
	})

	t.Run("rejects a tampered body", func(t *testing.T) {
		sig := signHMAC("whsec_abc", body)
		tampered := []byte(`{"event":"charge.success","data":{"reference":"PSK-other"}}`)
		assert.False(t, g.ValidateSignature(tampered, sig))
	})
}

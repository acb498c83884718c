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

func TestMapOpayStatus(t *testing.T) {
	tests := []struct {
		provider string
		want     Outcome
		audit    bool
	}{
		{"SUCCESS", OutcomeSuccess, false},
		{"CLOSE", OutcomeSuccess, true},
		{"FAIL", OutcomeFailed, false},
		{"INITIAL", OutcomePending, false},
		{"PENDING", OutcomePending, false},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			outcome, audit := mapOpayStatus(tt.provider)
			assert.Equal(t, tt.want, outcome)
			assert.Equal(t, tt.audit, audit)
		})
	}
}

func TestOpayVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/international/cashier/status", r.URL.Path)
		assert.Equal(t, "merchant-1", r.Header.Get("MerchantId"))
		// status calls carry an HMAC of the payload, not the public key
		assert.NotEqual(t, "Bearer pk_live", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(opayStatusResponse{
			Code: "00000",
			Data: struct {
				Status    string `json:"status"`
				OrderNo   string `json:"orderNo"`
				Reference string `json:"reference"`
				Amount    int64  `json:"amount"`
			}{Status: "CLOSE", OrderNo: "ON-9", Reference: "OPY-ref", Amount: 6500},
		})
	}))
	defer server.Close()

	g := NewOpayGateway(config.OpayConfig{
		BaseURL: server.URL, MerchantID: "merchant-1",
		PublicKey: "pk_live", PrivateKey: "sk_live",
	})

	result, err := g.Verify(context.Background(), "OPY-ref")

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.True(t, result.AuditFlag)
	assert.Equal(t, "ON-9", result.ProviderTransactionID)
}

func TestOpayInitiateRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pk_live", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(opayCashierResponse{Code: "02004", Message: "merchant not available"})
	}))
	defer server.Close()

	g := NewOpayGateway(config.OpayConfig{
		BaseURL: server.URL, MerchantID: "merchant-1",
		PublicKey: "pk_live", PrivateKey: "sk_live",
	})

	_, err := g.Initiate(context.Background(), InitiateRequest{OwnerID: "user-1", Amount: 100, Currency: "NGN"})

	gwErr, ok := IsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, "02004", gwErr.Code)
	assert.False(t, gwErr.IsRetryable())
}

func TestOpayValidateSignature(t *testing.T) {
	g := NewOpayGateway(config.OpayConfig{
		BaseURL: "http://localhost", MerchantID: "m",
		PublicKey: "pk_live", PrivateKey: "sk_live",
	})
	body := []byte(`{"payload":{"reference":"OPY-ref","status":"SUCCESS"}}`)

	assert.True(t, g.ValidateSignature(body, signHMAC("sk_live", body)))
	assert.False(t, g.ValidateSignature(body, signHMAC("pk_live", body)))
	assert.False(t, g.ValidateSignature(body, ""))
}

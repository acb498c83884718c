package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kudimart/checkout-engine/internal/application/services"
	"github.com/kudimart/checkout-engine/internal/domain"
	"github.com/kudimart/checkout-engine/internal/gateway"
	"github.com/kudimart/checkout-engine/internal/interfaces/rest/middleware"
	"github.com/kudimart/checkout-engine/internal/pricing"
)

const testAdminToken = "test-admin-token"

type testServer struct {
	handler http.Handler
	cardGW  *services.MockGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	checkouts := services.NewMockCheckoutStore()
	orders := services.NewMockOrderStore()
	invoices := services.NewMockInvoiceStore()
	wallets := services.NewMockWalletStore()
	catalog := services.NewMockCatalogStore()
	atomic := services.NewMockAtomic(checkouts, orders, invoices, wallets)
	notifier := &services.MockNotifier{}

	catalog.AddProduct(&domain.Product{
		ID:       "prod-1",
		Title:    "USB-C Cable",
		Price:    500_000,
		WeightKg: decimal.NewFromFloat(0.5),
		Active:   true,
	})

	cardGW := services.NewMockGateway(domain.MethodCard)
	registry := gateway.NewRegistry(cardGW)
	walletService := services.NewWalletService(wallets, atomic, registry, notifier, "NGN", "https://shop.example/cb", logger)
	registry.Register(gateway.NewWalletGateway(walletService))

	reconcileService := services.NewReconcileService(orders, atomic, registry, walletService, notifier, "NGN", logger)
	calc := pricing.NewCalculator(pricing.DefaultRates(), decimal.NewFromFloat(0.075))
	checkoutService := services.NewCheckoutService(
		checkouts, orders, invoices, catalog,
		atomic, registry, calc, reconcileService, notifier,
		"NGN", "https://shop.example/cb", logger,
	)

	h := NewHandlers(checkoutService, reconcileService, walletService, registry, logger)
	mux := http.NewServeMux()
	h.Routes(mux, middleware.RequireAdmin(testAdminToken, logger))

	return &testServer{
		handler: middleware.Identity()(mux),
		cardGW:  cardGW,
	}
}

func (s *testServer) do(t *testing.T, method, path, ownerID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if ownerID != "" {
		req.Header.Set("X-User-ID", ownerID)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func checkoutBody() map[string]any {
	return map[string]any{
		"items":          []map[string]any{{"product_id": "prod-1", "quantity": 2}},
		"payment_method": "card",
		"customer_email": "buyer@example.com",
		"shipping_address": map[string]any{
			"line1": "12 Allen Avenue",
			"city":  "Ikeja",
			"state": "Lagos",
			"zone":  "lagos",
		},
	}
}

func TestCreateCheckoutEndpoint(t *testing.T) {
	t.Run("creates and returns the payment handoff", func(t *testing.T) {
		s := newTestServer(t)

		rec := s.do(t, http.MethodPost, "/checkout", "owner-1", checkoutBody())
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				Checkout struct {
					Status string `json:"status"`
				} `json:"checkout"`
				Order struct {
					OrderNumber     string `json:"order_number"`
					ShippingAddress struct {
						City string `json:"city"`
						Zone string `json:"zone"`
					} `json:"shipping_address"`
					BillingAddress struct {
						City string `json:"city"`
					} `json:"billing_address"`
				} `json:"order"`
				Quote struct {
					Total int64 `json:"total"`
				} `json:"quote"`
				RedirectURL string `json:"redirect_url"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "PROCESSING", resp.Data.Checkout.Status)
		assert.NotEmpty(t, resp.Data.RedirectURL)
		assert.Positive(t, resp.Data.Quote.Total)
		assert.Equal(t, "Ikeja", resp.Data.Order.ShippingAddress.City)
		assert.Equal(t, "lagos", resp.Data.Order.ShippingAddress.Zone)
		assert.Equal(t, "Ikeja", resp.Data.Order.BillingAddress.City)
	})

	t.Run("rejects a shipping address without a zone", func(t *testing.T) {
		s := newTestServer(t)
		body := checkoutBody()
		body["shipping_address"] = map[string]any{"line1": "12 Allen Avenue", "city": "Ikeja"}
		rec := s.do(t, http.MethodPost, "/checkout", "owner-1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, http.MethodPost, "/checkout", "", checkoutBody())
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects unknown payment methods", func(t *testing.T) {
		s := newTestServer(t)
		body := checkoutBody()
		body["payment_method"] = "cheque"
		rec := s.do(t, http.MethodPost, "/checkout", "owner-1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAbandonEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/checkout", "owner-1", checkoutBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data struct {
			Checkout struct{ ID string } `json:"checkout"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	t.Run("only ABANDONED may be requested", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/checkout/"+created.Data.Checkout.ID, "owner-1", map[string]string{"status": "COMPLETED"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("owner abandons the checkout", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/checkout/"+created.Data.Checkout.ID, "owner-1", map[string]string{"status": "ABANDONED"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other owners are forbidden", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/checkout/"+created.Data.Checkout.ID, "owner-2", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestWebhookEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/checkout", "owner-1", checkoutBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data struct {
			Order struct {
				PaymentReference string `json:"payment_reference"`
			} `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	reference := created.Data.Order.PaymentReference
	require.NotEmpty(t, reference)

	t.Run("bad signature is a 400", func(t *testing.T) {
		s.cardGW.ValidateSignatureFn = func(rawBody []byte, signatureHeader string) bool { return false }
		defer func() { s.cardGW.ValidateSignatureFn = nil }()

		req := httptest.NewRequest(http.MethodPost, "/webhooks/card", bytes.NewReader([]byte(reference)))
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown provider is a 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader([]byte(reference)))
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("valid webhook settles and returns 200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/card", bytes.NewReader([]byte(reference)))
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		verify := s.do(t, http.MethodGet, "/payments/verify/"+reference, "owner-1", nil)
		require.Equal(t, http.StatusOK, verify.Code)
		var result struct {
			Data struct {
				Outcome string `json:"outcome"`
				Applied bool   `json:"applied"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(verify.Body.Bytes(), &result))
		assert.Equal(t, "SUCCESS", result.Data.Outcome)
		assert.False(t, result.Data.Applied)
	})
}

func TestWalletEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/wallet/deposit", "owner-1", map[string]any{
		"amount":         250_000,
		"customer_email": "buyer@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var dep struct {
		Data struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dep))

	rec = s.do(t, http.MethodPost, "/wallet/verify", "owner-1", map[string]string{"reference": dep.Data.Reference})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/wallet", "owner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var wallet struct {
		Data struct {
			Balance int64 `json:"balance"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))
	assert.Equal(t, int64(250_000), wallet.Data.Balance)
}

func TestAdminEndpoint(t *testing.T) {
	s := newTestServer(t)

	t.Run("rejects a missing token", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/admin/orders/any/confirm-transfer", "owner-1", map[string]string{"transaction_id": "t-1"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts the operator token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/orders/no-such-order/confirm-transfer",
			bytes.NewReader([]byte(`{"transaction_id":"t-1"}`)))
		req.Header.Set("X-Admin-Token", testAdminToken)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		// Past the guard; the unknown order is the service's verdict.
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/kudimart/checkout-engine/internal/config"
	"github.com/kudimart/checkout-engine/internal/domain"
)

// RetryGateway retries Verify with bounded exponential backoff on
// transient provider faults. Initiate is never retried across the
// wire: the caller re-initiates per order through the orchestrator,
// which is the idempotent path.
type RetryGateway struct {
	inner      PaymentGateway
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGateway(inner PaymentGateway, cfg config.RetryConfig) *RetryGateway {
	return &RetryGateway{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Second,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetryGateway) Name() domain.PaymentMethod {
	return r.inner.Name()
}

func (r *RetryGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	return r.inner.Initiate(ctx, req)
}

func (r *RetryGateway) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := r.inner.Verify(ctx, reference)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func (r *RetryGateway) ValidateSignature(rawBody []byte, signatureHeader string) bool {
	return r.inner.ValidateSignature(rawBody, signatureHeader)
}

func (r *RetryGateway) SignatureHeader() string {
	return r.inner.SignatureHeader()
}

func (r *RetryGateway) ParseWebhook(rawBody []byte) (*WebhookEvent, error) {
	return r.inner.ParseWebhook(rawBody)
}

// Helper: to check retryable errors
func isRetryable(err error) bool {
	if errors.Is(err, ErrManualVerification) {
		return false
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.IsRetryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}

// Backoff calculation with exponential delay and jitter
func (r *RetryGateway) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond

	return base + jitter
}

var _ PaymentGateway = (*RetryGateway)(nil)

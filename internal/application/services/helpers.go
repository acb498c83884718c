package services

import (
	"errors"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/domain"
	"github.com/kudimart/checkout-engine/internal/gateway"
)

// mapGatewayError folds a provider fault into the service error
// taxonomy: transient faults are retryable 502s, provider rejections
// and insufficient funds are 402s.
func mapGatewayError(err error) error {
	if errors.Is(err, domain.ErrInsufficientFunds) {
		return application.NewInsufficientFundsError(err)
	}

	var gwErr *gateway.GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Code == domain.ErrCodeInsufficientFunds {
			return application.NewInsufficientFundsError(err)
		}
		if gwErr.IsRetryable() {
			return application.NewGatewayUnavailableError(err)
		}
		return application.NewGatewayRejectedError(err)
	}

	return application.NewInternalError(err)
}

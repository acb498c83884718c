package gateway

import (
	"errors"
	"fmt"
)

// GatewayError is a provider-reported failure. Status >= 500 (and
// network faults, which carry status 0) are retryable; 4xx rejections
// are terminal and surfaced to the user as a decline.
type GatewayError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s error [%s]: %s (status: %d)", e.Provider, e.Code, e.Message, e.StatusCode)
}

func (e *GatewayError) IsRetryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}

// IsUnavailable reports a transient provider fault the caller may retry.
func IsUnavailable(err error) bool {
	if gwErr, ok := IsGatewayError(err); ok {
		return gwErr.IsRetryable()
	}
	return false
}

// ErrManualVerification is returned by gateways with no live verify
// endpoint; reconciliation for those runs only through an explicit
// admin confirmation.
var ErrManualVerification = errors.New("gateway has no live verification")

package application

import (
	"errors"
	"fmt"
	"net/http"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation         = "VALIDATION"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeStateConflict      = "STATE_CONFLICT"
	ErrCodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	ErrCodeGatewayRejected    = "GATEWAY_REJECTED"
	ErrCodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	ErrCodeSignatureInvalid   = "SIGNATURE_INVALID"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

func NewValidationError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewUnauthorizedError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    "Authentication required",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func NewForbiddenError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeForbidden,
		Message:    "You do not have access to this resource",
		HTTPStatus: http.StatusForbidden,
	}
}

func NewNotFoundError(resource string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewStateConflictError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeStateConflict,
		Message:    "Resource is not in a state that allows this operation",
		HTTPStatus: http.StatusConflict,
		Err:        err,
	}
}

func NewGatewayUnavailableError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeGatewayUnavailable,
		Message:    "Payment provider is unavailable. Please retry shortly.",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewGatewayRejectedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeGatewayRejected,
		Message:    "Payment provider rejected the request",
		HTTPStatus: http.StatusPaymentRequired,
		Err:        err,
	}
}

func NewInsufficientFundsError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInsufficientFunds,
		Message:    "Wallet balance is insufficient",
		HTTPStatus: http.StatusPaymentRequired,
		Err:        err,
	}
}

func NewSignatureInvalidError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeSignatureInvalid,
		Message:    "Webhook signature validation failed",
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
)

// Domain validation errors
const (
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeItemUnavailable    = "ITEM_UNAVAILABLE"
	ErrCodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	ErrCodeDuplicateReference = "DUPLICATE_REFERENCE"
	ErrCodeNotOwner           = "NOT_OWNER"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeTotalMismatch      = "TOTAL_MISMATCH"
)

func NewInvalidAmountError(amount int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %d", amount),
	}
}

func NewItemUnavailableError(productID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeItemUnavailable,
		Message: fmt.Sprintf("product %s is unavailable", productID),
	}
}

func NewInsufficientFundsError(balance, requested int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInsufficientFunds,
		Message: fmt.Sprintf("insufficient funds: balance %d, requested %d", balance, requested),
		Err:     ErrInsufficientFunds,
	}
}

func NewDuplicateReferenceError(reference string) *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateReference,
		Message: fmt.Sprintf("reference %s already settled", reference),
	}
}

func NewNotOwnerError(ownerID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotOwner,
		Message: fmt.Sprintf("record is not owned by %s", ownerID),
	}
}

func NewInvalidStateError(current, expected string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf("invalid state: record is %s, expected %s", current, expected),
	}
}

func NewTotalMismatchError(expected, actual int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeTotalMismatch,
		Message: fmt.Sprintf("order total mismatch: expected %d, got %d", expected, actual),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

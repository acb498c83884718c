package domain

import (
	"errors"
)

// PaymentMethod selects the gateway an order is paid through.
type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodMobileWallet PaymentMethod = "opay"
	MethodWallet       PaymentMethod = "wallet"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case MethodCard, MethodMobileWallet, MethodWallet, MethodBankTransfer:
		return PaymentMethod(s), nil
	}
	return "", errors.New("unknown payment method: " + s)
}

// PaymentStatus is shared by Checkout, Order and Invoice.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Address is a shipping or billing destination. Zone drives the
// delivery rate table.
type Address struct {
	Line1 string
	City  string
	State string
	Zone  string
}

func (a Address) IsZero() bool {
	return a == Address{}
}

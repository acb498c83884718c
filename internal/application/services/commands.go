package services

import "github.com/kudimart/checkout-engine/internal/domain"

type CheckoutItem struct {
	ProductID string
	Quantity  int
}

type CheckoutCommand struct {
	OwnerID       string
	Items         []CheckoutItem
	CouponCode    string
	PaymentMethod string
	CustomerEmail string

	// BillingAddress falls back to the shipping address when empty.
	ShippingAddress domain.Address
	BillingAddress  domain.Address
}

type DepositCommand struct {
	OwnerID       string
	Amount        int64
	CustomerEmail string
}

type ConfirmTransferCommand struct {
	OrderID       string
	TransactionID string
	AmountPaid    int64
}

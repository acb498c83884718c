package domain

import (
	"errors"
	"fmt"
	"time"
)

// InvoiceStatus represents the billing state of an invoice
type InvoiceStatus string

const (
	InvoiceSent      InvoiceStatus = "SENT"
	InvoicePaidOut   InvoiceStatus = "PAID"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoiceVoid      InvoiceStatus = "VOID"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// Invoice is the billing record 1:1 with an Order.
// Invariant: PaidAmount + BalanceAmount == TotalAmount at all times.
type Invoice struct {
	ID            string
	OrderID       string
	InvoiceNumber string
	TotalAmount   int64
	PaidAmount    int64
	BalanceAmount int64
	Status        InvoiceStatus
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
	PaidAt        *time.Time
}

func NewInvoice(id, orderID string, totalAmount int64) (*Invoice, error) {
	if id == "" {
		return nil, errors.New("invoice ID is required")
	}
	if orderID == "" {
		return nil, errors.New("order ID is required")
	}
	if totalAmount < 0 {
		return nil, NewInvalidAmountError(totalAmount)
	}
	return &Invoice{
		ID:            id,
		OrderID:       orderID,
		InvoiceNumber: fmt.Sprintf("INV-%s", time.Now().Format("20060102-150405")),
		TotalAmount:   totalAmount,
		PaidAmount:    0,
		BalanceAmount: totalAmount,
		Status:        InvoiceSent,
		PaymentStatus: PaymentPending,
		CreatedAt:     time.Now(),
	}, nil
}

// Settle marks the invoice fully paid.
func (i *Invoice) Settle(at time.Time) error {
	if i.Status != InvoiceSent && i.Status != InvoiceOverdue {
		return NewInvalidStateError(string(i.Status), string(InvoiceSent))
	}
	i.PaidAmount = i.TotalAmount
	i.BalanceAmount = 0
	i.Status = InvoicePaidOut
	i.PaymentStatus = PaymentPaid
	i.PaidAt = &at
	return nil
}

// VoidOut voids the invoice after a failed payment.
func (i *Invoice) VoidOut() error {
	if i.Status == InvoicePaidOut {
		return NewInvalidStateError(string(i.Status), string(InvoiceSent))
	}
	i.Status = InvoiceVoid
	i.PaymentStatus = PaymentFailed
	return nil
}

// CheckConservation verifies paid + balance == total.
func (i *Invoice) CheckConservation() error {
	if i.PaidAmount+i.BalanceAmount != i.TotalAmount {
		return NewTotalMismatchError(i.TotalAmount, i.PaidAmount+i.BalanceAmount)
	}
	return nil
}

// InvoicePayment is an append-only settlement record. The unique
// constraint on Reference is the idempotency anchor: a gateway
// reference produces at most one row, no matter how many webhook
// deliveries carry it.
type InvoicePayment struct {
	ID            string
	InvoiceID     string
	Amount        int64
	Gateway       string
	Reference     string
	TransactionID string
	VerifiedAt    time.Time
}

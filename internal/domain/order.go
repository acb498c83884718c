// Package domain encodes the checkout, order, invoice and wallet
// entities and the state transitions reconciliation may apply to them.
package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the current state of an order in its lifecycle
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderFailed     OrderStatus = "FAILED"
)

// OrderItem is a priced line snapshot; unit price is copied from the
// catalog at checkout time, never from the client.
type OrderItem struct {
	ProductID string
	Title     string
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

type Order struct {
	ID          string
	OwnerID     string
	OrderNumber string
	Items       []OrderItem

	Subtotal    int64
	Tax         int64
	ShippingFee int64
	Discount    int64
	Total       int64
	Weight      decimal.Decimal

	Status        OrderStatus
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod

	ShippingAddress Address
	BillingAddress  Address

	// PaymentReference is the correlation key shared with the gateway.
	PaymentReference string
	TransactionID    *string

	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func NewOrder(
	id string,
	ownerID string,
	items []OrderItem,
	subtotal, tax, shippingFee, discount, total int64,
	weight decimal.Decimal,
	method PaymentMethod,
) (*Order, error) {
	if id == "" {
		return nil, errors.New("order ID is required")
	}
	if ownerID == "" {
		return nil, errors.New("owner ID is required")
	}
	if len(items) == 0 {
		return nil, errors.New("order requires at least one item")
	}
	if total < 0 {
		return nil, NewInvalidAmountError(total)
	}
	if diff := total - (subtotal + tax + shippingFee - discount); diff > 1 || diff < -1 {
		return nil, NewTotalMismatchError(subtotal+tax+shippingFee-discount, total)
	}

	return &Order{
		ID:            id,
		OwnerID:       ownerID,
		OrderNumber:   GenerateOrderNumber(),
		Items:         items,
		Subtotal:      subtotal,
		Tax:           tax,
		ShippingFee:   shippingFee,
		Discount:      discount,
		Total:         total,
		Weight:        weight,
		Status:        OrderPending,
		PaymentStatus: PaymentPending,
		PaymentMethod: method,
		CreatedAt:     time.Now(),
	}, nil
}

// GenerateOrderNumber builds a human-readable unique order number.
// Collisions are possible and must be retried by the caller against the
// unique constraint on order_number.
func GenerateOrderNumber() string {
	suffix := make([]byte, 3)
	rand.Read(suffix)
	return fmt.Sprintf("KM-%s-%s", time.Now().Format("20060102150405"), hex.EncodeToString(suffix))
}

// MarkPaid confirms the order after a verified SUCCESS outcome.
func (o *Order) MarkPaid(transactionID string, at time.Time) error {
	if err := o.transition(OrderConfirmed); err != nil {
		return err
	}
	o.PaymentStatus = PaymentPaid
	o.TransactionID = &transactionID
	o.ProcessedAt = &at
	return nil
}

// MarkFailed cancels the order after a verified FAILED outcome.
func (o *Order) MarkFailed() error {
	// a settled payment is never walked back by a failure signal
	if o.PaymentStatus == PaymentPaid {
		return ErrInvalidTransition
	}
	if err := o.transition(OrderCancelled); err != nil {
		return err
	}
	o.PaymentStatus = PaymentFailed
	return nil
}

func (o *Order) MarkShipped() error   { return o.transition(OrderShipped) }
func (o *Order) MarkDelivered() error { return o.transition(OrderDelivered) }

func (o *Order) transition(target OrderStatus) error {
	if err := o.canTransitionTo(target); err != nil {
		return err
	}
	o.Status = target
	return nil
}

// defines the order statuses that can be transitioned to
func (o *Order) canTransitionTo(target OrderStatus) error {
	switch o.Status {
	case OrderPending:
		return o.allow(target, OrderConfirmed, OrderCancelled, OrderFailed)
	case OrderConfirmed:
		return o.allow(target, OrderProcessing, OrderShipped, OrderCancelled)
	case OrderProcessing:
		return o.allow(target, OrderShipped, OrderCancelled)
	case OrderShipped:
		return o.allow(target, OrderDelivered)
	}
	return ErrInvalidTransition
}

// Helper to check allowed state transitions
func (o *Order) allow(target OrderStatus, allowed ...OrderStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return ErrInvalidTransition
}

// HasTerminalPayment reports whether the payment outcome is already
// settled; reconciliation must not re-apply outcomes past this point.
func (o *Order) HasTerminalPayment() bool {
	return o.PaymentStatus == PaymentPaid || o.PaymentStatus == PaymentFailed
}

// Immutable reports whether the order may no longer be mutated at all.
func (o *Order) Immutable() bool {
	return o.Status == OrderDelivered || o.Status == OrderCancelled
}

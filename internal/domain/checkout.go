package domain

import (
	"errors"
	"slices"
	"time"
)

// CheckoutStatus represents the state of an in-progress purchase attempt
type CheckoutStatus string

const (
	CheckoutPending    CheckoutStatus = "PENDING"
	CheckoutProcessing CheckoutStatus = "PROCESSING"
	CheckoutCompleted  CheckoutStatus = "COMPLETED"
	CheckoutFailed     CheckoutStatus = "FAILED"
	CheckoutAbandoned  CheckoutStatus = "ABANDONED"
)

// CheckoutLine is a raw cart line with the unit price snapshotted at
// submission time.
type CheckoutLine struct {
	ProductID string
	Quantity  int
	UnitPrice int64
}

// Checkout is the transient record of a purchase attempt, distinct from
// the durable Order it produces. After creation it is mutated only by
// reconciliation; it is never deleted, only terminal-stated.
type Checkout struct {
	ID            string
	OwnerID       string
	Lines         []CheckoutLine
	CouponID      *string
	Status        CheckoutStatus
	PaymentStatus PaymentStatus
	OrderID       *string
	CreatedAt     time.Time
	CompletedAt   *time.Time
	AbandonedAt   *time.Time
}

func NewCheckout(id, ownerID string, lines []CheckoutLine, couponID *string) (*Checkout, error) {
	if id == "" {
		return nil, errors.New("checkout ID is required")
	}
	if ownerID == "" {
		return nil, errors.New("owner ID is required")
	}
	if len(lines) == 0 {
		return nil, errors.New("checkout requires at least one line")
	}
	return &Checkout{
		ID:            id,
		OwnerID:       ownerID,
		Lines:         lines,
		CouponID:      couponID,
		Status:        CheckoutPending,
		PaymentStatus: PaymentPending,
		CreatedAt:     time.Now(),
	}, nil
}

// AttachOrder links the durable order created from this checkout.
func (c *Checkout) AttachOrder(orderID string) {
	c.OrderID = &orderID
}

// Complete marks the checkout paid. Invariant: a PAID checkout is
// always COMPLETED with an order attached.
func (c *Checkout) Complete(at time.Time) error {
	if c.OrderID == nil {
		return errors.New("checkout cannot complete without an order")
	}
	if err := c.transition(CheckoutCompleted); err != nil {
		return err
	}
	c.PaymentStatus = PaymentPaid
	c.CompletedAt = &at
	return nil
}

// StartProcessing marks the checkout handed off to a payment provider.
func (c *Checkout) StartProcessing() error {
	return c.transition(CheckoutProcessing)
}

func (c *Checkout) Fail() error {
	if err := c.transition(CheckoutFailed); err != nil {
		return err
	}
	c.PaymentStatus = PaymentFailed
	return nil
}

func (c *Checkout) Abandon(at time.Time) error {
	if err := c.transition(CheckoutAbandoned); err != nil {
		return err
	}
	c.AbandonedAt = &at
	return nil
}

func (c *Checkout) transition(target CheckoutStatus) error {
	switch c.Status {
	case CheckoutPending:
		if slices.Contains([]CheckoutStatus{CheckoutProcessing, CheckoutCompleted, CheckoutFailed, CheckoutAbandoned}, target) {
			c.Status = target
			return nil
		}
	case CheckoutProcessing:
		if slices.Contains([]CheckoutStatus{CheckoutCompleted, CheckoutFailed}, target) {
			c.Status = target
			return nil
		}
	}
	return ErrInvalidTransition
}

func (c *Checkout) IsTerminal() bool {
	switch c.Status {
	case CheckoutCompleted, CheckoutFailed, CheckoutAbandoned:
		return true
	default:
		return false
	}
}

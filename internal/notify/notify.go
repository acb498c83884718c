// Package notify publishes payment lifecycle events. Delivery is best
// effort: a failed publish is logged and never fails the transaction
// that produced the event.
package notify

import (
	"context"
	"time"
)

const (
	EventCheckoutCreated  = "checkout.created"
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventDepositSettled   = "wallet.deposit.settled"
)

type Event struct {
	Type        string    `json:"type"`
	OwnerID     string    `json:"owner_id"`
	OrderID     string    `json:"order_id,omitempty"`
	OrderNumber string    `json:"order_number,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type Notifier interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopNotifier drops events. Used when no broker is configured.
type NoopNotifier struct{}

func (NoopNotifier) Publish(ctx context.Context, event Event) error { return nil }
func (NoopNotifier) Close() error                                   { return nil }

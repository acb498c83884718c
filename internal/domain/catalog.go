package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the read-only catalog view checkout validates against.
// Price and weight are the authoritative values; client-submitted
// prices are ignored.
type Product struct {
	ID       string
	Title    string
	Price    int64
	WeightKg decimal.Decimal
	Active   bool
}

// Coupon discounts a checkout subtotal. An expired, inactive or
// below-minimum coupon contributes zero discount but never errors the
// calculation.
type Coupon struct {
	ID          string
	Code        string
	Percent     int
	MinSubtotal int64
	Active      bool
	ExpiresAt   *time.Time
}

// Usable reports whether the coupon may discount the given subtotal.
func (c *Coupon) Usable(subtotal int64, now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return false
	}
	return subtotal >= c.MinSubtotal
}

// Package pricing computes authoritative checkout quotes. It is pure:
// no I/O, all inputs resolved by the caller.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kudimart/checkout-engine/internal/domain"
)

// Line is one cart line with catalog-resolved price and weight.
type Line struct {
	ProductID string
	Quantity  int
	UnitPrice int64
	WeightKg  decimal.Decimal
}

// Quote is the authoritative price breakdown for an order.
// All amounts are minor units; weight stays decimal.
type Quote struct {
	Subtotal    int64
	TotalWeight decimal.Decimal
	DeliveryFee int64
	Discount    int64
	Tax         int64
	Total       int64
}

// Warning surfaces a non-fatal pricing condition, e.g. a coupon that
// contributed no discount. Callers show it to the user; it never fails
// the checkout.
type Warning struct {
	Code    string
	Message string
}

const WarnCouponUnusable = "COUPON_UNUSABLE"

// ZoneRate prices delivery for one destination zone. The fee is
// monotonic in weight: base + perKg x ceil(weight).
type ZoneRate struct {
	BaseFee int64
	PerKg   int64
}

type RateTable map[string]ZoneRate

// DefaultRates covers the zones the storefront ships to. Unknown zones
// fall back to the "standard" entry.
func DefaultRates() RateTable {
	return RateTable{
		"lagos":    {BaseFee: 1000, PerKg: 200},
		"standard": {BaseFee: 1500, PerKg: 350},
		"remote":   {BaseFee: 2500, PerKg: 500},
	}
}

func (t RateTable) feeFor(zone string, weight decimal.Decimal) int64 {
	rate, ok := t[zone]
	if !ok {
		rate = t["standard"]
	}
	billable := weight.Ceil()
	fee := decimal.NewFromInt(rate.BaseFee).Add(billable.Mul(decimal.NewFromInt(rate.PerKg)))
	return fee.Round(0).IntPart()
}

type Calculator struct {
	rates   RateTable
	taxRate decimal.Decimal
}

func NewCalculator(rates RateTable, taxRate decimal.Decimal) *Calculator {
	return &Calculator{rates: rates, taxRate: taxRate}
}

// Calculate produces the quote for the given lines. A coupon that is
// expired, inactive or below its minimum subtotal contributes zero
// discount and a warning, never an error.
func (c *Calculator) Calculate(lines []Line, coupon *domain.Coupon, zone string) (Quote, []Warning, error) {
	if len(lines) == 0 {
		return Quote{}, nil, domain.NewInvalidAmountError(0)
	}

	var subtotal int64
	weight := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 || line.UnitPrice < 0 {
			return Quote{}, nil, domain.NewInvalidAmountError(line.UnitPrice)
		}
		subtotal += line.UnitPrice * int64(line.Quantity)
		weight = weight.Add(line.WeightKg.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	var warnings []Warning
	var discount int64
	if coupon != nil {
		if coupon.Usable(subtotal, time.Now()) {
			discount = decimal.NewFromInt(subtotal).
				Mul(decimal.NewFromInt(int64(coupon.Percent))).
				Div(decimal.NewFromInt(100)).
				Round(0).IntPart()
			// clamp to [0, subtotal]
			if discount < 0 {
				discount = 0
			}
			if discount > subtotal {
				discount = subtotal
			}
		} else {
			warnings = append(warnings, Warning{
				Code:    WarnCouponUnusable,
				Message: "coupon " + coupon.Code + " is expired, inactive or below its minimum subtotal",
			})
		}
	}

	deliveryFee := c.rates.feeFor(zone, weight)
	tax := decimal.NewFromInt(subtotal).Mul(c.taxRate).Round(0).IntPart()

	return Quote{
		Subtotal:    subtotal,
		TotalWeight: weight,
		DeliveryFee: deliveryFee,
		Discount:    discount,
		Tax:         tax,
		Total:       subtotal + tax + deliveryFee - discount,
	}, warnings, nil
}

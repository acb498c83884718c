package pricing_test

import (
	"testing"
	"time"

	"github.com/kudimart/checkout-engine/internal/domain"
	"github.com/kudimart/checkout-engine/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatRates() pricing.RateTable {
	return pricing.RateTable{"standard": {BaseFee: 1000, PerKg: 0}}
}

func TestCalculate(t *testing.T) {
	lines := []pricing.Line{
		{ProductID: "prod-a", Quantity: 2, UnitPrice: 1500, WeightKg: decimal.NewFromFloat(0.5)},
		{ProductID: "prod-b", Quantity: 1, UnitPrice: 2500, WeightKg: decimal.NewFromFloat(1.2)},
	}

	t.Run("no coupon, flat delivery fee", func(t *testing.T) {
		calc := pricing.NewCalculator(flatRates(), decimal.Zero)

		quote, warnings, err := calc.Calculate(lines, nil, "standard")

		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Equal(t, int64(5500), quote.Subtotal)
		assert.Equal(t, int64(1000), quote.DeliveryFee)
		assert.Equal(t, int64(0), quote.Discount)
		assert.Equal(t, int64(6500), quote.Total)
		assert.True(t, quote.TotalWeight.Equal(decimal.NewFromFloat(2.2)))
	})

	t.Run("delivery fee is monotonic in weight", func(t *testing.T) {
		calc := pricing.NewCalculator(pricing.DefaultRates(), decimal.Zero)
		light := []pricing.Line{{ProductID: "a", Quantity: 1, UnitPrice: 1000, WeightKg: decimal.NewFromFloat(0.5)}}
		heavy := []pricing.Line{{ProductID: "a", Quantity: 1, UnitPrice: 1000, WeightKg: decimal.NewFromFloat(9.5)}}

		lightQuote, _, err := calc.Calculate(light, nil, "lagos")
		require.NoError(t, err)
		heavyQuote, _, err := calc.Calculate(heavy, nil, "lagos")
		require.NoError(t, err)

		assert.Greater(t, heavyQuote.DeliveryFee, lightQuote.DeliveryFee)
	})

	t.Run("unknown zone falls back to standard", func(t *testing.T) {
		calc := pricing.NewCalculator(pricing.DefaultRates(), decimal.Zero)

		quote, _, err := calc.Calculate(lines, nil, "atlantis")
		require.NoError(t, err)
		standard, _, err := calc.Calculate(lines, nil, "standard")
		require.NoError(t, err)

		assert.Equal(t, standard.DeliveryFee, quote.DeliveryFee)
	})

	t.Run("valid coupon discounts the subtotal", func(t *testing.T) {
		calc := pricing.NewCalculator(flatRates(), decimal.Zero)
		coupon := &domain.Coupon{ID: "c-1", Code: "TEN", Percent: 10, Active: true}

		quote, warnings, err := calc.Calculate(lines, coupon, "standard")

		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Equal(t, int64(550), quote.Discount)
		assert.Equal(t, int64(5950), quote.Total)
	})

	t.Run("expired coupon warns instead of failing", func(t *testing.T) {
		calc := pricing.NewCalculator(flatRates(), decimal.Zero)
		expired := time.Now().Add(-24 * time.Hour)
		coupon := &domain.Coupon{ID: "c-1", Code: "OLD", Percent: 10, Active: true, ExpiresAt: &expired}

		quote, warnings, err := calc.Calculate(lines, coupon, "standard")

		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Equal(t, pricing.WarnCouponUnusable, warnings[0].Code)
		assert.Equal(t, int64(0), quote.Discount)
		assert.Equal(t, int64(6500), quote.Total)
	})

	t.Run("coupon below minimum subtotal warns", func(t *testing.T) {
		calc := pricing.NewCalculator(flatRates(), decimal.Zero)
		coupon := &domain.Coupon{ID: "c-1", Code: "BIG", Percent: 10, Active: true, MinSubtotal: 100000}

		quote, warnings, err := calc.Calculate(lines, coupon, "standard")

		require.NoError(t, err)
		assert.Len(t, warnings, 1)
		assert.Equal(t, int64(0), quote.Discount)
	})

	t.Run("discount is clamped to the subtotal", func(t *testing.T) {
		calc := pricing.NewCalculator(flatRates(), decimal.Zero)
		coupon := &domain.Coupon{ID: "c-1", Code: "ALL", Percent: 150, Active: true}

		quote, _, err := calc.Calculate(lines, coupon, "standard")

		require.NoError(t, err)
		assert.Equal(t, quote.Subtotal, quote.Discount)
		assert.Equal(t, quote.DeliveryFee, quote.Total)
	})

	t.Run("tax applies to the subtotal", func(t *testing.T) {
		calc := pricing.NewCalculator(flatRates(), decimal.NewFromFloat(0.075))

		quote, _, err := calc.Calculate(lines, nil, "standard")

		require.NoError(t, err)
		assert.Equal(t, int64(413), quote.Tax)
		assert.Equal(t, quote.Subtotal+quote.Tax+quote.DeliveryFee-quote.Discount, quote.Total)
	})

	t.Run("rejects invalid quantity", func(t *testing.T) {
		calc := pricing.NewCalculator(flatRates(), decimal.Zero)
		bad := []pricing.Line{{ProductID: "a", Quantity: 0, UnitPrice: 1000}}

		_, _, err := calc.Calculate(bad, nil, "standard")

		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidAmount))
	})
}

package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kudimart/checkout-engine/internal/domain"
	"github.com/kudimart/checkout-engine/internal/infrastructure/persistence/postgres"
)

// SeedProduct inserts a live catalog product and returns it.
func SeedProduct(t *testing.T, db *postgres.DB, title string, price int64, weightKg float64) *domain.Product {
	t.Helper()
	product := &domain.Product{
		ID:       uuid.New().String(),
		Title:    title,
		Price:    price,
		WeightKg: decimal.NewFromFloat(weightKg),
		Active:   true,
	}

	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO products (id, title, price, weight_kg, active) VALUES ($1, $2, $3, $4, $5)`,
		product.ID, product.Title, product.Price, weightKg, product.Active,
	)
	require.NoError(t, err)
	return product
}

// SeedCoupon inserts an active percentage coupon.
func SeedCoupon(t *testing.T, db *postgres.DB, code string, percent int, minSubtotal int64) *domain.Coupon {
	t.Helper()
	expires := time.Now().Add(30 * 24 * time.Hour)
	coupon := &domain.Coupon{
		ID:          uuid.New().String(),
		Code:        code,
		Percent:     percent,
		MinSubtotal: minSubtotal,
		Active:      true,
		ExpiresAt:   &expires,
	}

	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO coupons (id, code, percent, min_subtotal, active, expires_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		coupon.ID, coupon.Code, coupon.Percent, coupon.MinSubtotal, coupon.Active, coupon.ExpiresAt,
	)
	require.NoError(t, err)
	return coupon
}

// SeedWallet creates a funded wallet for an owner.
func SeedWallet(t *testing.T, db *postgres.DB, ownerID string, balance int64) *domain.Wallet {
	t.Helper()
	now := time.Now()
	wallet := &domain.Wallet{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO wallets (id, owner_id, balance, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		wallet.ID, wallet.OwnerID, wallet.Balance, wallet.CreatedAt, wallet.UpdatedAt,
	)
	require.NoError(t, err)
	return wallet
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kudimart/checkout-engine/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCouponNotFound  = errors.New("coupon not found")
)

// CatalogRepository is the read-only view of products and coupons that
// checkout validates submitted carts against.
type CatalogRepository struct {
	q Executor
}

func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{q: db.Pool}
}

func (r *CatalogRepository) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT id, title, price, weight_kg, active FROM products WHERE id = $1`

	var m ProductModel
	err := r.q.QueryRow(ctx, query, id).Scan(&m.ID, &m.Title, &m.Price, &m.WeightKg, &m.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return toProductDomain(m), nil
}

func (r *CatalogRepository) FindCoupon(ctx context.Context, id string) (*domain.Coupon, error) {
	query := `SELECT id, code, percent, min_subtotal, active, expires_at FROM coupons WHERE id = $1`

	var m CouponModel
	err := r.q.QueryRow(ctx, query, id).Scan(&m.ID, &m.Code, &m.Percent, &m.MinSubtotal, &m.Active, &m.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to scan coupon: %w", err)
	}
	return toCouponDomain(m), nil
}

func (r *CatalogRepository) FindCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `SELECT id, code, percent, min_subtotal, active, expires_at FROM coupons WHERE code = $1`

	var m CouponModel
	err := r.q.QueryRow(ctx, query, code).Scan(&m.ID, &m.Code, &m.Percent, &m.MinSubtotal, &m.Active, &m.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to scan coupon: %w", err)
	}
	return toCouponDomain(m), nil
}

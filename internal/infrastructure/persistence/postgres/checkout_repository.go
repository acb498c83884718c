package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kudimart/checkout-engine/internal/domain"
)

var ErrCheckoutNotFound = errors.New("checkout not found")

const checkoutColumns = `id, owner_id, lines, coupon_id, status, payment_status,
		order_id, created_at, completed_at, abandoned_at`

type CheckoutRepository struct {
	q Executor
}

func NewCheckoutRepository(db *DB) *CheckoutRepository {
	return &CheckoutRepository{q: db.Pool}
}

func (r *CheckoutRepository) Create(ctx context.Context, checkout *domain.Checkout) error {
	query := `
		INSERT INTO checkouts (` + checkoutColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	m, err := toCheckoutModel(checkout)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx, query,
		m.ID, m.OwnerID, m.Lines, m.CouponID, m.Status, m.PaymentStatus,
		m.OrderID, m.CreatedAt, m.CompletedAt, m.AbandonedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create checkout: %w", err)
	}
	return nil
}

func (r *CheckoutRepository) FindByID(ctx context.Context, id string) (*domain.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE id = $1`
	return scanCheckout(r.q.QueryRow(ctx, query, id))
}

// FindByIDForUpdate retrieves a checkout with a row-level lock.
func (r *CheckoutRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE id = $1 FOR UPDATE`
	return scanCheckout(r.q.QueryRow(ctx, query, id))
}

// FindByOrderIDForUpdate locks the checkout linked to an order.
// Deposit settlements have no checkout, so callers tolerate not-found.
func (r *CheckoutRepository) FindByOrderIDForUpdate(ctx context.Context, orderID string) (*domain.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE order_id = $1 FOR UPDATE`
	return scanCheckout(r.q.QueryRow(ctx, query, orderID))
}

// FindByOwner retrieves the owner's checkouts, newest first.
func (r *CheckoutRepository) FindByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Checkout, error) {
	query := `
		SELECT ` + checkoutColumns + `
		FROM checkouts WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query checkouts by owner: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Checkout, error) {
		var m CheckoutModel
		if err := row.Scan(
			&m.ID, &m.OwnerID, &m.Lines, &m.CouponID, &m.Status, &m.PaymentStatus,
			&m.OrderID, &m.CreatedAt, &m.CompletedAt, &m.AbandonedAt,
		); err != nil {
			return nil, err
		}
		return toCheckoutDomain(m)
	})
	if err != nil {
		return nil, fmt.Errorf("scan checkouts: %w", err)
	}
	return results, nil
}

func (r *CheckoutRepository) Update(ctx context.Context, checkout *domain.Checkout) error {
	query := `
		UPDATE checkouts
		SET status = $1, payment_status = $2, order_id = $3,
			completed_at = $4, abandoned_at = $5
		WHERE id = $6
	`

	m, err := toCheckoutModel(checkout)
	if err != nil {
		return err
	}

	tag, err := r.q.Exec(ctx, query,
		m.Status, m.PaymentStatus, m.OrderID, m.CompletedAt, m.AbandonedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update checkout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCheckoutNotFound
	}
	return nil
}

func scanCheckout(row pgx.Row) (*domain.Checkout, error) {
	var m CheckoutModel
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Lines, &m.CouponID, &m.Status, &m.PaymentStatus,
		&m.OrderID, &m.CreatedAt, &m.CompletedAt, &m.AbandonedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("failed to scan checkout: %w", err)
	}
	return toCheckoutDomain(m)
}

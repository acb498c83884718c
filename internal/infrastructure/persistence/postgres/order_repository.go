package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kudimart/checkout-engine/internal/domain"
)

var ErrOrderNotFound = errors.New("order not found")

const orderColumns = `id, owner_id, order_number, items,
		subtotal, tax, shipping_fee, discount, total, weight_kg,
		status, payment_status, payment_method, payment_reference,
		transaction_id, shipping_address, billing_address,
		created_at, processed_at`

type OrderRepository struct {
	q Executor
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{q: db.Pool}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	m, err := toOrderModel(order)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx, query,
		m.ID, m.OwnerID, m.OrderNumber, m.Items,
		m.Subtotal, m.Tax, m.ShippingFee, m.Discount, m.Total, m.WeightKg,
		m.Status, m.PaymentStatus, m.PaymentMethod, m.PaymentReference,
		m.TransactionID, m.ShippingAddress, m.BillingAddress,
		m.CreatedAt, m.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.q.QueryRow(ctx, query, id))
}

// FindByIDForUpdate retrieves an order with a row-level lock.
// Reconciliation must hold this lock before applying an outcome.
func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return scanOrder(r.q.QueryRow(ctx, query, id))
}

// FindByReference resolves an order from its gateway payment reference.
func (r *OrderRepository) FindByReference(ctx context.Context, reference string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_reference = $1`
	return scanOrder(r.q.QueryRow(ctx, query, reference))
}

// FindByReferenceForUpdate resolves and locks an order by reference.
func (r *OrderRepository) FindByReferenceForUpdate(ctx context.Context, reference string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_reference = $1 FOR UPDATE`
	return scanOrder(r.q.QueryRow(ctx, query, reference))
}

// FindByOwner retrieves the owner's orders, newest first.
func (r *OrderRepository) FindByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query orders by owner: %w", err)
	}
	return collectOrders(rows)
}

// FindStalePending finds orders still awaiting payment past the cutoff
// time. The verification sweeper uses this to reconcile payments whose
// webhooks never arrived.
func (r *OrderRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE payment_status = 'PENDING'
		  AND payment_method IN ('card', 'opay')
		  AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale pending orders: %w", err)
	}
	return collectOrders(rows)
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, payment_reference = $3,
			transaction_id = $4, processed_at = $5
		WHERE id = $6
	`

	m, err := toOrderModel(order)
	if err != nil {
		return err
	}

	tag, err := r.q.Exec(ctx, query,
		m.Status, m.PaymentStatus, m.PaymentReference, m.TransactionID, m.ProcessedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func collectOrders(rows pgx.Rows) ([]*domain.Order, error) {
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Order, error) {
		var m OrderModel
		if err := row.Scan(
			&m.ID, &m.OwnerID, &m.OrderNumber, &m.Items,
			&m.Subtotal, &m.Tax, &m.ShippingFee, &m.Discount, &m.Total, &m.WeightKg,
			&m.Status, &m.PaymentStatus, &m.PaymentMethod, &m.PaymentReference,
			&m.TransactionID, &m.ShippingAddress, &m.BillingAddress,
			&m.CreatedAt, &m.ProcessedAt,
		); err != nil {
			return nil, err
		}
		return toOrderDomain(m)
	})
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	return results, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var m OrderModel
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.OrderNumber, &m.Items,
		&m.Subtotal, &m.Tax, &m.ShippingFee, &m.Discount, &m.Total, &m.WeightKg,
		&m.Status, &m.PaymentStatus, &m.PaymentMethod, &m.PaymentReference,
		&m.TransactionID, &m.ShippingAddress, &m.BillingAddress,
		&m.CreatedAt, &m.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return toOrderDomain(m)
}

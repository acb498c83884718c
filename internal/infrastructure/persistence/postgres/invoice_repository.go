package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kudimart/checkout-engine/internal/domain"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

const invoiceColumns = `id, order_id, invoice_number, total_amount, paid_amount,
		balance_amount, status, payment_status, created_at, paid_at`

type InvoiceRepository struct {
	q Executor
}

func NewInvoiceRepository(db *DB) *InvoiceRepository {
	return &InvoiceRepository{q: db.Pool}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	m := toInvoiceModel(invoice)
	_, err := r.q.Exec(ctx, query,
		m.ID, m.OrderID, m.InvoiceNumber, m.TotalAmount, m.PaidAmount,
		m.BalanceAmount, m.Status, m.PaymentStatus, m.CreatedAt, m.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE order_id = $1`
	return scanInvoice(r.q.QueryRow(ctx, query, orderID))
}

// FindByOrderIDForUpdate retrieves an invoice with a row-level lock.
func (r *InvoiceRepository) FindByOrderIDForUpdate(ctx context.Context, orderID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE order_id = $1 FOR UPDATE`
	return scanInvoice(r.q.QueryRow(ctx, query, orderID))
}

func (r *InvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	query := `
		UPDATE invoices
		SET paid_amount = $1, balance_amount = $2, status = $3,
			payment_status = $4, paid_at = $5
		WHERE id = $6
	`

	m := toInvoiceModel(invoice)
	tag, err := r.q.Exec(ctx, query,
		m.PaidAmount, m.BalanceAmount, m.Status, m.PaymentStatus, m.PaidAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

// CreatePayment inserts a settlement record. A second insert with the
// same reference trips the unique constraint and comes back as
// DUPLICATE_REFERENCE, which reconciliation treats as already settled.
func (r *InvoiceRepository) CreatePayment(ctx context.Context, payment *domain.InvoicePayment) error {
	query := `
		INSERT INTO invoice_payments (id, invoice_id, amount, gateway, reference, transaction_id, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query,
		payment.ID, payment.InvoiceID, payment.Amount, payment.Gateway,
		payment.Reference, payment.TransactionID, payment.VerifiedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewDuplicateReferenceError(payment.Reference)
		}
		return fmt.Errorf("failed to create invoice payment: %w", err)
	}
	return nil
}

// FindPaymentByReference looks up a settlement record by its gateway reference.
func (r *InvoiceRepository) FindPaymentByReference(ctx context.Context, reference string) (*domain.InvoicePayment, error) {
	query := `
		SELECT id, invoice_id, amount, gateway, reference, transaction_id, verified_at
		FROM invoice_payments WHERE reference = $1
	`

	var m InvoicePaymentModel
	err := r.q.QueryRow(ctx, query, reference).Scan(
		&m.ID, &m.InvoiceID, &m.Amount, &m.Gateway, &m.Reference, &m.TransactionID, &m.VerifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to scan invoice payment: %w", err)
	}
	return &domain.InvoicePayment{
		ID:            m.ID,
		InvoiceID:     m.InvoiceID,
		Amount:        m.Amount,
		Gateway:       m.Gateway,
		Reference:     m.Reference,
		TransactionID: m.TransactionID,
		VerifiedAt:    m.VerifiedAt,
	}, nil
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var m InvoiceModel
	err := row.Scan(
		&m.ID, &m.OrderID, &m.InvoiceNumber, &m.TotalAmount, &m.PaidAmount,
		&m.BalanceAmount, &m.Status, &m.PaymentStatus, &m.CreatedAt, &m.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}
	return toInvoiceDomain(m), nil
}

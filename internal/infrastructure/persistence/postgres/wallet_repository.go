package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kudimart/checkout-engine/internal/domain"
)

var (
	ErrWalletNotFound            = errors.New("wallet not found")
	ErrWalletTransactionNotFound = errors.New("wallet transaction not found")
)

const walletTxColumns = `id, wallet_id, amount, type, status,
		balance_before, balance_after, reference, metadata, created_at`

type WalletRepository struct {
	q Executor
}

func NewWalletRepository(db *DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	query := `
		INSERT INTO wallets (id, owner_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.Exec(ctx, query,
		wallet.ID, wallet.OwnerID, wallet.Balance, wallet.CreatedAt, wallet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *WalletRepository) FindByOwner(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	query := `SELECT id, owner_id, balance, created_at, updated_at FROM wallets WHERE owner_id = $1`
	return scanWallet(r.q.QueryRow(ctx, query, ownerID))
}

// FindByIDForUpdate locks the wallet row by its primary key.
func (r *WalletRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT id, owner_id, balance, created_at, updated_at FROM wallets WHERE id = $1 FOR UPDATE`
	return scanWallet(r.q.QueryRow(ctx, query, id))
}

// FindByOwnerForUpdate locks the wallet row. Every balance mutation
// must run under this lock so balance_before and balance_after on the
// ledger row are consistent.
func (r *WalletRepository) FindByOwnerForUpdate(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	query := `SELECT id, owner_id, balance, created_at, updated_at FROM wallets WHERE owner_id = $1 FOR UPDATE`
	return scanWallet(r.q.QueryRow(ctx, query, ownerID))
}

func (r *WalletRepository) UpdateBalance(ctx context.Context, wallet *domain.Wallet) error {
	query := `UPDATE wallets SET balance = $1, updated_at = $2 WHERE id = $3`

	tag, err := r.q.Exec(ctx, query, wallet.Balance, time.Now(), wallet.ID)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// CreateTransaction inserts a ledger row. The unique constraint on
// reference maps to DUPLICATE_REFERENCE for redelivered settlements.
func (r *WalletRepository) CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (` + walletTxColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	m := toWalletTransactionModel(tx)
	_, err := r.q.Exec(ctx, query,
		m.ID, m.WalletID, m.Amount, m.Type, m.Status,
		m.BalanceBefore, m.BalanceAfter, m.Reference, m.Metadata, m.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewDuplicateReferenceError(tx.Reference)
		}
		return fmt.Errorf("failed to create wallet transaction: %w", err)
	}
	return nil
}

func (r *WalletRepository) FindTransactionByReference(ctx context.Context, reference string) (*domain.WalletTransaction, error) {
	query := `SELECT ` + walletTxColumns + ` FROM wallet_transactions WHERE reference = $1`
	return scanWalletTransaction(r.q.QueryRow(ctx, query, reference))
}

// FindTransactionByReferenceForUpdate locks the ledger row before
// reconciliation transitions it.
func (r *WalletRepository) FindTransactionByReferenceForUpdate(ctx context.Context, reference string) (*domain.WalletTransaction, error) {
	query := `SELECT ` + walletTxColumns + ` FROM wallet_transactions WHERE reference = $1 FOR UPDATE`
	return scanWalletTransaction(r.q.QueryRow(ctx, query, reference))
}

// FindTransactionsByWallet retrieves ledger rows, newest first.
func (r *WalletRepository) FindTransactionsByWallet(ctx context.Context, walletID string, limit, offset int) ([]*domain.WalletTransaction, error) {
	query := `
		SELECT ` + walletTxColumns + `
		FROM wallet_transactions WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query wallet transactions: %w", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.WalletTransaction, error) {
		var m WalletTransactionModel
		if err := row.Scan(
			&m.ID, &m.WalletID, &m.Amount, &m.Type, &m.Status,
			&m.BalanceBefore, &m.BalanceAfter, &m.Reference, &m.Metadata, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		return toWalletTransactionDomain(m), nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan wallet transactions: %w", err)
	}
	return results, nil
}

func (r *WalletRepository) UpdateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	query := `
		UPDATE wallet_transactions
		SET status = $1, balance_before = $2, balance_after = $3, metadata = $4
		WHERE id = $5
	`

	m := toWalletTransactionModel(tx)
	tag, err := r.q.Exec(ctx, query, m.Status, m.BalanceBefore, m.BalanceAfter, m.Metadata, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update wallet transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWalletTransactionNotFound
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var m WalletModel
	err := row.Scan(&m.ID, &m.OwnerID, &m.Balance, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	return toWalletDomain(m), nil
}

func scanWalletTransaction(row pgx.Row) (*domain.WalletTransaction, error) {
	var m WalletTransactionModel
	err := row.Scan(
		&m.ID, &m.WalletID, &m.Amount, &m.Type, &m.Status,
		&m.BalanceBefore, &m.BalanceAfter, &m.Reference, &m.Metadata, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletTransactionNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
	}
	return toWalletTransactionDomain(m), nil
}

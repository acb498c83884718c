package domain

import (
	"errors"
	"time"
)

type WalletTransactionType string

const (
	WalletCredit WalletTransactionType = "CREDIT"
	WalletDebit  WalletTransactionType = "DEBIT"
)

type WalletTransactionStatus string

const (
	WalletTxPending WalletTransactionStatus = "PENDING"
	WalletTxSuccess WalletTransactionStatus = "SUCCESS"
	WalletTxFailed  WalletTransactionStatus = "FAILED"
)

type Wallet struct {
	ID        string
	OwnerID   string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyCredit returns the balance before and after the credit. The
// caller must persist both the wallet and the ledger row in one
// transaction with the wallet row locked.
func (w *Wallet) ApplyCredit(amount int64) (before, after int64, err error) {
	if amount <= 0 {
		return 0, 0, NewInvalidAmountError(amount)
	}
	before = w.Balance
	w.Balance += amount
	return before, w.Balance, nil
}

// ApplyDebit fails with InsufficientFunds if amount exceeds the balance.
func (w *Wallet) ApplyDebit(amount int64) (before, after int64, err error) {
	if amount <= 0 {
		return 0, 0, NewInvalidAmountError(amount)
	}
	if amount > w.Balance {
		return 0, 0, NewInsufficientFundsError(w.Balance, amount)
	}
	before = w.Balance
	w.Balance -= amount
	return before, w.Balance, nil
}

// WalletTransaction is an append-only ledger row. Balance mutation on
// the owning wallet is derived only from transitioning a row to
// SUCCESS exactly once.
type WalletTransaction struct {
	ID            string
	WalletID      string
	Amount        int64
	Type          WalletTransactionType
	Status        WalletTransactionStatus
	BalanceBefore int64
	BalanceAfter  int64
	Reference     string
	Metadata      string
	CreatedAt     time.Time
}

func NewWalletTransaction(id, walletID string, amount int64, txType WalletTransactionType, reference string) (*WalletTransaction, error) {
	if id == "" {
		return nil, errors.New("transaction ID is required")
	}
	if amount <= 0 {
		return nil, NewInvalidAmountError(amount)
	}
	if reference == "" {
		return nil, errors.New("reference is required")
	}
	return &WalletTransaction{
		ID:        id,
		WalletID:  walletID,
		Amount:    amount,
		Type:      txType,
		Status:    WalletTxPending,
		Reference: reference,
		CreatedAt: time.Now(),
	}, nil
}

// MarkSuccess records the balance movement. Only a PENDING row may
// succeed, which makes redelivered settlements no-ops.
func (t *WalletTransaction) MarkSuccess(balanceBefore, balanceAfter int64) error {
	if t.Status != WalletTxPending {
		return NewInvalidStateError(string(t.Status), string(WalletTxPending))
	}
	t.Status = WalletTxSuccess
	t.BalanceBefore = balanceBefore
	t.BalanceAfter = balanceAfter
	return nil
}

func (t *WalletTransaction) MarkFailed() error {
	if t.Status != WalletTxPending {
		return NewInvalidStateError(string(t.Status), string(WalletTxPending))
	}
	t.Status = WalletTxFailed
	return nil
}

package application

import (
	"context"
	"time"

	"github.com/kudimart/checkout-engine/internal/domain"
)

// CheckoutStore is the port for checkout persistence.
type CheckoutStore interface {
	Create(ctx context.Context, checkout *domain.Checkout) error
	FindByID(ctx context.Context, id string) (*domain.Checkout, error)
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Checkout, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID string) (*domain.Checkout, error)
	FindByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Checkout, error)
	Update(ctx context.Context, checkout *domain.Checkout) error
}

// OrderStore is the port for order persistence.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Order, error)
	FindByReference(ctx context.Context, reference string) (*domain.Order, error)
	FindByReferenceForUpdate(ctx context.Context, reference string) (*domain.Order, error)
	FindByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Order, error)
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
}

// InvoiceStore is the port for invoice and settlement persistence.
type InvoiceStore interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID string) (*domain.Invoice, error)
	Update(ctx context.Context, invoice *domain.Invoice) error
	CreatePayment(ctx context.Context, payment *domain.InvoicePayment) error
	FindPaymentByReference(ctx context.Context, reference string) (*domain.InvoicePayment, error)
}

// WalletStore is the port for wallet and ledger persistence.
type WalletStore interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	FindByOwner(ctx context.Context, ownerID string) (*domain.Wallet, error)
	FindByOwnerForUpdate(ctx context.Context, ownerID string) (*domain.Wallet, error)
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, wallet *domain.Wallet) error
	CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error
	FindTransactionByReference(ctx context.Context, reference string) (*domain.WalletTransaction, error)
	FindTransactionByReferenceForUpdate(ctx context.Context, reference string) (*domain.WalletTransaction, error)
	FindTransactionsByWallet(ctx context.Context, walletID string, limit, offset int) ([]*domain.WalletTransaction, error)
	UpdateTransaction(ctx context.Context, tx *domain.WalletTransaction) error
}

// CatalogStore is the read-only port checkout validates carts against.
type CatalogStore interface {
	FindProduct(ctx context.Context, id string) (*domain.Product, error)
	FindCoupon(ctx context.Context, id string) (*domain.Coupon, error)
	FindCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
}

// Stores bundles tx-scoped store instances handed to a transactional
// closure. Everything touched through it commits or rolls back together.
type Stores struct {
	Checkouts CheckoutStore
	Orders    OrderStore
	Invoices  InvoiceStore
	Wallets   WalletStore
}

// Atomic runs a closure inside one database transaction.
type Atomic interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, stores *Stores) error) error
}

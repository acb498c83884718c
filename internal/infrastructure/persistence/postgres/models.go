package postgres

import (
	"time"
)

// CheckoutModel mirrors the checkouts table. Lines are stored as a
// JSONB snapshot of the submitted cart.
type CheckoutModel struct {
	ID            string
	OwnerID       string
	Lines         []byte
	CouponID      *string
	Status        string
	PaymentStatus string
	OrderID       *string
	CreatedAt     time.Time
	CompletedAt   *time.Time
	AbandonedAt   *time.Time
}

type checkoutLineJSON struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderModel mirrors the orders table. Items are a priced JSONB
// snapshot; order_number and payment_reference carry unique indexes.
type OrderModel struct {
	ID               string
	OwnerID          string
	OrderNumber      string
	Items            []byte
	Subtotal         int64
	Tax              int64
	ShippingFee      int64
	Discount         int64
	Total            int64
	WeightKg         float64
	Status           string
	PaymentStatus    string
	PaymentMethod    string
	PaymentReference *string
	TransactionID    *string
	ShippingAddress  []byte
	BillingAddress   []byte
	CreatedAt        time.Time
	ProcessedAt      *time.Time
}

type addressJSON struct {
	Line1 string `json:"line1"`
	City  string `json:"city"`
	State string `json:"state"`
	Zone  string `json:"zone"`
}

type orderItemJSON struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

type InvoiceModel struct {
	ID            string
	OrderID       string
	InvoiceNumber string
	TotalAmount   int64
	PaidAmount    int64
	BalanceAmount int64
	Status        string
	PaymentStatus string
	CreatedAt     time.Time
	PaidAt        *time.Time
}

// InvoicePaymentModel mirrors invoice_payments. The unique constraint
// on reference makes settlement insertion idempotent.
type InvoicePaymentModel struct {
	ID            string
	InvoiceID     string
	Amount        int64
	Gateway       string
	Reference     string
	TransactionID string
	VerifiedAt    time.Time
}

type WalletModel struct {
	ID        string
	OwnerID   string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WalletTransactionModel struct {
	ID            string
	WalletID      string
	Amount        int64
	Type          string
	Status        string
	BalanceBefore int64
	BalanceAfter  int64
	Reference     string
	Metadata      string
	CreatedAt     time.Time
}

type ProductModel struct {
	ID       string
	Title    string
	Price    int64
	WeightKg float64
	Active   bool
}

type CouponModel struct {
	ID          string
	Code        string
	Percent     int
	MinSubtotal int64
	Active      bool
	ExpiresAt   *time.Time
}

package handlers

import (
	"time"

	"github.com/kudimart/checkout-engine/internal/application/services"
	"github.com/kudimart/checkout-engine/internal/domain"
	"github.com/kudimart/checkout-engine/internal/pricing"
)

type checkoutDTO struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	OrderID     *string    `json:"order_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	AbandonedAt *time.Time `json:"abandoned_at,omitempty"`
}

func toCheckoutDTO(c *domain.Checkout) checkoutDTO {
	return checkoutDTO{
		ID:          c.ID,
		Status:      string(c.Status),
		OrderID:     c.OrderID,
		CreatedAt:   c.CreatedAt,
		CompletedAt: c.CompletedAt,
		AbandonedAt: c.AbandonedAt,
	}
}

type addressDTO struct {
	Line1 string `json:"line1"`
	City  string `json:"city"`
	State string `json:"state"`
	Zone  string `json:"zone"`
}

func (a addressDTO) toDomain() domain.Address {
	return domain.Address{Line1: a.Line1, City: a.City, State: a.State, Zone: a.Zone}
}

func toAddressDTO(a domain.Address) addressDTO {
	return addressDTO{Line1: a.Line1, City: a.City, State: a.State, Zone: a.Zone}
}

type orderItemDTO struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

type orderDTO struct {
	ID               string         `json:"id"`
	OrderNumber      string         `json:"order_number"`
	Items            []orderItemDTO `json:"items"`
	Subtotal         int64          `json:"subtotal"`
	Tax              int64          `json:"tax"`
	ShippingFee      int64          `json:"shipping_fee"`
	Discount         int64          `json:"discount"`
	Total            int64          `json:"total"`
	WeightKg         string         `json:"weight_kg"`
	Status           string         `json:"status"`
	PaymentStatus    string         `json:"payment_status"`
	PaymentMethod    string         `json:"payment_method"`
	PaymentReference string         `json:"payment_reference,omitempty"`
	ShippingAddress  addressDTO     `json:"shipping_address"`
	BillingAddress   addressDTO     `json:"billing_address"`
	CreatedAt        time.Time      `json:"created_at"`
	ProcessedAt      *time.Time     `json:"processed_at,omitempty"`
}

func toOrderDTO(o *domain.Order) orderDTO {
	items := make([]orderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemDTO{
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	return orderDTO{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		Items:            items,
		Subtotal:         o.Subtotal,
		Tax:              o.Tax,
		ShippingFee:      o.ShippingFee,
		Discount:         o.Discount,
		Total:            o.Total,
		WeightKg:         o.Weight.String(),
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		PaymentMethod:    string(o.PaymentMethod),
		PaymentReference: o.PaymentReference,
		ShippingAddress:  toAddressDTO(o.ShippingAddress),
		BillingAddress:   toAddressDTO(o.BillingAddress),
		CreatedAt:        o.CreatedAt,
		ProcessedAt:      o.ProcessedAt,
	}
}

type invoiceDTO struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	TotalAmount   int64      `json:"total_amount"`
	PaidAmount    int64      `json:"paid_amount"`
	BalanceAmount int64      `json:"balance_amount"`
	Status        string     `json:"status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

func toInvoiceDTO(i *domain.Invoice) *invoiceDTO {
	if i == nil {
		return nil
	}
	return &invoiceDTO{
		ID:            i.ID,
		InvoiceNumber: i.InvoiceNumber,
		TotalAmount:   i.TotalAmount,
		PaidAmount:    i.PaidAmount,
		BalanceAmount: i.BalanceAmount,
		Status:        string(i.Status),
		PaidAt:        i.PaidAt,
	}
}

type warningDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toWarningDTOs(warnings []pricing.Warning) []warningDTO {
	out := make([]warningDTO, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, warningDTO{Code: warning.Code, Message: warning.Message})
	}
	return out
}

type verificationDTO struct {
	Reference   string `json:"reference"`
	Outcome     string `json:"outcome"`
	OrderID     string `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	Applied     bool   `json:"applied"`
}

func toVerificationDTO(v *services.VerificationResult) verificationDTO {
	return verificationDTO{
		Reference:   v.Reference,
		Outcome:     string(v.Outcome),
		OrderID:     v.OrderID,
		OrderNumber: v.OrderNumber,
		Applied:     v.Applied,
	}
}

type walletTransactionDTO struct {
	Reference string    `json:"reference"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type walletDTO struct {
	Balance      int64                  `json:"balance"`
	Transactions []walletTransactionDTO `json:"transactions"`
}

func toWalletDTO(wallet *domain.Wallet, transactions []*domain.WalletTransaction) walletDTO {
	dtos := make([]walletTransactionDTO, 0, len(transactions))
	for _, tx := range transactions {
		dtos = append(dtos, walletTransactionDTO{
			Reference: tx.Reference,
			Type:      string(tx.Type),
			Status:    string(tx.Status),
			Amount:    tx.Amount,
			CreatedAt: tx.CreatedAt,
		})
	}
	return walletDTO{Balance: wallet.Balance, Transactions: dtos}
}

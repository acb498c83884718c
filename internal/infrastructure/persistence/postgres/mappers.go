package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kudimart/checkout-engine/internal/domain"
)

// toCheckoutModel: maps domain entity to db model
func toCheckoutModel(c *domain.Checkout) (*CheckoutModel, error) {
	lines := make([]checkoutLineJSON, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, checkoutLineJSON{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout lines: %w", err)
	}

	return &CheckoutModel{
		ID:            c.ID,
		OwnerID:       c.OwnerID,
		Lines:         raw,
		CouponID:      c.CouponID,
		Status:        string(c.Status),
		PaymentStatus: string(c.PaymentStatus),
		OrderID:       c.OrderID,
		CreatedAt:     c.CreatedAt,
		CompletedAt:   c.CompletedAt,
		AbandonedAt:   c.AbandonedAt,
	}, nil
}

// toCheckoutDomain: maps db model to domain entity
func toCheckoutDomain(m CheckoutModel) (*domain.Checkout, error) {
	var lines []checkoutLineJSON
	if err := json.Unmarshal(m.Lines, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal checkout lines: %w", err)
	}

	domainLines := make([]domain.CheckoutLine, 0, len(lines))
	for _, l := range lines {
		domainLines = append(domainLines, domain.CheckoutLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	return &domain.Checkout{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		Lines:         domainLines,
		CouponID:      m.CouponID,
		Status:        domain.CheckoutStatus(m.Status),
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		OrderID:       m.OrderID,
		CreatedAt:     m.CreatedAt,
		CompletedAt:   m.CompletedAt,
		AbandonedAt:   m.AbandonedAt,
	}, nil
}

func toOrderModel(o *domain.Order) (*OrderModel, error) {
	items := make([]orderItemJSON, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemJSON{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}

	weight, _ := o.Weight.Float64()

	shipping, err := marshalAddress(o.ShippingAddress)
	if err != nil {
		return nil, err
	}
	billing, err := marshalAddress(o.BillingAddress)
	if err != nil {
		return nil, err
	}

	// The unique index on payment_reference only works if unreferenced
	// orders store NULL rather than "".
	var reference *string
	if o.PaymentReference != "" {
		reference = &o.PaymentReference
	}

	return &OrderModel{
		ID:               o.ID,
		OwnerID:          o.OwnerID,
		OrderNumber:      o.OrderNumber,
		Items:            raw,
		Subtotal:         o.Subtotal,
		Tax:              o.Tax,
		ShippingFee:      o.ShippingFee,
		Discount:         o.Discount,
		Total:            o.Total,
		WeightKg:         weight,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		PaymentMethod:    string(o.PaymentMethod),
		PaymentReference: reference,
		TransactionID:    o.TransactionID,
		ShippingAddress:  shipping,
		BillingAddress:   billing,
		CreatedAt:        o.CreatedAt,
		ProcessedAt:      o.ProcessedAt,
	}, nil
}

func marshalAddress(a domain.Address) ([]byte, error) {
	raw, err := json.Marshal(addressJSON{Line1: a.Line1, City: a.City, State: a.State, Zone: a.Zone})
	if err != nil {
		return nil, fmt.Errorf("marshal address: %w", err)
	}
	return raw, nil
}

func unmarshalAddress(raw []byte) (domain.Address, error) {
	if len(raw) == 0 {
		return domain.Address{}, nil
	}
	var a addressJSON
	if err := json.Unmarshal(raw, &a); err != nil {
		return domain.Address{}, fmt.Errorf("unmarshal address: %w", err)
	}
	return domain.Address{Line1: a.Line1, City: a.City, State: a.State, Zone: a.Zone}, nil
}

func toOrderDomain(m OrderModel) (*domain.Order, error) {
	var items []orderItemJSON
	if err := json.Unmarshal(m.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}

	domainItems := make([]domain.OrderItem, 0, len(items))
	for _, it := range items {
		domainItems = append(domainItems, domain.OrderItem{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}

	var reference string
	if m.PaymentReference != nil {
		reference = *m.PaymentReference
	}

	shipping, err := unmarshalAddress(m.ShippingAddress)
	if err != nil {
		return nil, err
	}
	billing, err := unmarshalAddress(m.BillingAddress)
	if err != nil {
		return nil, err
	}

	return &domain.Order{
		ID:               m.ID,
		OwnerID:          m.OwnerID,
		OrderNumber:      m.OrderNumber,
		Items:            domainItems,
		Subtotal:         m.Subtotal,
		Tax:              m.Tax,
		ShippingFee:      m.ShippingFee,
		Discount:         m.Discount,
		Total:            m.Total,
		Weight:           decimal.NewFromFloat(m.WeightKg),
		Status:           domain.OrderStatus(m.Status),
		PaymentStatus:    domain.PaymentStatus(m.PaymentStatus),
		PaymentMethod:    domain.PaymentMethod(m.PaymentMethod),
		PaymentReference: reference,
		TransactionID:    m.TransactionID,
		ShippingAddress:  shipping,
		BillingAddress:   billing,
		CreatedAt:        m.CreatedAt,
		ProcessedAt:      m.ProcessedAt,
	}, nil
}

func toInvoiceModel(i *domain.Invoice) *InvoiceModel {
	return &InvoiceModel{
		ID:            i.ID,
		OrderID:       i.OrderID,
		InvoiceNumber: i.InvoiceNumber,
		TotalAmount:   i.TotalAmount,
		PaidAmount:    i.PaidAmount,
		BalanceAmount: i.BalanceAmount,
		Status:        string(i.Status),
		PaymentStatus: string(i.PaymentStatus),
		CreatedAt:     i.CreatedAt,
		PaidAt:        i.PaidAt,
	}
}

func toInvoiceDomain(m InvoiceModel) *domain.Invoice {
	return &domain.Invoice{
		ID:            m.ID,
		OrderID:       m.OrderID,
		InvoiceNumber: m.InvoiceNumber,
		TotalAmount:   m.TotalAmount,
		PaidAmount:    m.PaidAmount,
		BalanceAmount: m.BalanceAmount,
		Status:        domain.InvoiceStatus(m.Status),
		PaymentStatus: domain.PaymentStatus(m.PaymentStatus),
		CreatedAt:     m.CreatedAt,
		PaidAt:        m.PaidAt,
	}
}

func toWalletDomain(m WalletModel) *domain.Wallet {
	return &domain.Wallet{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Balance:   m.Balance,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toWalletTransactionModel(t *domain.WalletTransaction) *WalletTransactionModel {
	return &WalletTransactionModel{
		ID:            t.ID,
		WalletID:      t.WalletID,
		Amount:        t.Amount,
		Type:          string(t.Type),
		Status:        string(t.Status),
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		Reference:     t.Reference,
		Metadata:      t.Metadata,
		CreatedAt:     t.CreatedAt,
	}
}

func toWalletTransactionDomain(m WalletTransactionModel) *domain.WalletTransaction {
	return &domain.WalletTransaction{
		ID:            m.ID,
		WalletID:      m.WalletID,
		Amount:        m.Amount,
		Type:          domain.WalletTransactionType(m.Type),
		Status:        domain.WalletTransactionStatus(m.Status),
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		Reference:     m.Reference,
		Metadata:      m.Metadata,
		CreatedAt:     m.CreatedAt,
	}
}

func toProductDomain(m ProductModel) *domain.Product {
	return &domain.Product{
		ID:       m.ID,
		Title:    m.Title,
		Price:    m.Price,
		WeightKg: decimal.NewFromFloat(m.WeightKg),
		Active:   m.Active,
	}
}

func toCouponDomain(m CouponModel) *domain.Coupon {
	return &domain.Coupon{
		ID:          m.ID,
		Code:        m.Code,
		Percent:     m.Percent,
		MinSubtotal: m.MinSubtotal,
		Active:      m.Active,
		ExpiresAt:   m.ExpiresAt,
	}
}

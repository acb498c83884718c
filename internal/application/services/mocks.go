package services

import (
	"context"
	"sync"
	"time"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/domain"
	"github.com/kudimart/checkout-engine/internal/gateway"
	"github.com/kudimart/checkout-engine/internal/infrastructure/persistence/postgres"
	"github.com/kudimart/checkout-engine/internal/notify"
)

// In-memory store doubles. Defaults behave like the real repositories,
// including not-found sentinels and unique reference enforcement; any
// Fn field overrides one method.

// MockCheckoutStore
type MockCheckoutStore struct {
	mu        sync.RWMutex
	checkouts map[string]*domain.Checkout

	CreateFn            func(ctx context.Context, checkout *domain.Checkout) error
	FindByIDFn          func(ctx context.Context, id string) (*domain.Checkout, error)
	FindByIDForUpdateFn func(ctx context.Context, id string) (*domain.Checkout, error)
	UpdateFn            func(ctx context.Context, checkout *domain.Checkout) error
}

func NewMockCheckoutStore() *MockCheckoutStore {
	return &MockCheckoutStore{checkouts: make(map[string]*domain.Checkout)}
}

func (m *MockCheckoutStore) Create(ctx context.Context, checkout *domain.Checkout) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, checkout)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *checkout
	m.checkouts[checkout.ID] = &cp
	return nil
}

func (m *MockCheckoutStore) FindByID(ctx context.Context, id string) (*domain.Checkout, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.checkouts[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, postgres.ErrCheckoutNotFound
}

func (m *MockCheckoutStore) FindByIDForUpdate(ctx context.Context, id string) (*domain.Checkout, error) {
	if m.FindByIDForUpdateFn != nil {
		return m.FindByIDForUpdateFn(ctx, id)
	}
	return m.FindByID(ctx, id)
}

func (m *MockCheckoutStore) FindByOrderIDForUpdate(ctx context.Context, orderID string) (*domain.Checkout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.checkouts {
		if c.OrderID != nil && *c.OrderID == orderID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, postgres.ErrCheckoutNotFound
}

func (m *MockCheckoutStore) FindByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Checkout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Checkout
	for _, c := range m.checkouts {
		if c.OwnerID == ownerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockCheckoutStore) Update(ctx context.Context, checkout *domain.Checkout) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, checkout)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checkouts[checkout.ID]; !ok {
		return postgres.ErrCheckoutNotFound
	}
	cp := *checkout
	m.checkouts[checkout.ID] = &cp
	return nil
}

// MockOrderStore
type MockOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	CreateFn              func(ctx context.Context, order *domain.Order) error
	FindByReferenceFn     func(ctx context.Context, reference string) (*domain.Order, error)
	FindStalePendingFn    func(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error)
	UpdateFn              func(ctx context.Context, order *domain.Order) error
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{orders: make(map[string]*domain.Order)}
}

func (m *MockOrderStore) Create(ctx context.Context, order *domain.Order) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *MockOrderStore) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, postgres.ErrOrderNotFound
}

func (m *MockOrderStore) FindByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	return m.FindByID(ctx, id)
}

func (m *MockOrderStore) FindByReference(ctx context.Context, reference string) (*domain.Order, error) {
	if m.FindByReferenceFn != nil {
		return m.FindByReferenceFn(ctx, reference)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.PaymentReference == reference {
			cp := *o
			return &cp, nil
		}
	}
	return nil, postgres.ErrOrderNotFound
}

func (m *MockOrderStore) FindByReferenceForUpdate(ctx context.Context, reference string) (*domain.Order, error) {
	return m.FindByReference(ctx, reference)
}

func (m *MockOrderStore) FindByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.OwnerID == ownerID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockOrderStore) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error) {
	if m.FindStalePendingFn != nil {
		return m.FindStalePendingFn(ctx, cutoff, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.PaymentStatus != domain.PaymentPending || !o.CreatedAt.Before(cutoff) {
			continue
		}
		// wallet and bank transfer orders have no provider to re-verify
		if o.PaymentMethod != domain.MethodCard && o.PaymentMethod != domain.MethodMobileWallet {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockOrderStore) Update(ctx context.Context, order *domain.Order) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return postgres.ErrOrderNotFound
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

// MockInvoiceStore
type MockInvoiceStore struct {
	mu       sync.RWMutex
	invoices map[string]*domain.Invoice
	payments map[string]*domain.InvoicePayment

	CreatePaymentFn func(ctx context.Context, payment *domain.InvoicePayment) error
}

func NewMockInvoiceStore() *MockInvoiceStore {
	return &MockInvoiceStore{
		invoices: make(map[string]*domain.Invoice),
		payments: make(map[string]*domain.InvoicePayment),
	}
}

func (m *MockInvoiceStore) Create(ctx context.Context, invoice *domain.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *invoice
	m.invoices[invoice.ID] = &cp
	return nil
}

func (m *MockInvoiceStore) FindByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, i := range m.invoices {
		if i.OrderID == orderID {
			cp := *i
			return &cp, nil
		}
	}
	return nil, postgres.ErrInvoiceNotFound
}

func (m *MockInvoiceStore) FindByOrderIDForUpdate(ctx context.Context, orderID string) (*domain.Invoice, error) {
	return m.FindByOrderID(ctx, orderID)
}

func (m *MockInvoiceStore) Update(ctx context.Context, invoice *domain.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[invoice.ID]; !ok {
		return postgres.ErrInvoiceNotFound
	}
	cp := *invoice
	m.invoices[invoice.ID] = &cp
	return nil
}

func (m *MockInvoiceStore) CreatePayment(ctx context.Context, payment *domain.InvoicePayment) error {
	if m.CreatePaymentFn != nil {
		return m.CreatePaymentFn(ctx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[payment.Reference]; ok {
		return domain.NewDuplicateReferenceError(payment.Reference)
	}
	cp := *payment
	m.payments[payment.Reference] = &cp
	return nil
}

func (m *MockInvoiceStore) FindPaymentByReference(ctx context.Context, reference string) (*domain.InvoicePayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[reference]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, postgres.ErrInvoiceNotFound
}

// MockWalletStore
type MockWalletStore struct {
	mu           sync.RWMutex
	wallets      map[string]*domain.Wallet
	transactions map[string]*domain.WalletTransaction

	CreateTransactionFn func(ctx context.Context, tx *domain.WalletTransaction) error
}

func NewMockWalletStore() *MockWalletStore {
	return &MockWalletStore{
		wallets:      make(map[string]*domain.Wallet),
		transactions: make(map[string]*domain.WalletTransaction),
	}
}

func (m *MockWalletStore) Create(ctx context.Context, wallet *domain.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *wallet
	m.wallets[wallet.ID] = &cp
	return nil
}

func (m *MockWalletStore) FindByOwner(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.wallets {
		if w.OwnerID == ownerID {
			cp := *w
			return &cp, nil
		}
	}
	return nil, postgres.ErrWalletNotFound
}

func (m *MockWalletStore) FindByOwnerForUpdate(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	return m.FindByOwner(ctx, ownerID)
}

func (m *MockWalletStore) FindByIDForUpdate(ctx context.Context, id string) (*domain.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.wallets[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, postgres.ErrWalletNotFound
}

func (m *MockWalletStore) UpdateBalance(ctx context.Context, wallet *domain.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.wallets[wallet.ID]; !ok {
		return postgres.ErrWalletNotFound
	}
	cp := *wallet
	m.wallets[wallet.ID] = &cp
	return nil
}

func (m *MockWalletStore) CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	if m.CreateTransactionFn != nil {
		return m.CreateTransactionFn(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[tx.Reference]; ok {
		return domain.NewDuplicateReferenceError(tx.Reference)
	}
	cp := *tx
	m.transactions[tx.Reference] = &cp
	return nil
}

func (m *MockWalletStore) FindTransactionByReference(ctx context.Context, reference string) (*domain.WalletTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.transactions[reference]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, postgres.ErrWalletTransactionNotFound
}

func (m *MockWalletStore) FindTransactionByReferenceForUpdate(ctx context.Context, reference string) (*domain.WalletTransaction, error) {
	return m.FindTransactionByReference(ctx, reference)
}

func (m *MockWalletStore) FindTransactionsByWallet(ctx context.Context, walletID string, limit, offset int) ([]*domain.WalletTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.WalletTransaction
	for _, t := range m.transactions {
		if t.WalletID == walletID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockWalletStore) UpdateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[tx.Reference]; !ok {
		return postgres.ErrWalletTransactionNotFound
	}
	cp := *tx
	m.transactions[tx.Reference] = &cp
	return nil
}

// MockCatalogStore
type MockCatalogStore struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	coupons  map[string]*domain.Coupon

	FindProductFn func(ctx context.Context, id string) (*domain.Product, error)
}

func NewMockCatalogStore() *MockCatalogStore {
	return &MockCatalogStore{
		products: make(map[string]*domain.Product),
		coupons:  make(map[string]*domain.Coupon),
	}
}

func (m *MockCatalogStore) AddProduct(p *domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *MockCatalogStore) AddCoupon(c *domain.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[c.ID] = c
}

func (m *MockCatalogStore) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	if m.FindProductFn != nil {
		return m.FindProductFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, postgres.ErrProductNotFound
}

func (m *MockCatalogStore) FindCoupon(ctx context.Context, id string) (*domain.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.coupons[id]; ok {
		return c, nil
	}
	return nil, postgres.ErrCouponNotFound
}

func (m *MockCatalogStore) FindCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.coupons {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, postgres.ErrCouponNotFound
}

// MockAtomic routes the closure straight to the backing mock stores.
// No transactional semantics; unit tests assert end state only.
type MockAtomic struct {
	Stores *application.Stores

	WithTransactionFn func(ctx context.Context, fn func(ctx context.Context, stores *application.Stores) error) error
}

func NewMockAtomic(checkouts *MockCheckoutStore, orders *MockOrderStore, invoices *MockInvoiceStore, wallets *MockWalletStore) *MockAtomic {
	return &MockAtomic{
		Stores: &application.Stores{
			Checkouts: checkouts,
			Orders:    orders,
			Invoices:  invoices,
			Wallets:   wallets,
		},
	}
}

func (m *MockAtomic) WithTransaction(ctx context.Context, fn func(ctx context.Context, stores *application.Stores) error) error {
	if m.WithTransactionFn != nil {
		return m.WithTransactionFn(ctx, fn)
	}
	return fn(ctx, m.Stores)
}

// MockGateway
type MockGateway struct {
	mu     sync.Mutex
	calls  map[string]int
	Method domain.PaymentMethod

	InitiateFn          func(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResult, error)
	VerifyFn            func(ctx context.Context, reference string) (*gateway.VerifyResult, error)
	ValidateSignatureFn func(rawBody []byte, signatureHeader string) bool
	ParseWebhookFn      func(rawBody []byte) (*gateway.WebhookEvent, error)
}

func NewMockGateway(method domain.PaymentMethod) *MockGateway {
	return &MockGateway{Method: method, calls: make(map[string]int)}
}

func (m *MockGateway) inc(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
}

func (m *MockGateway) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockGateway) Name() domain.PaymentMethod { return m.Method }

func (m *MockGateway) Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResult, error) {
	m.inc("Initiate")
	if m.InitiateFn != nil {
		return m.InitiateFn(ctx, req)
	}
	return &gateway.InitiateResult{
		Reference:   "REF-" + req.OrderID,
		RedirectURL: "https://pay.example/" + req.OrderID,
	}, nil
}

func (m *MockGateway) Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	m.inc("Verify")
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, reference)
	}
	return &gateway.VerifyResult{
		Outcome:               gateway.OutcomeSuccess,
		Reference:             reference,
		ProviderTransactionID: "txn-1",
	}, nil
}

func (m *MockGateway) ValidateSignature(rawBody []byte, signatureHeader string) bool {
	if m.ValidateSignatureFn != nil {
		return m.ValidateSignatureFn(rawBody, signatureHeader)
	}
	return true
}

func (m *MockGateway) SignatureHeader() string { return "X-Test-Signature" }

func (m *MockGateway) ParseWebhook(rawBody []byte) (*gateway.WebhookEvent, error) {
	if m.ParseWebhookFn != nil {
		return m.ParseWebhookFn(rawBody)
	}
	return &gateway.WebhookEvent{Reference: string(rawBody), ClaimedOutcome: gateway.OutcomeSuccess}, nil
}

var _ gateway.PaymentGateway = (*MockGateway)(nil)

// MockNotifier records published events.
type MockNotifier struct {
	mu     sync.Mutex
	Events []notify.Event

	PublishFn func(ctx context.Context, event notify.Event) error
}

func (m *MockNotifier) Publish(ctx context.Context, event notify.Event) error {
	if m.PublishFn != nil {
		return m.PublishFn(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockNotifier) Close() error { return nil }

func (m *MockNotifier) Count(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, e := range m.Events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

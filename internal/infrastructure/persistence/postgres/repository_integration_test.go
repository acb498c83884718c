package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/application/services/testhelpers"
	"github.com/kudimart/checkout-engine/internal/domain"
	"github.com/kudimart/checkout-engine/internal/infrastructure/persistence/postgres"
)

func setupRepos(t *testing.T) (*testhelpers.TestDatabase, context.Context) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	td := testhelpers.SetupTestDatabase(t)
	t.Cleanup(func() { td.Cleanup(t) })
	return td, context.Background()
}

func newTestOrder(t *testing.T, ownerID string) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(
		uuid.New().String(), ownerID,
		[]domain.OrderItem{{ProductID: uuid.New().String(), Title: "Cable", Quantity: 2, UnitPrice: 500_000, LineTotal: 1_000_000}},
		1_000_000, 75_000, 1_200, 0, 1_076_200,
		decimal.NewFromFloat(1.0), domain.MethodCard,
	)
	require.NoError(t, err)
	order.ShippingAddress = domain.Address{Line1: "12 Allen Avenue", City: "Ikeja", State: "Lagos", Zone: "lagos"}
	order.BillingAddress = order.ShippingAddress
	return order
}

func TestOrderRepository(t *testing.T) {
	td, ctx := setupRepos(t)
	orders := postgres.NewOrderRepository(td.DB)

	t.Run("round-trips an order", func(t *testing.T) {
		order := newTestOrder(t, "owner-1")
		order.PaymentReference = "PSK-" + uuid.New().String()
		require.NoError(t, orders.Create(ctx, order))

		found, err := orders.FindByReference(ctx, order.PaymentReference)
		require.NoError(t, err)
		assert.Equal(t, order.OrderNumber, found.OrderNumber)
		assert.Equal(t, order.Total, found.Total)
		assert.Equal(t, domain.PaymentPending, found.PaymentStatus)
		assert.Len(t, found.Items, 1)
		assert.Equal(t, order.ShippingAddress, found.ShippingAddress)
		assert.Equal(t, order.BillingAddress, found.BillingAddress)
	})

	t.Run("duplicate payment reference is a unique violation", func(t *testing.T) {
		reference := "PSK-" + uuid.New().String()

		first := newTestOrder(t, "owner-1")
		first.PaymentReference = reference
		require.NoError(t, orders.Create(ctx, first))

		second := newTestOrder(t, "owner-1")
		second.PaymentReference = reference
		err := orders.Create(ctx, second)
		require.Error(t, err)
		assert.True(t, postgres.IsUniqueViolation(err))
	})

	t.Run("stale pending scan excludes settled and manual orders", func(t *testing.T) {
		stale := newTestOrder(t, "owner-stale")
		stale.PaymentReference = "PSK-" + uuid.New().String()
		require.NoError(t, orders.Create(ctx, stale))

		settled := newTestOrder(t, "owner-stale")
		settled.PaymentReference = "PSK-" + uuid.New().String()
		require.NoError(t, settled.MarkPaid("txn-1", time.Now()))
		require.NoError(t, orders.Create(ctx, settled))

		found, err := orders.FindStalePending(ctx, time.Now().Add(time.Minute), 10)
		require.NoError(t, err)

		ids := make(map[string]bool, len(found))
		for _, o := range found {
			ids[o.ID] = true
		}
		assert.True(t, ids[stale.ID])
		assert.False(t, ids[settled.ID])
	})
}

func TestInvoiceRepository(t *testing.T) {
	td, ctx := setupRepos(t)
	orders := postgres.NewOrderRepository(td.DB)
	invoices := postgres.NewInvoiceRepository(td.DB)

	order := newTestOrder(t, "owner-1")
	require.NoError(t, orders.Create(ctx, order))

	invoice, err := domain.NewInvoice(uuid.New().String(), order.ID, order.Total)
	require.NoError(t, err)
	require.NoError(t, invoices.Create(ctx, invoice))

	t.Run("settles and records the payment", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, invoice.Settle(now))
		require.NoError(t, invoices.Update(ctx, invoice))

		payment := &domain.InvoicePayment{
			ID:            uuid.New().String(),
			InvoiceID:     invoice.ID,
			Amount:        order.Total,
			Gateway:       "card",
			Reference:     "PSK-" + uuid.New().String(),
			TransactionID: "txn-1",
			VerifiedAt:    now,
		}
		require.NoError(t, invoices.CreatePayment(ctx, payment))

		found, err := invoices.FindByOrderID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), found.BalanceAmount)
		assert.Equal(t, found.TotalAmount, found.PaidAmount)
	})

	t.Run("second settlement with the same reference is rejected", func(t *testing.T) {
		reference := "PSK-" + uuid.New().String()
		payment := &domain.InvoicePayment{
			ID:         uuid.New().String(),
			InvoiceID:  invoice.ID,
			Amount:     100,
			Gateway:    "card",
			Reference:  reference,
			VerifiedAt: time.Now(),
		}
		require.NoError(t, invoices.CreatePayment(ctx, payment))

		dup := *payment
		dup.ID = uuid.New().String()
		err := invoices.CreatePayment(ctx, &dup)
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeDuplicateReference))
	})
}

func TestWalletRepository(t *testing.T) {
	td, ctx := setupRepos(t)
	wallets := postgres.NewWalletRepository(td.DB)

	wallet := testhelpers.SeedWallet(t, td.DB, "owner-1", 500_000)

	t.Run("ledger reference is unique", func(t *testing.T) {
		reference := "WAL-" + uuid.New().String()

		tx1, err := domain.NewWalletTransaction(uuid.New().String(), wallet.ID, 100, domain.WalletDebit, reference)
		require.NoError(t, err)
		require.NoError(t, wallets.CreateTransaction(ctx, tx1))

		tx2, err := domain.NewWalletTransaction(uuid.New().String(), wallet.ID, 100, domain.WalletDebit, reference)
		require.NoError(t, err)
		err = wallets.CreateTransaction(ctx, tx2)
		require.Error(t, err)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeDuplicateReference))
	})

	t.Run("balance update round-trips", func(t *testing.T) {
		locked, err := wallets.FindByIDForUpdate(ctx, wallet.ID)
		require.NoError(t, err)

		_, _, err = locked.ApplyDebit(200_000)
		require.NoError(t, err)
		require.NoError(t, wallets.UpdateBalance(ctx, locked))

		found, err := wallets.FindByOwner(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, int64(300_000), found.Balance)
	})
}

func TestTransactionCoordinator(t *testing.T) {
	td, ctx := setupRepos(t)
	coordinator := postgres.NewTransactionCoordinator(td.DB)
	orders := postgres.NewOrderRepository(td.DB)

	t.Run("rolls back everything on error", func(t *testing.T) {
		order := newTestOrder(t, "owner-rb")

		err := coordinator.WithTransaction(ctx, func(ctx context.Context, stores *application.Stores) error {
			if err := stores.Orders.Create(ctx, order); err != nil {
				return err
			}
			return errors.New("boom")
		})
		require.Error(t, err)

		_, err = orders.FindByID(ctx, order.ID)
		assert.ErrorIs(t, err, postgres.ErrOrderNotFound)
	})

	t.Run("commits on success", func(t *testing.T) {
		order := newTestOrder(t, "owner-ok")

		err := coordinator.WithTransaction(ctx, func(ctx context.Context, stores *application.Stores) error {
			return stores.Orders.Create(ctx, order)
		})
		require.NoError(t, err)

		found, err := orders.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderNumber, found.OrderNumber)
	})
}

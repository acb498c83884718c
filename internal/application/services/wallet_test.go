package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/domain"
	"github.com/kudimart/checkout-engine/internal/gateway"
	"github.com/kudimart/checkout-engine/internal/notify"
)

func seedWallet(t *testing.T, store *MockWalletStore, ownerID string, balance int64) *domain.Wallet {
	t.Helper()
	now := time.Now()
	wallet := &domain.Wallet{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.Create(context.Background(), wallet))
	return wallet
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)

	created, err := f.walletSvc.GetOrCreate(ctx, "owner-9")
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.Balance)

	again, err := f.walletSvc.GetOrCreate(ctx, "owner-9")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
}

func TestInitiateDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending credit without moving the balance", func(t *testing.T) {
		f := newCheckoutFixture(t)

		res, err := f.walletSvc.InitiateDeposit(ctx, DepositCommand{
			OwnerID:       "owner-1",
			Amount:        250_000,
			CustomerEmail: "buyer@example.com",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Reference)
		assert.NotEmpty(t, res.RedirectURL)

		wallet, err := f.wallets.FindByOwner(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), wallet.Balance)

		ledger, err := f.wallets.FindTransactionByReference(ctx, res.Reference)
		require.NoError(t, err)
		assert.Equal(t, domain.WalletTxPending, ledger.Status)
		assert.Equal(t, domain.WalletCredit, ledger.Type)
		assert.Equal(t, int64(250_000), ledger.Amount)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		f := newCheckoutFixture(t)

		_, err := f.walletSvc.InitiateDeposit(ctx, DepositCommand{OwnerID: "owner-1", Amount: 0})
		svcErr, ok := application.IsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, application.ErrCodeValidation, svcErr.Code)
	})
}

func TestSettleDeposit(t *testing.T) {
	ctx := context.Background()

	initiate := func(t *testing.T, f *checkoutFixture) string {
		res, err := f.walletSvc.InitiateDeposit(ctx, DepositCommand{OwnerID: "owner-1", Amount: 250_000})
		require.NoError(t, err)
		return res.Reference
	}

	t.Run("verified success credits the balance once", func(t *testing.T) {
		f := newCheckoutFixture(t)
		reference := initiate(t, f)

		require.NoError(t, f.walletSvc.SettleDeposit(ctx, reference, "txn-9", gateway.OutcomeSuccess))

		wallet, err := f.wallets.FindByOwner(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, int64(250_000), wallet.Balance)

		ledger, err := f.wallets.FindTransactionByReference(ctx, reference)
		require.NoError(t, err)
		assert.Equal(t, domain.WalletTxSuccess, ledger.Status)
		assert.Equal(t, int64(0), ledger.BalanceBefore)
		assert.Equal(t, int64(250_000), ledger.BalanceAfter)
		assert.Equal(t, "txn-9", ledger.Metadata)

		// Redelivery is a no-op.
		require.NoError(t, f.walletSvc.SettleDeposit(ctx, reference, "txn-9", gateway.OutcomeSuccess))
		wallet, err = f.wallets.FindByOwner(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, int64(250_000), wallet.Balance)
		assert.Equal(t, 1, f.notifier.Count(notify.EventDepositSettled))
	})

	t.Run("verified failure marks the credit failed", func(t *testing.T) {
		f := newCheckoutFixture(t)
		reference := initiate(t, f)

		require.NoError(t, f.walletSvc.SettleDeposit(ctx, reference, "", gateway.OutcomeFailed))

		wallet, err := f.wallets.FindByOwner(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), wallet.Balance)

		ledger, err := f.wallets.FindTransactionByReference(ctx, reference)
		require.NoError(t, err)
		assert.Equal(t, domain.WalletTxFailed, ledger.Status)
		assert.Equal(t, 0, f.notifier.Count(notify.EventDepositSettled))
	})

	t.Run("pending outcome is ignored", func(t *testing.T) {
		f := newCheckoutFixture(t)
		reference := initiate(t, f)

		require.NoError(t, f.walletSvc.SettleDeposit(ctx, reference, "", gateway.OutcomePending))

		ledger, err := f.wallets.FindTransactionByReference(ctx, reference)
		require.NoError(t, err)
		assert.Equal(t, domain.WalletTxPending, ledger.Status)
	})
}

func TestDebitForOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("moves funds and writes a settled debit row", func(t *testing.T) {
		f := newCheckoutFixture(t)
		seedWallet(t, f.wallets, "owner-1", 500_000)

		require.NoError(t, f.walletSvc.DebitForOrder(ctx, "owner-1", 300_000, "WAL-d1"))

		wallet, err := f.wallets.FindByOwner(ctx, "owner-1")
		require.NoError(t, err)
		assert.Equal(t, int64(200_000), wallet.Balance)

		ledger, err := f.wallets.FindTransactionByReference(ctx, "WAL-d1")
		require.NoError(t, err)
		assert.Equal(t, domain.WalletDebit, ledger.Type)
		assert.Equal(t, domain.WalletTxSuccess, ledger.Status)
		assert.Equal(t, int64(500_000), ledger.BalanceBefore)
		assert.Equal(t, int64(200_000), ledger.BalanceAfter)

		status, err := f.walletSvc.DebitStatus(ctx, "WAL-d1")
		require.NoError(t, err)
		assert.Equal(t, domain.WalletTxSuccess, status)
	})

	t.Run("insufficient balance leaves the wallet untouched", func(t *testing.T) {
		f := newCheckoutFixture(t)
		seedWallet(t, f.wallets, "owner-1", 100)

		err := f.walletSvc.DebitForOrder(ctx, "owner-1", 300_000, "WAL-d2")
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

		wallet, findErr := f.wallets.FindByOwner(ctx, "owner-1")
		require.NoError(t, findErr)
		assert.Equal(t, int64(100), wallet.Balance)

		_, findErr = f.wallets.FindTransactionByReference(ctx, "WAL-d2")
		assert.Error(t, findErr)
	})

	t.Run("missing wallet reads as insufficient funds", func(t *testing.T) {
		f := newCheckoutFixture(t)

		err := f.walletSvc.DebitForOrder(ctx, "owner-ghost", 300_000, "WAL-d3")
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	})
}

func TestFindOwnedTransaction(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)

	res, err := f.walletSvc.InitiateDeposit(ctx, DepositCommand{OwnerID: "owner-1", Amount: 250_000})
	require.NoError(t, err)

	owned, err := f.walletSvc.FindOwnedTransaction(ctx, "owner-1", res.Reference)
	require.NoError(t, err)
	assert.Equal(t, res.Reference, owned.Reference)

	_, err = f.walletSvc.FindOwnedTransaction(ctx, "owner-2", res.Reference)
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeForbidden, svcErr.Code)

	_, err = f.walletSvc.FindOwnedTransaction(ctx, "owner-1", "REF-GHOST")
	svcErr, ok = application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeNotFound, svcErr.Code)
}

func TestVerifyDeposit(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)

	res, err := f.walletSvc.InitiateDeposit(ctx, DepositCommand{OwnerID: "owner-1", Amount: 250_000})
	require.NoError(t, err)

	result, err := f.reconcile.VerifyDeposit(ctx, "owner-1", res.Reference)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, gateway.OutcomeSuccess, result.Outcome)

	wallet, err := f.wallets.FindByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), wallet.Balance)

	// Verifying again reads the ledger instead of the provider.
	again, err := f.reconcile.VerifyDeposit(ctx, "owner-1", res.Reference)
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.Equal(t, gateway.OutcomeSuccess, again.Outcome)
	assert.Equal(t, 1, f.cardGW.Calls("Verify"))
}

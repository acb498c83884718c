package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kudimart/checkout-engine/internal/application"
	"github.com/kudimart/checkout-engine/internal/domain"
	"github.com/kudimart/checkout-engine/internal/gateway"
	"github.com/kudimart/checkout-engine/internal/infrastructure/persistence/postgres"
	"github.com/kudimart/checkout-engine/internal/notify"
)

// WalletService owns the wallet ledger. Every balance mutation runs
// under a row lock and lands as exactly one ledger row; the unique
// constraint on reference makes redelivered settlements no-ops.
type WalletService struct {
	wallets     application.WalletStore
	tx          application.Atomic
	gateways    *gateway.Registry
	notifier    notify.Notifier
	currency    string
	callbackURL string
	logger      *slog.Logger
}

func NewWalletService(
	wallets application.WalletStore,
	tx application.Atomic,
	gateways *gateway.Registry,
	notifier notify.Notifier,
	currency string,
	callbackURL string,
	logger *slog.Logger,
) *WalletService {
	return &WalletService{
		wallets:     wallets,
		tx:          tx,
		gateways:    gateways,
		notifier:    notifier,
		currency:    currency,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// GetOrCreate returns the owner's wallet, creating an empty one on
// first touch.
func (s *WalletService) GetOrCreate(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	wallet, err := s.wallets.FindByOwner(ctx, ownerID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, postgres.ErrWalletNotFound) {
		return nil, application.NewInternalError(err)
	}

	now := time.Now()
	wallet = &domain.Wallet{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.wallets.Create(ctx, wallet); err != nil {
		// Concurrent first touch: the other writer won, re-read.
		if existing, findErr := s.wallets.FindByOwner(ctx, ownerID); findErr == nil {
			return existing, nil
		}
		return nil, application.NewInternalError(err)
	}
	return wallet, nil
}

// Balance returns the wallet and its most recent ledger rows.
func (s *WalletService) Balance(ctx context.Context, ownerID string, limit, offset int) (*domain.Wallet, []*domain.WalletTransaction, error) {
	wallet, err := s.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}

	transactions, err := s.wallets.FindTransactionsByWallet(ctx, wallet.ID, limit, offset)
	if err != nil {
		return nil, nil, application.NewInternalError(err)
	}
	return wallet, transactions, nil
}

type DepositResult struct {
	Reference   string
	RedirectURL string
	Amount      int64
}

// InitiateDeposit starts a card-funded wallet top-up. The credit stays
// PENDING until the card payment is verified; the balance never moves
// on initiation.
func (s *WalletService) InitiateDeposit(ctx context.Context, cmd DepositCommand) (*DepositResult, error) {
	if cmd.Amount <= 0 {
		return nil, application.NewValidationError("deposit amount must be positive", domain.NewInvalidAmountError(cmd.Amount))
	}

	wallet, err := s.GetOrCreate(ctx, cmd.OwnerID)
	if err != nil {
		return nil, err
	}

	gw, err := s.gateways.Get(domain.MethodCard)
	if err != nil {
		return nil, application.NewGatewayUnavailableError(err)
	}

	res, err := gw.Initiate(ctx, gateway.InitiateRequest{
		OrderID:       wallet.ID,
		OrderNumber:   "DEP-" + wallet.ID[:8],
		OwnerID:       cmd.OwnerID,
		Amount:        cmd.Amount,
		Currency:      s.currency,
		CustomerEmail: cmd.CustomerEmail,
		CallbackURL:   s.callbackURL,
	})
	if err != nil {
		return nil, mapGatewayError(err)
	}

	walletTx, err := domain.NewWalletTransaction(uuid.New().String(), wallet.ID, cmd.Amount, domain.WalletCredit, res.Reference)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if err := s.wallets.CreateTransaction(ctx, walletTx); err != nil {
		return nil, application.NewInternalError(err)
	}

	s.logger.Info("wallet deposit initiated",
		"owner_id", cmd.OwnerID,
		"reference", res.Reference,
		"amount", cmd.Amount,
	)

	return &DepositResult{
		Reference:   res.Reference,
		RedirectURL: res.RedirectURL,
		Amount:      cmd.Amount,
	}, nil
}

// SettleDeposit applies a verified deposit outcome to the ledger. Only
// a PENDING credit moves the balance; anything else is a no-op.
func (s *WalletService) SettleDeposit(ctx context.Context, reference, providerTxID string, outcome gateway.Outcome) error {
	if outcome == gateway.OutcomePending {
		return nil
	}

	var settled *domain.WalletTransaction
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, stores *application.Stores) error {
		walletTx, err := stores.Wallets.FindTransactionByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		if walletTx.Status != domain.WalletTxPending {
			return nil
		}

		if outcome == gateway.OutcomeFailed {
			if err := walletTx.MarkFailed(); err != nil {
				return err
			}
			return stores.Wallets.UpdateTransaction(ctx, walletTx)
		}

		wallet, err := stores.Wallets.FindByIDForUpdate(ctx, walletTx.WalletID)
		if err != nil {
			return err
		}
		before, after, err := wallet.ApplyCredit(walletTx.Amount)
		if err != nil {
			return err
		}
		if err := walletTx.MarkSuccess(before, after); err != nil {
			return err
		}
		walletTx.Metadata = providerTxID

		if err := stores.Wallets.UpdateBalance(ctx, wallet); err != nil {
			return err
		}
		if err := stores.Wallets.UpdateTransaction(ctx, walletTx); err != nil {
			return err
		}
		settled = walletTx
		return nil
	})
	if err != nil {
		return err
	}

	if settled != nil {
		s.logger.Info("wallet deposit settled",
			"reference", reference,
			"balance_after", settled.BalanceAfter,
		)
		s.publish(ctx, notify.Event{
			Type:       notify.EventDepositSettled,
			Reference:  reference,
			Amount:     settled.Amount,
			Currency:   s.currency,
			OccurredAt: time.Now(),
		})
	}
	return nil
}

// FindTransaction looks up a ledger row by gateway reference.
func (s *WalletService) FindTransaction(ctx context.Context, reference string) (*domain.WalletTransaction, error) {
	return s.wallets.FindTransactionByReference(ctx, reference)
}

// FindOwnedTransaction looks up a ledger row and enforces that it
// belongs to the caller's wallet.
func (s *WalletService) FindOwnedTransaction(ctx context.Context, ownerID, reference string) (*domain.WalletTransaction, error) {
	walletTx, err := s.wallets.FindTransactionByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, postgres.ErrWalletTransactionNotFound) {
			return nil, application.NewNotFoundError("deposit")
		}
		return nil, application.NewInternalError(err)
	}

	wallet, err := s.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if walletTx.WalletID != wallet.ID {
		return nil, application.NewForbiddenError()
	}
	return walletTx, nil
}

// DebitForOrder moves order funds out of the wallet synchronously.
// The lock, the balance write and the ledger row commit together.
func (s *WalletService) DebitForOrder(ctx context.Context, ownerID string, amount int64, reference string) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context, stores *application.Stores) error {
		wallet, err := stores.Wallets.FindByOwnerForUpdate(ctx, ownerID)
		if err != nil {
			if errors.Is(err, postgres.ErrWalletNotFound) {
				return domain.NewInsufficientFundsError(0, amount)
			}
			return err
		}

		before, after, err := wallet.ApplyDebit(amount)
		if err != nil {
			return err
		}

		walletTx, err := domain.NewWalletTransaction(uuid.New().String(), wallet.ID, amount, domain.WalletDebit, reference)
		if err != nil {
			return err
		}
		if err := walletTx.MarkSuccess(before, after); err != nil {
			return err
		}

		if err := stores.Wallets.CreateTransaction(ctx, walletTx); err != nil {
			return err
		}
		return stores.Wallets.UpdateBalance(ctx, wallet)
	})
}

// DebitStatus reports the ledger status of an order debit.
func (s *WalletService) DebitStatus(ctx context.Context, reference string) (domain.WalletTransactionStatus, error) {
	walletTx, err := s.wallets.FindTransactionByReference(ctx, reference)
	if err != nil {
		return "", err
	}
	return walletTx.Status, nil
}

func (s *WalletService) publish(ctx context.Context, event notify.Event) {
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", "type", event.Type, "error", err)
	}
}

var _ gateway.WalletFunds = (*WalletService)(nil)

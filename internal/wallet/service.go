package wallet

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/pkg/exception"
)

// Config holds wallet onboarding settings.
type Config struct {
	Currency         string
	StartingBalances map[string]decimal.Decimal // keyed by upper-cased role
}

// Service is the only component allowed to mutate wallet balances. Every
// mutating operation runs under an exclusive per-wallet lock for the whole
// read-validate-write-append unit, so operations on the same wallet never
// interleave.
type Service struct {
	cfg   Config
	repo  Repository
	locks *keyedMutex
}

func NewService(cfg Config, repo Repository) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &Service{
		cfg:   cfg,
		repo:  repo,
		locks: newKeyedMutex(),
	}
}

// CreateWallet onboards a user with the starting balance for their role and
// records the matching INITIAL_DEPOSIT entry.
func (s *Service) CreateWallet(ctx context.Context, userID uint64, role string) (*Wallet, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	starting := s.startingBalance(role)
	w := &Wallet{
		UserID:   userID,
		Balance:  starting,
		Currency: s.cfg.Currency,
		Active:   true,
	}
	initial := &LedgerEntry{
		Type:         EntryInitialDeposit,
		Amount:       starting,
		BalanceAfter: starting,
		Description:  "Initial deposit based on " + strings.ToUpper(role) + " account",
		Status:       EntryCompleted,
	}
	if err := s.repo.Create(ctx, w, initial); err != nil {
		return nil, errors.Wrap(err, "create wallet")
	}

	logs.Infof("created wallet for user %d with balance $%s", userID, starting.StringFixed(2))
	return w, nil
}

// Balance returns the current balance for the user's wallet.
func (s *Service) Balance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	w, err := s.repo.ByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

// HasSufficientBalance reports whether the wallet covers the given amount.
func (s *Service) HasSufficientBalance(ctx context.Context, userID uint64, amount decimal.Decimal) (bool, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance.GreaterThanOrEqual(amount), nil
}

// Deposit credits the wallet and appends a DEPOSIT entry.
func (s *Service) Deposit(ctx context.Context, userID uint64, amount decimal.Decimal, description, referenceID string) (*LedgerEntry, error) {
	return s.mutate(ctx, userID, amount, mutation{
		entryType:   EntryDeposit,
		credit:      true,
		description: fallback(description, "Deposit"),
		referenceID: fallback(referenceID, uuid.NewString()),
	})
}

// Withdraw debits the wallet and appends a WITHDRAWAL entry with a negative
// amount.
func (s *Service) Withdraw(ctx context.Context, userID uint64, amount decimal.Decimal, description, referenceID string) (*LedgerEntry, error) {
	return s.mutate(ctx, userID, amount, mutation{
		entryType:   EntryWithdrawal,
		description: fallback(description, "Withdrawal"),
		referenceID: fallback(referenceID, uuid.NewString()),
	})
}

// DeductForPurchase debits the wallet for an order settlement and appends a
// BUY_STOCK entry with a negative amount.
func (s *Service) DeductForPurchase(ctx context.Context, userID uint64, amount decimal.Decimal, description, referenceID string) (*LedgerEntry, error) {
	return s.mutate(ctx, userID, amount, mutation{
		entryType:   EntryBuyStock,
		description: description,
		referenceID: referenceID,
	})
}

// CreditFromSale credits sale proceeds and appends a SELL_STOCK entry.
func (s *Service) CreditFromSale(ctx context.Context, userID uint64, amount decimal.Decimal, description, referenceID string) (*LedgerEntry, error) {
	return s.mutate(ctx, userID, amount, mutation{
		entryType:   EntrySellStock,
		credit:      true,
		description: description,
		referenceID: referenceID,
	})
}

// Transactions returns the wallet's ledger history in creation order.
func (s *Service) Transactions(ctx context.Context, userID uint64) ([]LedgerEntry, error) {
	w, err := s.repo.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.Entries(ctx, w.ID)
}

type mutation struct {
	entryType   EntryType
	credit      bool
	description string
	referenceID string
}

func (s *Service) mutate(ctx context.Context, userID uint64, amount decimal.Decimal, m mutation) (*LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, exception.ErrInvalidAmount
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	w, err := s.repo.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !w.Active {
		return nil, exception.ErrWalletInactive
	}

	signed := amount
	if !m.credit {
		if w.Balance.LessThan(amount) {
			return nil, &exception.InsufficientBalanceError{
				Required:  amount,
				Available: w.Balance,
			}
		}
		signed = amount.Neg()
	}

	w.Balance = w.Balance.Add(signed)
	entry := &LedgerEntry{
		Type:         m.entryType,
		Amount:       signed,
		BalanceAfter: w.Balance,
		Description:  m.description,
		ReferenceID:  m.referenceID,
		Status:       EntryCompleted,
	}
	if err := s.repo.Apply(ctx, w, entry); err != nil {
		return nil, errors.Wrap(err, "apply ledger entry")
	}

	logs.Infof("%s $%s on wallet of user %d, new balance $%s",
		m.entryType, amount.StringFixed(2), userID, w.Balance.StringFixed(2))
	return entry, nil
}

func (s *Service) startingBalance(role string) decimal.Decimal {
	if balance, ok := s.cfg.StartingBalances[strings.ToUpper(role)]; ok {
		return balance
	}
	return decimal.Zero
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

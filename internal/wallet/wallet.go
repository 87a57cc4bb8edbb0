package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet owns a user's cash balance. Balance is mutated only through the
// ledger operations on Service, never directly.
type Wallet struct {
	ID        uint64          `gorm:"primaryKey"`
	UserID    uint64          `gorm:"uniqueIndex;not null"`
	Balance   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Currency  string          `gorm:"size:8;not null"`
	Active    bool            `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryInitialDeposit EntryType = "INITIAL_DEPOSIT"
	EntryDeposit        EntryType = "DEPOSIT"
	EntryWithdrawal     EntryType = "WITHDRAWAL"
	EntryBuyStock       EntryType = "BUY_STOCK"
	EntrySellStock      EntryType = "SELL_STOCK"
)

// EntryStatus is the settlement status of a ledger entry.
type EntryStatus string

const EntryCompleted EntryStatus = "COMPLETED"

// LedgerEntry is one immutable balance-changing event on a wallet.
// Withdrawals and purchase deductions store a negative amount; deposits and
// sale credits store a positive one. BalanceAfter is the wallet balance
// immediately after the entry, so replaying all entries for a wallet in
// creation order reproduces the current balance.
type LedgerEntry struct {
	ID           uint64          `gorm:"primaryKey"`
	WalletID     uint64          `gorm:"index;not null"`
	Type         EntryType       `gorm:"size:32;not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Description  string
	ReferenceID  string          `gorm:"size:64"`
	Status       EntryStatus     `gorm:"size:16;not null"`
	CreatedAt    time.Time
}

package wallet

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"main/pkg/exception"
)

// PGRepository is the PostgreSQL-backed Repository.
type PGRepository struct {
	db *gorm.DB
}

func NewPGRepository(db *gorm.DB) *PGRepository {
	return &PGRepository{db: db}
}

// Migrate creates the wallet tables.
func (r *PGRepository) Migrate() error {
	return r.db.AutoMigrate(&Wallet{}, &LedgerEntry{})
}

func (r *PGRepository) Create(ctx context.Context, w *Wallet, initial *LedgerEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(w).Error; err != nil {
			return err
		}
		if initial == nil {
			return nil
		}
		initial.WalletID = w.ID
		return tx.Create(initial).Error
	})
}

func (r *PGRepository) ByUserID(ctx context.Context, userID uint64) (*Wallet, error) {
	var w Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Apply updates the wallet row and appends the ledger entry in one
// transaction, re-locking the row so the in-process keyed mutex and the
// database agree on serialization.
func (r *PGRepository) Apply(ctx context.Context, w *Wallet, entry *LedgerEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked Wallet
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", w.ID).First(&locked).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return exception.ErrWalletNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&Wallet{}).Where("id = ?", w.ID).
			Update("balance", w.Balance).Error; err != nil {
			return err
		}
		entry.WalletID = w.ID
		return tx.Create(entry).Error
	})
}

func (r *PGRepository) Entries(ctx context.Context, walletID uint64) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

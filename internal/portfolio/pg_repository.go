package portfolio

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

// Migrate creates the portfolio tables.
func (r *PGRepository) Migrate() error {
	return r.db.AutoMigrate(&Portfolio{}, &Holding{})
}

func (r *PGRepository) ByUserID(ctx context.Context, userID uint64) (*Portfolio, error) {
	var p Portfolio
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) Create(ctx context.Context, p *Portfolio) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(p).Error
}

func (r *PGRepository) Holdings(ctx context.Context, portfolioID uint64) ([]Holding, error) {
	var holdings []Holding
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("symbol ASC").
		Find(&holdings).Error
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

func (r *PGRepository) HoldingBySymbol(ctx context.Context, portfolioID uint64, symbol string) (*Holding, error) {
	var h Holding
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ? AND symbol = ?", portfolioID, symbol).
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.ErrHoldingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *PGRepository) SaveHolding(ctx context.Context, p *Portfolio, h *Holding) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(h).Error; err != nil {
			return err
		}
		return tx.Save(p).Error
	})
}

func (r *PGRepository) RemoveHolding(ctx context.Context, p *Portfolio, h *Holding) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(h).Error; err != nil {
			return err
		}
		return tx.Save(p).Error
	})
}

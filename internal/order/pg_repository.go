package order

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"main/pkg/exception"
)

// PGRepository is the PostgreSQL-backed Repository.
type PGRepository struct {
	db *gorm.DB
}

func NewPGRepository(db *gorm.DB) *PGRepository {
	return &PGRepository{db: db}
}

// Migrate creates the orders table.
func (r *PGRepository) Migrate() error {
	return r.db.AutoMigrate(&Order{})
}

func (r *PGRepository) Create(ctx context.Context, o *Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *PGRepository) Update(ctx context.Context, o *Order) error {
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *PGRepository) ByID(ctx context.Context, id uint64) (*Order, error) {
	var o Order
	err := r.db.WithContext(ctx).First(&o, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exception.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) ByUser(ctx context.Context, userID uint64) ([]Order, error) {
	var orders []Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *PGRepository) ByUserAndStatus(ctx context.Context, userID uint64, status Status) ([]Order, error) {
	var orders []Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, status).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

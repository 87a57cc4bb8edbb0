package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio groups a user's holdings. InvestedAmount tracks the sum of the
// holdings' cost basis.
type Portfolio struct {
	ID             uint64          `gorm:"primaryKey"`
	UserID         uint64          `gorm:"uniqueIndex;not null"`
	InvestedAmount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Holding is a user's accumulated position in one symbol, tracked with a
// single weighted-average cost. A holding is deleted when its quantity
// reaches exactly zero and recreated fresh on a later buy.
type Holding struct {
	ID            uint64          `gorm:"primaryKey"`
	PortfolioID   uint64          `gorm:"index:idx_portfolio_symbol,unique;not null"`
	Symbol        string          `gorm:"index:idx_portfolio_symbol,unique;size:16;not null"`
	Quantity      int64           `gorm:"not null"`
	AveragePrice  decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	TotalInvested decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

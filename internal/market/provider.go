package market

import (
	"context"

	"github.com/shopspring/decimal"
)

// Quote is a priced symbol with its display name.
type Quote struct {
	Symbol      string
	CompanyName string
	Price       decimal.Decimal
}

// Provider is the market data contract consumed by order settlement and
// portfolio valuation. Implementations may fail with ErrSymbolNotFound,
// ErrRateLimited or ErrInvalidPrice from pkg/exception.
type Provider interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Quote(ctx context.Context, symbol string) (Quote, error)
}

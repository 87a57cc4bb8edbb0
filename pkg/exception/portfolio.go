package exception

import "errors"

var (
	ErrPortfolioNotFound  = errors.New("portfolio: not found")
	ErrHoldingNotFound    = errors.New("portfolio: holding not found")
	ErrInsufficientShares = errors.New("portfolio: insufficient shares")
)

package exception

import "errors"

var (
	ErrSymbolNotFound = errors.New("market: symbol not found")
	ErrRateLimited    = errors.New("market: rate limited")
	ErrInvalidPrice   = errors.New("market: non-positive price")
)

package exception

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound      = errors.New("wallet: not found")
	ErrWalletExists        = errors.New("wallet: already exists")
	ErrWalletInactive      = errors.New("wallet: inactive")
	ErrInsufficientBalance = errors.New("wallet: insufficient balance")
	ErrInvalidAmount       = errors.New("wallet: amount must be positive")
)

// InsufficientBalanceError carries the amounts involved in a rejected debit.
// It matches ErrInsufficientBalance under errors.Is.
type InsufficientBalanceError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance, required: $%s, available: $%s",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

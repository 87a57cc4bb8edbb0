package exception

import "errors"

var (
	ErrOrderNotFound      = errors.New("order: not found")
	ErrOrderNotOwned      = errors.New("order: not owned by user")
	ErrInvalidOrder       = errors.New("order: invalid request")
	ErrInvalidTransition  = errors.New("order: invalid status transition")
	ErrPricingUnavailable = errors.New("order: pricing unavailable")
)

package order

import (
	"time"

	"github.com/shopspring/decimal"

	"main/pkg/exception"
)

// Type is the order side.
type Type string

const (
	TypeBuy  Type = "BUY"
	TypeSell Type = "SELL"
)

// Status tracks the lifecycle of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusValidating Status = "VALIDATING"
	StatusExecuting  Status = "EXECUTING"
	StatusExecuted   Status = "EXECUTED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions is the single authority on status changes. Every status
// mutation goes through Order.Advance, which consults this table.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusValidating: true,
		StatusFailed:     true,
		StatusCancelled:  true,
	},
	StatusValidating: {
		StatusExecuting: true,
		StatusFailed:    true,
		StatusCancelled: true,
	},
	StatusExecuting: {
		StatusExecuted: true,
		StatusFailed:   true,
	},
}

// Terminal reports whether no transition leaves the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusExecuted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the transition table allows s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	return transitions[s][next]
}

// Order is a user's instruction to trade a quantity of a symbol at the
// currently quoted price. Only the orchestrator advances its status.
type Order struct {
	ID            uint64          `gorm:"primaryKey"`
	UserID        uint64          `gorm:"index;not null"`
	Symbol        string          `gorm:"size:16;not null"`
	Type          Type            `gorm:"column:order_type;size:8;not null"`
	Status        Status          `gorm:"size:16;not null"`
	Quantity      int64           `gorm:"not null"`
	PricePerShare decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Commission    decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Notes         string
	FailureReason string
	CreatedAt     time.Time
	ExecutedAt    *time.Time
}

// Advance moves the order to next, rejecting anything the transition table
// does not list.
func (o *Order) Advance(next Status) error {
	if !o.Status.CanTransitionTo(next) {
		return exception.ErrInvalidTransition
	}
	o.Status = next
	return nil
}

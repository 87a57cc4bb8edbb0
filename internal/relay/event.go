package relay

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// EventTypeOrderExecuted marks the only event the relay carries today.
const EventTypeOrderExecuted = "ORDER_EXECUTED"

// OrderExecuted notifies consumers that an order settled. It carries
// everything the position accumulator needs so consumers never read order
// state back.
type OrderExecuted struct {
	OrderID       uint64          `json:"orderId"`
	UserID        uint64          `json:"userId"`
	Symbol        string          `json:"symbol"`
	OrderType     string          `json:"orderType"`
	Quantity      int64           `json:"quantity"`
	PricePerShare decimal.Decimal `json:"pricePerShare"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	ExecutedAt    time.Time       `json:"executedAt"`
	EventType     string          `json:"eventType"`
}

// Key is the delivery key. Events are partitioned on user+symbol so
// redelivery order is stable per holding, not per order id.
func (e OrderExecuted) Key() string {
	return strconv.FormatUint(e.UserID, 10) + ":" + e.Symbol
}

package portfolio

import (
	"context"
	"errors"

	"github.com/yanun0323/logs"

	"main/internal/relay"
	"main/pkg/exception"
)

// Consumer applies OrderExecuted events to the accumulator. Delivery is
// at-least-once and handlers carry no idempotency key, so a redelivered
// event is applied again; that gap is part of the design, not patched here.
type Consumer struct {
	positions *Service
}

func NewConsumer(positions *Service) *Consumer {
	return &Consumer{positions: positions}
}

// Handle applies one event. Events selling shares the user does not hold
// are logged and dropped, never retried.
func (c *Consumer) Handle(ctx context.Context, e relay.OrderExecuted) error {
	if e.EventType != relay.EventTypeOrderExecuted {
		logs.Infof("ignoring unknown event type %q for order %d", e.EventType, e.OrderID)
		return nil
	}

	switch e.OrderType {
	case "BUY":
		return c.positions.ProcessBuy(ctx, e.UserID, e.Symbol, e.Quantity, e.PricePerShare)
	case "SELL":
		err := c.positions.ProcessSell(ctx, e.UserID, e.Symbol, e.Quantity, e.PricePerShare)
		if errors.Is(err, exception.ErrInsufficientShares) || errors.Is(err, exception.ErrPortfolioNotFound) {
			logs.Errorf("dropping sell event for order %d, err: %+v", e.OrderID, err)
			return nil
		}
		return err
	default:
		logs.Infof("ignoring unknown order type %q for order %d", e.OrderType, e.OrderID)
		return nil
	}
}

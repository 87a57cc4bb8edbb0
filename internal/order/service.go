package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/obs"
	"main/internal/relay"
	"main/pkg/exception"
)

// PriceSource prices a symbol. Any failure during order creation is
// surfaced as ErrPricingUnavailable.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Payment is the blocking cash-movement port. Calls return or fail
// synchronously; there is no retry on either side.
type Payment interface {
	Balance(ctx context.Context, userID uint64) (decimal.Decimal, error)
	DeductForPurchase(ctx context.Context, userID uint64, amount decimal.Decimal, description, referenceID string) error
	CreditFromSale(ctx context.Context, userID uint64, amount decimal.Decimal, description, referenceID string) error
}

// Publisher is the fire-and-forget event port.
type Publisher interface {
	Publish(e relay.OrderExecuted) error
}

// Config holds orchestrator settings.
type Config struct {
	CommissionRate decimal.Decimal
	MinQuantity    int64
	MaxQuantity    int64
}

// CreateRequest is a validated-at-the-edge order instruction.
type CreateRequest struct {
	UserID   uint64
	Symbol   string
	Type     Type
	Quantity int64
	Notes    string
}

// Service drives an order through validation, pricing, payment and
// execution. It is the only writer of order state.
type Service struct {
	cfg       Config
	repo      Repository
	prices    PriceSource
	payment   Payment
	publisher Publisher
	metrics   *obs.Metrics
}

func NewService(cfg Config, repo Repository, prices PriceSource, payment Payment, publisher Publisher, metrics *obs.Metrics) *Service {
	return &Service{
		cfg:       cfg,
		repo:      repo,
		prices:    prices,
		payment:   payment,
		publisher: publisher,
		metrics:   metrics,
	}
}

// CreateOrder prices, persists and settles a new order. A settlement error
// terminates the order as FAILED with a human-readable reason; the order
// row itself is never rolled back, so a FAILED order may coexist with side
// effects that completed before the failure. The persisted order is
// returned whatever its final status.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	price, err := s.prices.CurrentPrice(ctx, symbol)
	if err != nil {
		logs.Errorf("fetch price for %s, err: %+v", symbol, err)
		return nil, errors.Wrap(exception.ErrPricingUnavailable, "stock not found or market data unavailable: "+symbol)
	}
	if !price.IsPositive() {
		return nil, errors.Wrap(exception.ErrPricingUnavailable, "invalid stock price for symbol: "+symbol)
	}

	totalAmount := price.Mul(decimal.NewFromInt(req.Quantity)).Round(2)
	commission := totalAmount.Mul(s.cfg.CommissionRate).Round(2)

	o := &Order{
		UserID:        req.UserID,
		Symbol:        symbol,
		Type:          req.Type,
		Status:        StatusPending,
		Quantity:      req.Quantity,
		PricePerShare: price,
		TotalAmount:   totalAmount,
		Commission:    commission,
		Notes:         req.Notes,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "persist order")
	}
	s.metrics.IncOrderCreated()
	logs.Infof("created order %d for user %d: %s %d shares of %s", o.ID, o.UserID, o.Type, o.Quantity, o.Symbol)

	start := time.Now()
	if err := s.settle(ctx, o); err != nil {
		logs.Errorf("failed to process order %d, err: %+v", o.ID, err)
		s.markFailed(ctx, o, err)
	}
	s.metrics.ObserveSettlement(time.Since(start))

	return o, nil
}

// GetOrder returns one order by id.
func (s *Service) GetOrder(ctx context.Context, id uint64) (*Order, error) {
	return s.repo.ByID(ctx, id)
}

// GetUserOrders returns all of a user's orders in creation order.
func (s *Service) GetUserOrders(ctx context.Context, userID uint64) ([]Order, error) {
	return s.repo.ByUser(ctx, userID)
}

// GetUserOrdersByStatus returns a user's orders with the given status.
func (s *Service) GetUserOrdersByStatus(ctx context.Context, userID uint64, status Status) ([]Order, error) {
	return s.repo.ByUserAndStatus(ctx, userID, status)
}

// CancelOrder cancels an order still in PENDING or VALIDATING. The caller
// must own the order. Cancellation is an independent mutation; it never
// interrupts an in-flight settlement call.
func (s *Service) CancelOrder(ctx context.Context, orderID, userID uint64) (*Order, error) {
	o, err := s.repo.ByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, exception.ErrOrderNotOwned
	}
	if err := o.Advance(StatusCancelled); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "persist cancellation")
	}
	s.metrics.IncOrderCancelled()
	logs.Infof("order %d cancelled by user %d", orderID, userID)
	return o, nil
}

// Summary aggregates a user's order history. It is recomputed on demand
// from stored orders, never cached, so it cannot drift.
type Summary struct {
	TotalOrders     int
	ExecutedOrders  int
	PendingOrders   int
	FailedOrders    int
	CancelledOrders int
	TotalBuyAmount  decimal.Decimal
	TotalSellAmount decimal.Decimal
	TotalCommission decimal.Decimal
}

// GetUserOrderSummary recomputes the summary from the user's stored orders.
// Commission is summed over executed orders only.
func (s *Service) GetUserOrderSummary(ctx context.Context, userID uint64) (Summary, error) {
	orders, err := s.repo.ByUser(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{TotalOrders: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case StatusExecuted:
			sum.ExecutedOrders++
			sum.TotalCommission = sum.TotalCommission.Add(o.Commission)
		case StatusPending:
			sum.PendingOrders++
		case StatusFailed:
			sum.FailedOrders++
		case StatusCancelled:
			sum.CancelledOrders++
		}
		switch o.Type {
		case TypeBuy:
			sum.TotalBuyAmount = sum.TotalBuyAmount.Add(o.TotalAmount)
		case TypeSell:
			sum.TotalSellAmount = sum.TotalSellAmount.Add(o.TotalAmount)
		}
	}
	return sum, nil
}

func (s *Service) validate(req CreateRequest) error {
	if req.Quantity < s.cfg.MinQuantity || req.Quantity > s.cfg.MaxQuantity {
		return errors.Wrap(exception.ErrInvalidOrder,
			fmt.Sprintf("quantity must be between %d and %d", s.cfg.MinQuantity, s.cfg.MaxQuantity))
	}
	if strings.TrimSpace(req.Symbol) == "" {
		return errors.Wrap(exception.ErrInvalidOrder, "symbol cannot be empty")
	}
	if req.Type != TypeBuy && req.Type != TypeSell {
		return errors.Wrap(exception.ErrInvalidOrder, "unsupported order type: "+string(req.Type))
	}
	return nil
}

func (s *Service) settle(ctx context.Context, o *Order) error {
	if err := s.advance(ctx, o, StatusValidating); err != nil {
		return err
	}
	if o.Type == TypeBuy {
		return s.settleBuy(ctx, o)
	}
	return s.settleSell(ctx, o)
}

func (s *Service) settleBuy(ctx context.Context, o *Order) error {
	totalCost := o.TotalAmount.Add(o.Commission)

	balance, err := s.payment.Balance(ctx, o.UserID)
	if err != nil {
		return errors.Wrap(err, "service communication error")
	}
	if balance.LessThan(totalCost) {
		return &exception.InsufficientBalanceError{Required: totalCost, Available: balance}
	}

	if err := s.advance(ctx, o, StatusExecuting); err != nil {
		return err
	}

	description := fmt.Sprintf("Buy %d shares of %s at $%s", o.Quantity, o.Symbol, o.PricePerShare.StringFixed(2))
	if err := s.payment.DeductForPurchase(ctx, o.UserID, totalCost, description, referenceID(o)); err != nil {
		return errors.Wrap(err, "service communication error")
	}

	return s.finish(ctx, o)
}

// settleSell credits the sale proceeds without verifying that the user
// holds the shares being sold. That check is a precondition the caller
// must satisfy upstream; an oversell surfaces later as a dropped event in
// the position accumulator.
func (s *Service) settleSell(ctx context.Context, o *Order) error {
	if err := s.advance(ctx, o, StatusExecuting); err != nil {
		return err
	}

	proceeds := o.TotalAmount.Sub(o.Commission)
	description := fmt.Sprintf("Sell %d shares of %s at $%s", o.Quantity, o.Symbol, o.PricePerShare.StringFixed(2))
	if err := s.payment.CreditFromSale(ctx, o.UserID, proceeds, description, referenceID(o)); err != nil {
		return errors.Wrap(err, "service communication error")
	}

	return s.finish(ctx, o)
}

func (s *Service) finish(ctx context.Context, o *Order) error {
	now := time.Now()
	o.ExecutedAt = &now
	if err := s.advance(ctx, o, StatusExecuted); err != nil {
		return err
	}
	s.metrics.IncOrderExecuted()
	logs.Infof("%s order %d executed successfully", o.Type, o.ID)

	event := relay.OrderExecuted{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Symbol:        o.Symbol,
		OrderType:     string(o.Type),
		Quantity:      o.Quantity,
		PricePerShare: o.PricePerShare,
		TotalAmount:   o.TotalAmount,
		ExecutedAt:    now,
		EventType:     relay.EventTypeOrderExecuted,
	}
	if err := s.publisher.Publish(event); err != nil {
		// Fire-and-forget: the order stays EXECUTED even when the relay
		// rejects the event.
		logs.Errorf("publish executed event for order %d, err: %+v", o.ID, err)
	}
	return nil
}

func (s *Service) advance(ctx context.Context, o *Order, next Status) error {
	if err := o.Advance(next); err != nil {
		return err
	}
	return s.repo.Update(ctx, o)
}

func (s *Service) markFailed(ctx context.Context, o *Order, cause error) {
	o.FailureReason = cause.Error()
	if o.Status.CanTransitionTo(StatusFailed) {
		o.Status = StatusFailed
	}
	if err := s.repo.Update(ctx, o); err != nil {
		logs.Errorf("persist failure of order %d, err: %+v", o.ID, err)
		return
	}
	s.metrics.IncOrderFailed()
}

func referenceID(o *Order) string {
	return fmt.Sprintf("ORDER-%d", o.ID)
}

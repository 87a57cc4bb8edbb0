package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/relay"
	"main/pkg/exception"
)

func testConfig() Config {
	return Config{
		CommissionRate: decimal.RequireFromString("0.001"),
		MinQuantity:    1,
		MaxQuantity:    10000,
	}
}

type stubPrices struct {
	price decimal.Decimal
	err   error
}

func (s stubPrices) CurrentPrice(context.Context, string) (decimal.Decimal, error) {
	return s.price, s.err
}

type paymentCall struct {
	userID      uint64
	amount      decimal.Decimal
	description string
	referenceID string
}

type fakePayment struct {
	mu         sync.Mutex
	balance    decimal.Decimal
	balanceErr error
	debitErr   error
	creditErr  error
	debits     []paymentCall
	credits    []paymentCall
}

func (p *fakePayment) Balance(context.Context, uint64) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, p.balanceErr
}

func (p *fakePayment) DeductForPurchase(_ context.Context, userID uint64, amount decimal.Decimal, description, referenceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.debitErr != nil {
		return p.debitErr
	}
	p.balance = p.balance.Sub(amount)
	p.debits = append(p.debits, paymentCall{userID, amount, description, referenceID})
	return nil
}

func (p *fakePayment) CreditFromSale(_ context.Context, userID uint64, amount decimal.Decimal, description, referenceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.creditErr != nil {
		return p.creditErr
	}
	p.balance = p.balance.Add(amount)
	p.credits = append(p.credits, paymentCall{userID, amount, description, referenceID})
	return nil
}

type capturePublisher struct {
	err    error
	events []relay.OrderExecuted
}

func (p *capturePublisher) Publish(e relay.OrderExecuted) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func newTestService(prices PriceSource, payment Payment, publisher Publisher) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	return NewService(testConfig(), repo, prices, payment, publisher, nil), repo
}

func TestCreateOrderBuyExecuted(t *testing.T) {
	payment := &fakePayment{balance: decimal.NewFromInt(10000)}
	publisher := &capturePublisher{}
	svc, _ := newTestService(stubPrices{price: decimal.RequireFromString("189.50")}, payment, publisher)

	o, err := svc.CreateOrder(context.Background(), CreateRequest{
		UserID:   7,
		Symbol:   "aapl",
		Type:     TypeBuy,
		Quantity: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusExecuted, o.Status)
	assert.Equal(t, "AAPL", o.Symbol)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("1895.00")), "total %s", o.TotalAmount)
	assert.True(t, o.Commission.Equal(decimal.RequireFromString("1.90")), "commission %s", o.Commission)
	require.NotNil(t, o.ExecutedAt)

	require.Len(t, payment.debits, 1)
	debit := payment.debits[0]
	assert.True(t, debit.amount.Equal(decimal.RequireFromString("1896.90")), "debited %s", debit.amount)
	assert.Equal(t, "ORDER-1", debit.referenceID)
	assert.Equal(t, "Buy 10 shares of AAPL at $189.50", debit.description)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, relay.EventTypeOrderExecuted, event.EventType)
	assert.Equal(t, o.ID, event.OrderID)
	assert.Equal(t, "BUY", event.OrderType)
	assert.Equal(t, int64(10), event.Quantity)
	assert.True(t, event.TotalAmount.Equal(o.TotalAmount))
}

func TestCreateOrderBuyInsufficientBalance(t *testing.T) {
	payment := &fakePayment{balance: decimal.Zero}
	publisher := &capturePublisher{}
	svc, repo := newTestService(stubPrices{price: decimal.RequireFromString("100.00")}, payment, publisher)

	o, err := svc.CreateOrder(context.Background(), CreateRequest{
		UserID:   1,
		Symbol:   "AAPL",
		Type:     TypeBuy,
		Quantity: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, o.Status)
	assert.Contains(t, o.FailureReason, "$100.10")
	assert.Contains(t, o.FailureReason, "$0.00")
	assert.Empty(t, payment.debits, "no cash must move")
	assert.Empty(t, publisher.events, "no event on failure")
	assert.True(t, payment.balance.IsZero(), "balance unchanged")

	stored, err := repo.ByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
}

func TestCreateOrderValidation(t *testing.T) {
	testCases := []struct {
		desc string
		req  CreateRequest
	}{
		{"quantity below min", CreateRequest{UserID: 1, Symbol: "AAPL", Type: TypeBuy, Quantity: 0}},
		{"quantity above max", CreateRequest{UserID: 1, Symbol: "AAPL", Type: TypeBuy, Quantity: 10001}},
		{"empty symbol", CreateRequest{UserID: 1, Symbol: "  ", Type: TypeBuy, Quantity: 1}},
		{"unknown type", CreateRequest{UserID: 1, Symbol: "AAPL", Type: Type("HOLD"), Quantity: 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, repo := newTestService(stubPrices{price: decimal.NewFromInt(100)}, &fakePayment{}, &capturePublisher{})
			_, err := svc.CreateOrder(context.Background(), tc.req)
			require.ErrorIs(t, err, exception.ErrInvalidOrder)

			orders, err := repo.ByUser(context.Background(), 1)
			require.NoError(t, err)
			assert.Empty(t, orders, "rejected request must not persist anything")
		})
	}
}

func TestCreateOrderPricingUnavailable(t *testing.T) {
	testCases := []struct {
		desc   string
		prices stubPrices
	}{
		{"not found", stubPrices{err: exception.ErrSymbolNotFound}},
		{"rate limited", stubPrices{err: exception.ErrRateLimited}},
		{"zero price", stubPrices{price: decimal.Zero}},
		{"negative price", stubPrices{price: decimal.NewFromInt(-1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, repo := newTestService(tc.prices, &fakePayment{}, &capturePublisher{})
			_, err := svc.CreateOrder(context.Background(), CreateRequest{
				UserID:   1,
				Symbol:   "AAPL",
				Type:     TypeBuy,
				Quantity: 1,
			})
			require.ErrorIs(t, err, exception.ErrPricingUnavailable)

			orders, err := repo.ByUser(context.Background(), 1)
			require.NoError(t, err)
			assert.Empty(t, orders, "pricing failure must abort before persistence")
		})
	}
}

func TestCreateOrderSellCreditsProceeds(t *testing.T) {
	payment := &fakePayment{balance: decimal.Zero}
	publisher := &capturePublisher{}
	svc, _ := newTestService(stubPrices{price: decimal.RequireFromString("50.00")}, payment, publisher)

	// The sell path trusts that share availability was checked upstream:
	// it must execute even though this user never bought anything.
	o, err := svc.CreateOrder(context.Background(), CreateRequest{
		UserID:   1,
		Symbol:   "MSFT",
		Type:     TypeSell,
		Quantity: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusExecuted, o.Status)
	require.Len(t, payment.credits, 1)
	// 200.00 total - 0.20 commission
	assert.True(t, payment.credits[0].amount.Equal(decimal.RequireFromString("199.80")),
		"credited %s", payment.credits[0].amount)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, "SELL", publisher.events[0].OrderType)
}

func TestCreateOrderDebitFailureTerminatesOrder(t *testing.T) {
	payment := &fakePayment{balance: decimal.NewFromInt(10000), debitErr: errors.New("wallet rpc timeout")}
	svc, _ := newTestService(stubPrices{price: decimal.NewFromInt(100)}, payment, &capturePublisher{})

	o, err := svc.CreateOrder(context.Background(), CreateRequest{
		UserID:   1,
		Symbol:   "AAPL",
		Type:     TypeBuy,
		Quantity: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, o.Status)
	assert.Contains(t, o.FailureReason, "service communication error")
	assert.Contains(t, o.FailureReason, "wallet rpc timeout")
}

func TestCreateOrderPublishFailureKeepsOrderExecuted(t *testing.T) {
	payment := &fakePayment{balance: decimal.NewFromInt(10000)}
	publisher := &capturePublisher{err: exception.ErrRelayFull}
	svc, _ := newTestService(stubPrices{price: decimal.NewFromInt(100)}, payment, publisher)

	o, err := svc.CreateOrder(context.Background(), CreateRequest{
		UserID:   1,
		Symbol:   "AAPL",
		Type:     TypeBuy,
		Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, o.Status, "publish is fire-and-forget")
	assert.Empty(t, o.FailureReason)
}

func TestCancelOrder(t *testing.T) {
	svc, repo := newTestService(stubPrices{price: decimal.NewFromInt(100)}, &fakePayment{}, &capturePublisher{})
	ctx := context.Background()

	pending := &Order{UserID: 1, Symbol: "AAPL", Type: TypeBuy, Status: StatusPending, Quantity: 1}
	require.NoError(t, repo.Create(ctx, pending))

	o, err := svc.CancelOrder(ctx, pending.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)

	// A second cancel attempt must be rejected and leave the order as-is.
	_, err = svc.CancelOrder(ctx, pending.ID, 1)
	require.ErrorIs(t, err, exception.ErrInvalidTransition)
	stored, err := repo.ByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
}

func TestCancelOrderRejectsOtherUsers(t *testing.T) {
	svc, repo := newTestService(stubPrices{price: decimal.NewFromInt(100)}, &fakePayment{}, &capturePublisher{})
	ctx := context.Background()

	pending := &Order{UserID: 1, Symbol: "AAPL", Type: TypeBuy, Status: StatusPending, Quantity: 1}
	require.NoError(t, repo.Create(ctx, pending))

	_, err := svc.CancelOrder(ctx, pending.ID, 2)
	require.ErrorIs(t, err, exception.ErrOrderNotOwned)
}

func TestCancelOrderRejectsTerminalStates(t *testing.T) {
	svc, repo := newTestService(stubPrices{price: decimal.NewFromInt(100)}, &fakePayment{}, &capturePublisher{})
	ctx := context.Background()

	for _, status := range []Status{StatusExecuted, StatusFailed, StatusCancelled} {
		o := &Order{UserID: 1, Symbol: "AAPL", Type: TypeBuy, Status: status, Quantity: 1}
		require.NoError(t, repo.Create(ctx, o))

		_, err := svc.CancelOrder(ctx, o.ID, 1)
		require.ErrorIs(t, err, exception.ErrInvalidTransition, "status %s", status)

		stored, err := repo.ByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, status, stored.Status)
	}
}

func TestGetUserOrderSummary(t *testing.T) {
	payment := &fakePayment{balance: decimal.NewFromInt(100000)}
	svc, repo := newTestService(stubPrices{price: decimal.RequireFromString("100.00")}, payment, &capturePublisher{})
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, CreateRequest{UserID: 1, Symbol: "AAPL", Type: TypeBuy, Quantity: 10})
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, CreateRequest{UserID: 1, Symbol: "AAPL", Type: TypeSell, Quantity: 3})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &Order{
		UserID: 1, Symbol: "MSFT", Type: TypeBuy, Status: StatusFailed,
		TotalAmount: decimal.NewFromInt(500), Commission: decimal.RequireFromString("0.50"),
	}))

	sum, err := svc.GetUserOrderSummary(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.TotalOrders)
	assert.Equal(t, 2, sum.ExecutedOrders)
	assert.Equal(t, 1, sum.FailedOrders)
	assert.True(t, sum.TotalBuyAmount.Equal(decimal.NewFromInt(1500)), "buy total %s", sum.TotalBuyAmount)
	assert.True(t, sum.TotalSellAmount.Equal(decimal.NewFromInt(300)), "sell total %s", sum.TotalSellAmount)
	// Commission only over executed orders: 1.00 + 0.30.
	assert.True(t, sum.TotalCommission.Equal(decimal.RequireFromString("1.30")), "commission %s", sum.TotalCommission)
}

func TestSummaryNeverCached(t *testing.T) {
	payment := &fakePayment{balance: decimal.NewFromInt(100000)}
	svc, _ := newTestService(stubPrices{price: decimal.NewFromInt(10)}, payment, &capturePublisher{})
	ctx := context.Background()

	first, err := svc.GetUserOrderSummary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, first.TotalOrders)

	_, err = svc.CreateOrder(ctx, CreateRequest{UserID: 1, Symbol: "AAPL", Type: TypeBuy, Quantity: 1})
	require.NoError(t, err)

	second, err := svc.GetUserOrderSummary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalOrders)
}

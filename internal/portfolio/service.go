package portfolio

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/market"
	"main/pkg/exception"
)

// BalanceSource reads a user's cash balance for the read-side valuation.
type BalanceSource interface {
	Balance(ctx context.Context, userID uint64) (decimal.Decimal, error)
}

// Service owns per-user per-symbol holdings with weighted-average cost.
// Holdings are mutated only by applying execution events.
type Service struct {
	repo     Repository
	market   market.Provider
	balances BalanceSource
}

func NewService(repo Repository, provider market.Provider, balances BalanceSource) *Service {
	return &Service{repo: repo, market: provider, balances: balances}
}

// CreatePortfolio onboards a user, returning the existing portfolio when
// one is already there.
func (s *Service) CreatePortfolio(ctx context.Context, userID uint64) (*Portfolio, error) {
	if p, err := s.repo.ByUserID(ctx, userID); err == nil {
		return p, nil
	}
	p := &Portfolio{UserID: userID, InvestedAmount: decimal.Zero}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create portfolio")
	}
	logs.Infof("portfolio created for user %d", userID)
	return p, nil
}

// GetPortfolio returns the user's portfolio.
func (s *Service) GetPortfolio(ctx context.Context, userID uint64) (*Portfolio, error) {
	return s.repo.ByUserID(ctx, userID)
}

// ProcessBuy folds an executed buy into the holding. New holdings start at
// zero and the weighted average is rounded to 4 decimal places.
func (s *Service) ProcessBuy(ctx context.Context, userID uint64, symbol string, quantity int64, pricePerShare decimal.Decimal) error {
	p, err := s.CreatePortfolio(ctx, userID)
	if err != nil {
		return err
	}

	h, err := s.repo.HoldingBySymbol(ctx, p.ID, symbol)
	if err != nil {
		h = &Holding{
			PortfolioID:   p.ID,
			Symbol:        symbol,
			Quantity:      0,
			AveragePrice:  decimal.Zero,
			TotalInvested: decimal.Zero,
		}
	}

	qty := decimal.NewFromInt(quantity)
	currentInvested := h.AveragePrice.Mul(decimal.NewFromInt(h.Quantity))
	newInvestment := pricePerShare.Mul(qty)
	totalInvested := currentInvested.Add(newInvestment)
	newQuantity := h.Quantity + quantity

	h.Quantity = newQuantity
	h.AveragePrice = totalInvested.DivRound(decimal.NewFromInt(newQuantity), 4)
	h.TotalInvested = totalInvested

	p.InvestedAmount = p.InvestedAmount.Add(newInvestment)
	if err := s.repo.SaveHolding(ctx, p, h); err != nil {
		return errors.Wrap(err, "save holding")
	}

	logs.Infof("user %d now has %d shares of %s at avg price $%s",
		userID, newQuantity, symbol, h.AveragePrice.String())
	return nil
}

// ProcessSell reduces or deletes the holding. Realized P&L is computed for
// observability only and never persisted. When shares remain, the average
// price is unchanged and the invested amount is rebased on it.
func (s *Service) ProcessSell(ctx context.Context, userID uint64, symbol string, quantity int64, pricePerShare decimal.Decimal) error {
	p, err := s.repo.ByUserID(ctx, userID)
	if err != nil {
		return err
	}

	h, err := s.repo.HoldingBySymbol(ctx, p.ID, symbol)
	if err != nil {
		return errors.Wrap(exception.ErrInsufficientShares,
			fmt.Sprintf("no holding of %s, requested %d", symbol, quantity))
	}
	if h.Quantity < quantity {
		return errors.Wrap(exception.ErrInsufficientShares,
			fmt.Sprintf("held %d shares of %s, requested %d", h.Quantity, symbol, quantity))
	}

	qty := decimal.NewFromInt(quantity)
	costBasis := h.AveragePrice.Mul(qty)
	proceeds := pricePerShare.Mul(qty)
	logs.Infof("sell realizes P&L of $%s on %d shares of %s for user %d",
		proceeds.Sub(costBasis).StringFixed(2), quantity, symbol, userID)

	p.InvestedAmount = p.InvestedAmount.Sub(costBasis)
	newQuantity := h.Quantity - quantity
	if newQuantity == 0 {
		if err := s.repo.RemoveHolding(ctx, p, h); err != nil {
			return errors.Wrap(err, "remove holding")
		}
		logs.Infof("all shares of %s sold, holding removed for user %d", symbol, userID)
		return nil
	}

	h.Quantity = newQuantity
	h.TotalInvested = h.AveragePrice.Mul(decimal.NewFromInt(newQuantity))
	if err := s.repo.SaveHolding(ctx, p, h); err != nil {
		return errors.Wrap(err, "save holding")
	}
	return nil
}

// HoldingView is a holding enriched with a live quote.
type HoldingView struct {
	Symbol            string
	CompanyName       string
	Quantity          int64
	AveragePrice      decimal.Decimal
	TotalInvested     decimal.Decimal
	CurrentPrice      decimal.Decimal
	CurrentValue      decimal.Decimal
	ProfitLoss        decimal.Decimal
	ProfitLossPercent decimal.Decimal
}

// Summary is the read-side valuation of a portfolio.
type Summary struct {
	UserID                 uint64
	TotalValue             decimal.Decimal
	CashBalance            decimal.Decimal
	InvestedAmount         decimal.Decimal
	TotalProfitLoss        decimal.Decimal
	TotalProfitLossPercent decimal.Decimal
	HoldingCount           int
}

// Holdings returns the user's holdings valued at the current quote. When a
// quote fails the holding falls back to its average price.
func (s *Service) Holdings(ctx context.Context, userID uint64) ([]HoldingView, error) {
	p, err := s.repo.ByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.repo.Holdings(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	views := make([]HoldingView, 0, len(holdings))
	for _, h := range holdings {
		views = append(views, s.valueHolding(ctx, h))
	}
	return views, nil
}

// Summary values the portfolio as cash balance plus current holdings value.
func (s *Service) Summary(ctx context.Context, userID uint64) (Summary, error) {
	p, err := s.repo.ByUserID(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	holdings, err := s.repo.Holdings(ctx, p.ID)
	if err != nil {
		return Summary{}, err
	}

	cash := decimal.Zero
	if balance, err := s.balances.Balance(ctx, userID); err != nil {
		logs.Errorf("get wallet balance for user %d, err: %+v", userID, err)
	} else {
		cash = balance
	}

	holdingsValue := decimal.Zero
	for _, h := range holdings {
		view := s.valueHolding(ctx, h)
		holdingsValue = holdingsValue.Add(view.CurrentValue)
	}

	profitLoss := holdingsValue.Sub(p.InvestedAmount)
	percent := decimal.Zero
	if p.InvestedAmount.IsPositive() {
		percent = profitLoss.DivRound(p.InvestedAmount, 4).
			Mul(decimal.NewFromInt(100)).Round(2)
	}

	return Summary{
		UserID:                 userID,
		TotalValue:             cash.Add(holdingsValue),
		CashBalance:            cash,
		InvestedAmount:         p.InvestedAmount,
		TotalProfitLoss:        profitLoss,
		TotalProfitLossPercent: percent,
		HoldingCount:           len(holdings),
	}, nil
}

func (s *Service) valueHolding(ctx context.Context, h Holding) HoldingView {
	view := HoldingView{
		Symbol:        h.Symbol,
		Quantity:      h.Quantity,
		AveragePrice:  h.AveragePrice,
		TotalInvested: h.TotalInvested,
	}

	quote, err := s.market.Quote(ctx, h.Symbol)
	if err != nil {
		logs.Errorf("get quote for %s, err: %+v", h.Symbol, err)
		view.CompanyName = h.Symbol
		view.CurrentPrice = h.AveragePrice
		view.CurrentValue = h.TotalInvested
		view.ProfitLoss = decimal.Zero
		view.ProfitLossPercent = decimal.Zero
		return view
	}

	view.CompanyName = quote.CompanyName
	view.CurrentPrice = quote.Price
	view.CurrentValue = quote.Price.Mul(decimal.NewFromInt(h.Quantity))
	view.ProfitLoss = view.CurrentValue.Sub(h.TotalInvested)
	if h.TotalInvested.IsPositive() {
		view.ProfitLossPercent = view.ProfitLoss.DivRound(h.TotalInvested, 4).
			Mul(decimal.NewFromInt(100)).Round(2)
	}
	return view
}

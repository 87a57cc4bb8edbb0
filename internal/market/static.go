package market

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"main/pkg/exception"
)

// StaticProvider serves quotes from an in-memory table. It stands in for the
// external market data service in local runs and tests.
type StaticProvider struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewStaticProvider creates a provider seeded with the given quotes.
func NewStaticProvider(seeds []Quote) *StaticProvider {
	p := &StaticProvider{quotes: make(map[string]Quote, len(seeds))}
	for _, q := range seeds {
		p.Set(q)
	}
	return p
}

// Set inserts or replaces a quote.
func (p *StaticProvider) Set(q Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q.Symbol = normalize(q.Symbol)
	if q.CompanyName == "" {
		q.CompanyName = q.Symbol
	}
	p.quotes[q.Symbol] = q
}

func (p *StaticProvider) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q, err := p.Quote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Price, nil
}

func (p *StaticProvider) Quote(_ context.Context, symbol string) (Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	q, ok := p.quotes[normalize(symbol)]
	if !ok {
		return Quote{}, exception.ErrSymbolNotFound
	}
	if !q.Price.IsPositive() {
		return Quote{}, exception.ErrInvalidPrice
	}
	return q, nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

package portfolio

import (
	"context"
	"sort"
	"sync"
	"time"

	"main/pkg/exception"
)

// Repository persists portfolios and holdings. SaveHolding and
// RemoveHolding write the portfolio and the holding as a single atomic
// unit.
type Repository interface {
	ByUserID(ctx context.Context, userID uint64) (*Portfolio, error)
	Create(ctx context.Context, p *Portfolio) error
	Holdings(ctx context.Context, portfolioID uint64) ([]Holding, error)
	HoldingBySymbol(ctx context.Context, portfolioID uint64, symbol string) (*Holding, error)
	SaveHolding(ctx context.Context, p *Portfolio, h *Holding) error
	RemoveHolding(ctx context.Context, p *Portfolio, h *Holding) error
}

type holdingKey struct {
	portfolioID uint64
	symbol      string
}

// MemoryRepository is an in-process Repository used by tests and
// persistence-free runs.
type MemoryRepository struct {
	mu         sync.RWMutex
	nextID     uint64
	nextHoldID uint64
	byUser     map[uint64]Portfolio
	holdings   map[holdingKey]Holding
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byUser:   make(map[uint64]Portfolio),
		holdings: make(map[holdingKey]Holding),
	}
}

func (r *MemoryRepository) ByUserID(_ context.Context, userID uint64) (*Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byUser[userID]
	if !ok {
		return nil, exception.ErrPortfolioNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) Create(_ context.Context, p *Portfolio) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byUser[p.UserID]; ok {
		*p = existing
		return nil
	}
	r.nextID++
	p.ID = r.nextID
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.byUser[p.UserID] = *p
	return nil
}

func (r *MemoryRepository) Holdings(_ context.Context, portfolioID uint64) ([]Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Holding
	for key, h := range r.holdings {
		if key.portfolioID == portfolioID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (r *MemoryRepository) HoldingBySymbol(_ context.Context, portfolioID uint64, symbol string) (*Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.holdings[holdingKey{portfolioID, symbol}]
	if !ok {
		return nil, exception.ErrHoldingNotFound
	}
	return &h, nil
}

func (r *MemoryRepository) SaveHolding(_ context.Context, p *Portfolio, h *Holding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.ID == 0 {
		r.nextHoldID++
		h.ID = r.nextHoldID
		h.CreatedAt = time.Now()
	}
	h.UpdatedAt = time.Now()
	r.holdings[holdingKey{h.PortfolioID, h.Symbol}] = *h
	r.savePortfolio(p)
	return nil
}

func (r *MemoryRepository) RemoveHolding(_ context.Context, p *Portfolio, h *Holding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.holdings, holdingKey{h.PortfolioID, h.Symbol})
	r.savePortfolio(p)
	return nil
}

func (r *MemoryRepository) savePortfolio(p *Portfolio) {
	p.UpdatedAt = time.Now()
	r.byUser[p.UserID] = *p
}

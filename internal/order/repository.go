package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"main/pkg/exception"
)

// Repository persists orders. Orders are never deleted.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	ByID(ctx context.Context, id uint64) (*Order, error)
	ByUser(ctx context.Context, userID uint64) ([]Order, error)
	ByUserAndStatus(ctx context.Context, userID uint64, status Status) ([]Order, error)
}

// MemoryRepository is an in-process Repository used by tests and
// persistence-free runs.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID uint64
	orders map[uint64]Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[uint64]Order)}
}

func (r *MemoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = time.Now()
	r.orders[o.ID] = *o
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return exception.ErrOrderNotFound
	}
	r.orders[o.ID] = *o
	return nil
}

func (r *MemoryRepository) ByID(_ context.Context, id uint64) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, exception.ErrOrderNotFound
	}
	return &o, nil
}

func (r *MemoryRepository) ByUser(_ context.Context, userID uint64) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) ByUserAndStatus(ctx context.Context, userID uint64, status Status) ([]Order, error) {
	all, _ := r.ByUser(ctx, userID)
	out := all[:0]
	for _, o := range all {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

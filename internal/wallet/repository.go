package wallet

import (
	"context"
	"sort"
	"sync"
	"time"

	"main/pkg/exception"
)

// Repository persists wallets and their ledger entries. Apply writes the
// updated wallet and the new entry as a single atomic unit.
type Repository interface {
	Create(ctx context.Context, w *Wallet, initial *LedgerEntry) error
	ByUserID(ctx context.Context, userID uint64) (*Wallet, error)
	Apply(ctx context.Context, w *Wallet, entry *LedgerEntry) error
	Entries(ctx context.Context, walletID uint64) ([]LedgerEntry, error)
}

// MemoryRepository is an in-process Repository used by tests and
// persistence-free runs.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  uint64
	entryID uint64
	wallets map[uint64]Wallet // keyed by user id
	entries map[uint64][]LedgerEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		wallets: make(map[uint64]Wallet),
		entries: make(map[uint64][]LedgerEntry),
	}
}

func (r *MemoryRepository) Create(_ context.Context, w *Wallet, initial *LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[w.UserID]; ok {
		return exception.ErrWalletExists
	}
	r.nextID++
	w.ID = r.nextID
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	r.wallets[w.UserID] = *w
	if initial != nil {
		initial.WalletID = w.ID
		r.appendEntry(initial)
	}
	return nil
}

func (r *MemoryRepository) ByUserID(_ context.Context, userID uint64) (*Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[userID]
	if !ok {
		return nil, exception.ErrWalletNotFound
	}
	return &w, nil
}

func (r *MemoryRepository) Apply(_ context.Context, w *Wallet, entry *LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[w.UserID]; !ok {
		return exception.ErrWalletNotFound
	}
	w.UpdatedAt = time.Now()
	r.wallets[w.UserID] = *w
	entry.WalletID = w.ID
	r.appendEntry(entry)
	return nil
}

func (r *MemoryRepository) Entries(_ context.Context, walletID uint64) ([]LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.entries[walletID]
	out := make([]LedgerEntry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) appendEntry(entry *LedgerEntry) {
	r.entryID++
	entry.ID = r.entryID
	entry.CreatedAt = time.Now()
	r.entries[entry.WalletID] = append(r.entries[entry.WalletID], *entry)
}

package wallet

import "sync"

// keyedMutex serializes mutations per wallet. A lock is scoped to a single
// user id and no operation ever holds more than one, so no lock ordering is
// needed across wallets.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uint64]*sync.Mutex)}
}

// lock acquires the mutex for the given key and returns its unlock func.
func (k *keyedMutex) lock(key uint64) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

package settlement

import "sync"

// pairLocks serializes settlements per (model, symbol). Two concurrent
// closes of the same position would otherwise race between the exchange
// submit and the local delete and double-sell real exposure.
type pairLocks struct {
	mu    sync.Mutex
	locks map[pairKey]*sync.Mutex
}

type pairKey struct {
	modelID uint
	symbol  string
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[pairKey]*sync.Mutex)}
}

// acquire blocks until the (model, symbol) lock is held and returns the
// release function. Locks are never removed from the map; the universe of
// pairs is small and bounded by configuration.
func (p *pairLocks) acquire(modelID uint, symbol string) func() {
	key := pairKey{modelID: modelID, symbol: symbol}

	p.mu.Lock()
	lock, ok := p.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[key] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

package eventstore

import "sync"

// partitionLocks hands out one mutex per partition key. Locks are never
// reclaimed; the number of live pools is small relative to memory.
type partitionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPartitionLocks() *partitionLocks {
	return &partitionLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the partition's mutex and returns its unlock function
func (p *partitionLocks) lock(key string) func() {
	p.mu.Lock()
	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}

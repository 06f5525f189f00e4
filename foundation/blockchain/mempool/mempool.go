// Package mempool maintains the payloads waiting to be mined into a block.
package mempool

import "sync"

// Mempool represents a FIFO queue of payloads received through mine commands.
// Payloads whose mining was cancelled or went stale are pushed back to the
// front so they are mined next.
type Mempool struct {
	mu   sync.Mutex
	pool []string
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of payloads in the pool.
func (mp *Mempool) Count() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return len(mp.pool)
}

// Push adds a payload to the back of the pool and returns the new count.
func (mp *Mempool) Push(data string) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, data)

	return len(mp.pool)
}

// PushFront returns a payload to the front of the pool.
func (mp *Mempool) PushFront(data string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append([]string{data}, mp.pool...)
}

// Pop removes and returns the payload at the front of the pool.
func (mp *Mempool) Pop() (string, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if len(mp.pool) == 0 {
		return "", false
	}

	data := mp.pool[0]
	mp.pool = mp.pool[1:]

	return data, true
}

// Copy returns a copy of the payloads in the pool in order.
func (mp *Mempool) Copy() []string {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	cpy := make([]string, len(mp.pool))
	copy(cpy, mp.pool)

	return cpy
}

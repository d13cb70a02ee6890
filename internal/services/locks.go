package services

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes conflicting operations on the same logical unit
// (a lineage root, a folder subtree) within this process. The stores carry
// no optimistic-concurrency token, so without this the read-then-write
// version computation and the read-then-cascade folder walks race under
// concurrent writers. Across processes behavior remains last-write-wins.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// lock acquires the mutex for key and returns its unlock func. Entries are
// never evicted; key cardinality is bounded by the set of live lineages
// and folders.
func (k *keyedMutex) lock(key uuid.UUID) func() {
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

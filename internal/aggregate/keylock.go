package aggregate

import (
	"sort"
	"sync"
)

// KeyLock serializes mutators per key: at most one writer per bucket
// identity or tag name at a time, with no blocking across unrelated keys.
// Lock entries are reference-counted and dropped once the last holder
// releases, so the table doesn't grow with the keyspace.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*lockEntry)}
}

// Lock blocks until the key is exclusively held and returns the unlock
// function.
func (kl *KeyLock) Lock(key string) func() {
	kl.mu.Lock()
	entry, ok := kl.locks[key]
	if !ok {
		entry = &lockEntry{}
		kl.locks[key] = entry
	}
	entry.refs++
	kl.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		kl.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(kl.locks, key)
		}
		kl.mu.Unlock()
	}
}

// LockAll acquires several keys in lexicographic order, deduplicated, so two
// callers locking overlapping key sets can never deadlock. Returns a single
// unlock releasing everything in reverse order.
func (kl *KeyLock) LockAll(keys ...string) func() {
	unique := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}
	sort.Strings(unique)

	unlocks := make([]func(), 0, len(unique))
	for _, k := range unique {
		unlocks = append(unlocks, kl.Lock(k))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Package keyedlock serializes writers per key. The ingestion pipeline
// uses it to make the projection recompute single-writer per user,
// closing the read-compute-write lost-update window.
package keyedlock

import "sync"

// entry wraps a mutex with a reference count so idle keys can be freed.
type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedLock hands out one mutex per key on demand. A key is dropped
// from the table once its last holder releases, so the table only
// tracks keys with active or waiting holders.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New creates an empty KeyedLock.
func New() *KeyedLock {
	return &KeyedLock{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key, blocking until available.
func (kl *KeyedLock) Lock(key string) {
	kl.mu.Lock()
	e, ok := kl.locks[key]
	if !ok {
		e = &entry{}
		kl.locks[key] = e
	}
	e.refs++
	kl.mu.Unlock()
	e.mu.Lock()
}

// Unlock releases the mutex for key. Unlocking a key that is not held
// panics, matching sync.Mutex semantics.
func (kl *KeyedLock) Unlock(key string) {
	kl.mu.Lock()
	e, ok := kl.locks[key]
	if !ok {
		kl.mu.Unlock()
		panic("keyedlock: unlock of unheld key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(kl.locks, key)
	}
	kl.mu.Unlock()
	e.mu.Unlock()
}

// WithLock runs fn while holding the key's mutex.
func (kl *KeyedLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// Len reports the number of keys with active or waiting holders.
func (kl *KeyedLock) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}

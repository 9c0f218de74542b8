package app

import (
	"context"
	"sync"
)

// keyedMutex serialises work per key. Keys are released when unlocked.
type keyedMutex struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{held: make(map[string]chan struct{})}
}

// TryLock acquires key if it is free.
func (k *keyedMutex) TryLock(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, busy := k.held[key]; busy {
		return false
	}
	k.held[key] = make(chan struct{})
	return true
}

// Lock blocks until key is acquired or ctx is done.
func (k *keyedMutex) Lock(ctx context.Context, key string) error {
	for {
		k.mu.Lock()
		released, busy := k.held[key]
		if !busy {
			k.held[key] = make(chan struct{})
			k.mu.Unlock()
			return nil
		}
		k.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Unlock releases key. Unlocking a free key is a no-op.
func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	released, busy := k.held[key]
	delete(k.held, key)
	k.mu.Unlock()
	if busy {
		close(released)
	}
}

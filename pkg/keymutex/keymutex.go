package keymutex

import "sync"

// KeyMutex serializes work per string key. Locks for distinct keys are
// independent; entries are reference counted and removed once released, so
// the map does not grow with the key space.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns the unlock function.
func (km *KeyMutex) Lock(key string) func() {
	km.mu.Lock()
	e, ok := km.locks[key]
	if !ok {
		e = &entry{}
		km.locks[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		km.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}

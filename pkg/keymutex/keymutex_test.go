package keymutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	km := New()

	var (
		wg      sync.WaitGroup
		current int
		max     int
		mu      sync.Mutex
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("GA/99213")
			defer unlock()

			mu.Lock()
			current++
			if current > max {
				max = current
			}
			mu.Unlock()

			mu.Lock()
			current--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, max, "same key must never be held concurrently")
}

func TestLockReleasesEntries(t *testing.T) {
	km := New()

	unlock := km.Lock("CA/99213")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	km := New()

	unlockA := km.Lock("GA/99213")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("CA/99213")
		unlockB()
		close(done)
	}()

	<-done
}

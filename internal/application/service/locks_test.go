package service

import (
	"sync"
	"testing"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	locks := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock("req-1")
			defer locks.Unlock("req-1")
			counter++
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
}

func TestKeyedMutex_IndependentKeysDoNotBlock(t *testing.T) {
	locks := NewKeyedMutex()

	locks.Lock("req-a")
	done := make(chan struct{})
	go func() {
		locks.Lock("req-b")
		locks.Unlock("req-b")
		close(done)
	}()

	<-done // would deadlock if keys shared one mutex
	locks.Unlock("req-a")
}

func TestKeyedMutex_EntriesAreReleased(t *testing.T) {
	locks := NewKeyedMutex()

	locks.Lock("req-1")
	locks.Unlock("req-1")

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.locks) != 0 {
		t.Errorf("lock map holds %d entries after release, want 0", len(locks.locks))
	}
}

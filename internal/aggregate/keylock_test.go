package aggregate

import (
	"sync"
	"testing"
)

func TestKeyLockSerializesPerKey(t *testing.T) {
	kl := NewKeyLock()
	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := kl.Lock("food:cafe x|1 main st")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("lost updates under per-key lock: counter=%d, want %d", counter, workers)
	}
}

func TestKeyLockIndependentKeysDontBlock(t *testing.T) {
	kl := NewKeyLock()
	unlockA := kl.Lock("tag:Spicy")

	done := make(chan struct{})
	go func() {
		unlockB := kl.Lock("tag:Vegan")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

// Two goroutines locking the same two keys in opposite caller order must not
// deadlock: LockAll sorts before acquiring.
func TestLockAllOrdersKeys(t *testing.T) {
	kl := NewKeyLock()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := kl.LockAll("food:a", "food:b")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := kl.LockAll("food:b", "food:a")
			unlock()
		}()
	}
	wg.Wait()
}

func TestLockAllDeduplicates(t *testing.T) {
	kl := NewKeyLock()
	unlock := kl.LockAll("food:a", "food:a")
	unlock()

	// Entry table must be empty again once released.
	kl.mu.Lock()
	defer kl.mu.Unlock()
	if len(kl.locks) != 0 {
		t.Errorf("lock table leaked entries: %d", len(kl.locks))
	}
}

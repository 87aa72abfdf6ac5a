package utils

import (
	"sync"
	"testing"
)

func TestKeyedLockSerializesSameKey(t *testing.T) {
	l := NewKeyedLock()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Lock("a@x.com")
			counter++
			l.Unlock("a@x.com")
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("expected 100 got %d", counter)
	}
}

func TestKeyedLockStableStripe(t *testing.T) {
	l := NewKeyedLock()
	if l.stripe("x") != l.stripe("x") {
		t.Fatalf("same key mapped to different stripes")
	}
}

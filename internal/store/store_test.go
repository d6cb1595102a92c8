// Package store_test contains the unit tests for the store package.
package store

import (
	"fmt"
	"sync"
	"testing"
)

// TestStore_Lifecycle tests storing, loading and overwriting a key.
func TestStore_Lifecycle(t *testing.T) {
	s := NewStore()
	key := "aboba"
	hash1 := "baboba"
	hash2 := "dedoba"

	// 1. Get a non-existent key
	if _, ok := s.Get(key); ok {
		t.Errorf("expected key '%s' to not exist, but it does", key)
	}
	if s.Size() != 0 {
		t.Errorf("expected empty store, got size %d", s.Size())
	}

	// 2. Put a new key
	s.Put(key, hash1)
	retrieved, ok := s.Get(key)
	if !ok {
		t.Fatalf("expected key '%s' to exist, but it does not", key)
	}
	if retrieved != hash1 {
		t.Errorf("expected hash '%s', but got '%s'", hash1, retrieved)
	}

	// 3. Overwrite the key, last write wins and size does not grow
	s.Put(key, hash2)
	retrieved, _ = s.Get(key)
	if retrieved != hash2 {
		t.Errorf("expected updated hash '%s', but got '%s'", hash2, retrieved)
	}
	if s.Size() != 1 {
		t.Errorf("expected size 1 after overwrite, got %d", s.Size())
	}
}

func TestNewSharded(t *testing.T) {
	for _, n := range []int{1, 2, 64} {
		s, err := NewSharded(n)
		if err != nil {
			t.Fatalf("NewSharded(%d): unexpected error: %v", n, err)
		}
		for i := 0; i < 100; i++ {
			s.Put(fmt.Sprintf("k%d", i), "v")
		}
		if s.Size() != 100 {
			t.Errorf("NewSharded(%d): expected size 100, got %d", n, s.Size())
		}
	}

	for _, n := range []int{0, -4, 3, 12} {
		if _, err := NewSharded(n); err == nil {
			t.Errorf("NewSharded(%d): expected an error, got none", n)
		}
	}
}

// TestStore_Concurrency stores distinct keys from many goroutines and
// checks that no update was lost.
func TestStore_Concurrency(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	numGoroutines := 100
	numOperations := 1000

	s.Put("initial_key", "initial_value")

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(goroutineID int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := fmt.Sprintf("key_%d_%d", goroutineID, j)
				if j%2 == 0 {
					s.Put(key, key)
				} else {
					s.Get("initial_key")
					s.Size()
				}
			}
		}(i)
	}
	wg.Wait()

	want := numGoroutines*numOperations/2 + 1
	if got := s.Size(); got != want {
		t.Fatalf("expected %d keys, got %d", want, got)
	}
	for i := 0; i < numGoroutines; i++ {
		key := fmt.Sprintf("key_%d_%d", i, 0)
		if v, ok := s.Get(key); !ok || v != key {
			t.Errorf("lost update for %s", key)
		}
	}
}

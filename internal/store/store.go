// Package store contains the core logic for the in-memory key-value store.
// It is designed to be thread-safe for concurrent access.
package store

import (
	"fmt"
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShards is the shard count used when none is configured.
const DefaultShards = 16

// shard is one independently locked slice of the keyspace.
type shard struct {
	mu   sync.RWMutex
	data map[string]string
}

// Store is a thread-safe in-memory mapping from key to hash.
// Keys are spread over a fixed number of shards so that writers to
// different keys rarely contend for the same lock.
type Store struct {
	shards []*shard
	mask   uint32
}

// NewStore initializes and returns a new empty Store with DefaultShards shards.
func NewStore() *Store {
	s, _ := NewSharded(DefaultShards)
	return s
}

// NewSharded returns an empty Store split into n shards.
// n must be a power of two; 1 gives a single lock around the whole map.
func NewSharded(n int) (*Store, error) {
	if n < 1 || n&(n-1) != 0 {
		return nil, fmt.Errorf("store: shard count %d is not a power of two", n)
	}
	s := &Store{
		shards: make([]*shard, n),
		mask:   uint32(n - 1),
	}
	for i := range s.shards {
		s.shards[i] = &shard{data: make(map[string]string)}
	}
	return s, nil
}

func (s *Store) shardFor(key string) *shard {
	return s.shards[murmur3.Sum32([]byte(key))&s.mask]
}

// Put adds or overwrites the hash stored under key.
func (s *Store) Put(key, hash string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.data[key] = hash
	sh.mu.Unlock()
}

// Get retrieves the hash for a given key.
func (s *Store) Get(key string) (string, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	hash, ok := sh.data[key]
	sh.mu.RUnlock()
	return hash, ok
}

// Size returns the number of stored keys.
// Shards are counted one after another, so under concurrent writes the
// result is only approximate.
func (s *Store) Size() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.data)
		sh.mu.RUnlock()
	}
	return n
}

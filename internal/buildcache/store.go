// Package buildcache persists per-file check results so that a program can be
// reconstructed incrementally from a previous run.
package buildcache

import (
	"sync"
)

// Store is the injected incremental-state backend.
type Store interface {
	// Get returns the entry stored under key. A missing or stale entry is
	// reported as ok == false with a nil error.
	Get(key Digest) (entry *Entry, ok bool, err error)
	// Put stores entry under key, replacing any previous value.
	Put(key Digest, entry *Entry) error
}

// MemoryStore is a per-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Digest]*Entry
}

// NewMemoryStore creates a MemoryStore with the given capacity hint.
func NewMemoryStore(capHint int) *MemoryStore {
	return &MemoryStore{entries: make(map[Digest]*Entry, capHint)}
}

func (s *MemoryStore) Get(key Digest) (*Entry, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || e.Schema != SchemaVersion {
		return nil, false, nil
	}
	cp := *e
	return &cp, true, nil
}

func (s *MemoryStore) Put(key Digest, entry *Entry) error {
	if entry == nil {
		return nil
	}
	cp := *entry
	if cp.Schema == 0 {
		cp.Schema = SchemaVersion
	}
	s.mu.Lock()
	s.entries[key] = &cp
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

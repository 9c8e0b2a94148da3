package store

import (
	"errors"
	"sync"

	"github.com/i474232898/spaceweather/internal/weather"
)

var (
	// ErrNotFound is returned before anything has been published.
	ErrNotFound = errors.New("no snapshot available")
)

// MemoryStore is a concurrency-safe single-slot store. It holds the newest
// published view plus the most recent snapshot that had any valid data.
type MemoryStore struct {
	mu sync.RWMutex

	latest    weather.View
	hasLatest bool

	last    weather.Snapshot
	hasLast bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save publishes v unless the store already holds a higher generation.
// Views without a successful snapshot replace the latest view but leave the
// last valid snapshot untouched.
func (s *MemoryStore) Save(v weather.View) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasLatest && v.Generation < s.latest.Generation {
		return false
	}

	s.latest = v
	s.hasLatest = true

	if v.Snapshot != nil && v.Snapshot.Succeeded() > 0 {
		s.last = *v.Snapshot
		s.hasLast = true
	}
	return true
}

// Latest returns the newest published view.
func (s *MemoryStore) Latest() (weather.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasLatest {
		return weather.View{}, ErrNotFound
	}
	return s.latest, nil
}

// LastSnapshot returns the most recent snapshot that had at least one valid source.
func (s *MemoryStore) LastSnapshot() (weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasLast {
		return weather.Snapshot{}, ErrNotFound
	}
	return s.last, nil
}

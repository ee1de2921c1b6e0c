package store

import (
	"sync"

	"github.com/i474232898/city-weather/internal/metrics"
	"github.com/i474232898/city-weather/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory holder of the current snapshot.
// The held slice is never mutated in place; writers swap in a new one.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot weather.WeatherSnapshot
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshot: weather.WeatherSnapshot{}}
}

// Replace swaps the held snapshot for a copy of snapshot.
func (s *MemoryStore) Replace(snapshot weather.WeatherSnapshot) {
	next := snapshot.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = next
	metrics.SnapshotSize.Set(float64(len(next)))
}

// RemoveByLabel drops the reading with the given label. If there is none,
// weather.ErrNotFound is returned and the snapshot is left as it was.
func (s *MemoryStore) RemoveByLabel(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.snapshot {
		if r.Label == label {
			idx = i
			break
		}
	}
	if idx < 0 {
		return weather.ErrNotFound
	}

	next := make(weather.WeatherSnapshot, 0, len(s.snapshot)-1)
	next = append(next, s.snapshot[:idx]...)
	next = append(next, s.snapshot[idx+1:]...)
	s.snapshot = next

	metrics.SnapshotSize.Set(float64(len(next)))
	return nil
}

// Current returns a copy of the held snapshot.
func (s *MemoryStore) Current() weather.WeatherSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot.Clone()
}

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
)

// MemoryStore is a concurrency-safe in-memory implementation of the event
// store, keyed by the natural key so repeated upserts overwrite in place.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]astro.Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]astro.Event),
	}
}

// Upsert writes each event under its natural key.
func (s *MemoryStore) Upsert(ctx context.Context, events []astro.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		s.events[e.Key()] = e
	}
	return nil
}

// List returns one page of events matching the filter, ordered by OccursAt
// ascending with ID as tiebreak, plus the total match count.
func (s *MemoryStore) List(ctx context.Context, f astro.Filter) ([]astro.Event, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]astro.Event, 0, len(s.events))
	for _, e := range s.events {
		if !f.From.IsZero() && e.OccursAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.OccursAt.After(f.To) {
			continue
		}
		if f.Source != "" && e.Source != f.Source {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OccursAt.Equal(matched[j].OccursAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].OccursAt.Before(matched[j].OccursAt)
	})

	total := len(matched)

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []astro.Event{}, total, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	return matched, total, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

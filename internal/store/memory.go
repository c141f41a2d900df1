package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

// MemorySignalStore is a concurrent-safe in-memory SignalStore. It backs
// tests and single-node deployments without Postgres.
type MemorySignalStore struct {
	mu    sync.RWMutex
	byID  map[string]types.Signal
	byKey map[types.GroupKey][]string
}

// NewMemorySignalStore creates an empty in-memory signal store.
func NewMemorySignalStore() *MemorySignalStore {
	return &MemorySignalStore{
		byID:  make(map[string]types.Signal),
		byKey: make(map[types.GroupKey][]string),
	}
}

// Append implements SignalStore. Idempotent on signal id.
func (m *MemorySignalStore) Append(_ context.Context, s types.Signal) (types.Signal, error) {
	if err := s.Validate(); err != nil {
		return types.Signal{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byID[s.ID]; ok {
		return existing, nil
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	m.byID[s.ID] = s
	m.byKey[s.Key()] = append(m.byKey[s.Key()], s.ID)
	return s, nil
}

// Query implements SignalStore.
func (m *MemorySignalStore) Query(_ context.Context, key types.GroupKey, from, to time.Time) ([]types.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []types.Signal
	for _, id := range m.byKey[key] {
		s := m.byID[id]
		if s.ObservedAt.Before(from) || s.ObservedAt.After(to) {
			continue
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ObservedAt.Equal(result[j].ObservedAt) {
			return result[i].ObservedAt.Before(result[j].ObservedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Get implements SignalStore.
func (m *MemorySignalStore) Get(_ context.Context, id string) (types.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.byID[id]
	if !ok {
		return types.Signal{}, &types.NotFoundError{Kind: "signal", ID: id}
	}
	return s, nil
}

// Count returns the number of stored signals.
func (m *MemorySignalStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// MemoryEventStore is a concurrent-safe in-memory EventStore with
// optimistic-concurrency versioning.
type MemoryEventStore struct {
	mu   sync.RWMutex
	byID map[string]types.Event
}

// NewMemoryEventStore creates an empty in-memory event store.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{byID: make(map[string]types.Event)}
}

// Upsert implements EventStore.
func (m *MemoryEventStore) Upsert(_ context.Context, e types.Event) (types.Event, error) {
	if e.ID == "" {
		return types.Event{}, &types.ValidationError{Field: "id", Reason: "event id is required"}
	}
	if len(e.SupportingSignalIDs) == 0 {
		return types.Event{}, &types.ValidationError{Field: "supporting_signal_ids", Reason: "an event needs at least one supporting signal"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.byID[e.ID]
	if exists && current.Version != e.Version {
		return types.Event{}, &types.ConflictError{Kind: "event", ID: e.ID, Version: e.Version}
	}
	if !exists && e.Version != 0 {
		return types.Event{}, &types.ConflictError{Kind: "event", ID: e.ID, Version: e.Version}
	}

	stored := e.Clone()
	stored.Version = e.Version + 1
	m.byID[e.ID] = stored
	return stored.Clone(), nil
}

// Get implements EventStore.
func (m *MemoryEventStore) Get(_ context.Context, id string) (types.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.byID[id]
	if !ok {
		return types.Event{}, &types.NotFoundError{Kind: "event", ID: id}
	}
	return e.Clone(), nil
}

// OpenByKey implements EventStore.
func (m *MemoryEventStore) OpenByKey(_ context.Context, key types.GroupKey) ([]types.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []types.Event
	for _, e := range m.byID {
		if e.Key() == key && e.Status.Open() {
			result = append(result, e.Clone())
		}
	}
	sortEvents(result)
	return result, nil
}

// List implements EventStore.
func (m *MemoryEventStore) List(_ context.Context, f EventFilter) ([]types.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []types.Event
	for _, e := range m.byID {
		if f.DisasterType != "" && e.DisasterType != f.DisasterType {
			continue
		}
		if f.Region != "" && e.Region != f.Region {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		result = append(result, e.Clone())
	}
	sortEvents(result)
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

// sortEvents orders newest LastObservedAt first, id ascending on ties.
func sortEvents(events []types.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].LastObservedAt.Equal(events[j].LastObservedAt) {
			return events[i].LastObservedAt.After(events[j].LastObservedAt)
		}
		return events[i].ID < events[j].ID
	})
}

// Package store holds the signal and event persistence interfaces consumed
// by the correlator, plus in-memory and Postgres implementations.
package store

import (
	"context"
	"time"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

// SignalStore is the append-only collection of extracted facts.
type SignalStore interface {
	// Append stores a signal. It is idempotent on signal identity: appending
	// an id that already exists returns the stored signal unchanged.
	Append(ctx context.Context, s types.Signal) (types.Signal, error)

	// Query returns signals for the grouping key whose ObservedAt falls in
	// [from, to], ordered by ObservedAt ascending then ID ascending so window
	// evaluation is deterministic and replayable.
	Query(ctx context.Context, key types.GroupKey, from, to time.Time) ([]types.Signal, error)

	// Get returns the signal with the given id.
	Get(ctx context.Context, id string) (types.Signal, error)
}

// EventFilter narrows EventStore.List results. Zero values match everything.
type EventFilter struct {
	DisasterType types.DisasterType
	Region       string
	Status       types.EventStatus
	Limit        int
}

// EventStore persists events with optimistic concurrency. The correlator is
// the only writer; the store still rejects stale overwrites so a violated
// single-writer assumption surfaces as a ConflictError instead of lost data.
type EventStore interface {
	// Upsert writes the event. A new event must carry Version 0; an update
	// must carry the version read. On success the stored event is returned
	// with Version incremented. A stale version yields a ConflictError.
	Upsert(ctx context.Context, e types.Event) (types.Event, error)

	// Get returns the event with the given id.
	Get(ctx context.Context, id string) (types.Event, error)

	// OpenByKey returns events for the key with an open status, ordered by
	// LastObservedAt descending then ID ascending.
	OpenByKey(ctx context.Context, key types.GroupKey) ([]types.Event, error)

	// List returns events matching the filter, newest LastObservedAt first.
	List(ctx context.Context, f EventFilter) ([]types.Event, error)
}

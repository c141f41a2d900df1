package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thejenniferfang/disaster-response/internal/testutil"
	"github.com/thejenniferfang/disaster-response/internal/types"
)

func TestSignalAppendIdempotent(t *testing.T) {
	s := NewMemorySignalStore()
	ctx := context.Background()

	first := testutil.MakeSignal("sig-1", types.DisasterFlood, "Sindh,PK", 0)
	stored, err := s.Append(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "sig-1", stored.ID)

	// Re-appending the same id returns the original, ignoring new content.
	changed := first
	changed.Region = "Punjab,PK"
	again, err := s.Append(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, "Sindh,PK", again.Region)
	assert.Equal(t, 1, s.Count())
}

func TestSignalAppendRejectsInvalid(t *testing.T) {
	s := NewMemorySignalStore()
	_, err := s.Append(context.Background(), types.Signal{ID: "bad"})
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestSignalQueryWindowAndOrdering(t *testing.T) {
	s := NewMemorySignalStore()
	ctx := context.Background()
	key := types.GroupKey{DisasterType: types.DisasterFlood, Region: "Sindh,PK"}

	// Inserted out of order on purpose.
	for _, offset := range []time.Duration{20 * time.Minute, 0, 10 * time.Minute, 45 * time.Minute} {
		sig := testutil.MakeSignal("sig-"+offset.String(), types.DisasterFlood, "Sindh,PK", offset)
		_, err := s.Append(ctx, sig)
		require.NoError(t, err)
	}
	// Different key must never leak into the window.
	_, err := s.Append(ctx, testutil.MakeSignal("other", types.DisasterFire, "Sindh,PK", 0))
	require.NoError(t, err)

	from := testutil.BaseTime
	to := testutil.BaseTime.Add(30 * time.Minute)
	got, err := s.Query(ctx, key, from, to)
	require.NoError(t, err)

	require.Len(t, got, 3, "45m signal and foreign key must be excluded")
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].ObservedAt.Before(got[i-1].ObservedAt), "ordering must be ObservedAt ascending")
	}
}

func TestSignalQueryBoundsInclusive(t *testing.T) {
	s := NewMemorySignalStore()
	ctx := context.Background()
	key := types.GroupKey{DisasterType: types.DisasterFlood, Region: "Sindh,PK"}

	_, err := s.Append(ctx, testutil.MakeSignal("edge", types.DisasterFlood, "Sindh,PK", 30*time.Minute))
	require.NoError(t, err)

	got, err := s.Query(ctx, key, testutil.BaseTime, testutil.BaseTime.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Len(t, got, 1, "window bounds are inclusive")
}

func TestSignalGetNotFound(t *testing.T) {
	s := NewMemorySignalStore()
	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
}

func TestEventUpsertVersioning(t *testing.T) {
	es := NewMemoryEventStore()
	ctx := context.Background()

	e := testutil.MakeEvent("ev-1", types.DisasterFlood, "Sindh,PK", types.SeverityMedium, []string{"a"}, 10*time.Minute)

	stored, err := es.Upsert(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)

	// Update with the read version succeeds.
	stored.SupportingSignalIDs = append(stored.SupportingSignalIDs, "b")
	updated, err := es.Upsert(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	// Stale version is rejected.
	stale := stored
	stale.Version = 1
	_, err = es.Upsert(ctx, stale)
	require.Error(t, err)
	assert.True(t, types.IsConflict(err))

	// A "new" event with nonzero version is also rejected.
	fresh := testutil.MakeEvent("ev-2", types.DisasterFlood, "Sindh,PK", types.SeverityLow, []string{"c"}, 0)
	fresh.Version = 5
	_, err = es.Upsert(ctx, fresh)
	require.Error(t, err)
	assert.True(t, types.IsConflict(err))
}

func TestEventUpsertRejectsEmpty(t *testing.T) {
	es := NewMemoryEventStore()
	_, err := es.Upsert(context.Background(), types.Event{ID: "ev-1"})
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestEventOpenByKey(t *testing.T) {
	es := NewMemoryEventStore()
	ctx := context.Background()
	key := types.GroupKey{DisasterType: types.DisasterFlood, Region: "Sindh,PK"}

	older := testutil.MakeEvent("ev-old", types.DisasterFlood, "Sindh,PK", types.SeverityLow, []string{"a"}, 5*time.Minute)
	newer := testutil.MakeEvent("ev-new", types.DisasterFlood, "Sindh,PK", types.SeverityLow, []string{"b"}, 25*time.Minute)
	staleEv := testutil.MakeEvent("ev-stale", types.DisasterFlood, "Sindh,PK", types.SeverityLow, []string{"c"}, 1*time.Minute)
	staleEv.Status = types.StatusStale

	for _, e := range []types.Event{older, newer, staleEv} {
		_, err := es.Upsert(ctx, e)
		require.NoError(t, err)
	}

	open, err := es.OpenByKey(ctx, key)
	require.NoError(t, err)
	require.Len(t, open, 2, "stale events are not open")
	assert.Equal(t, "ev-new", open[0].ID, "newest LastObservedAt first")
	assert.Equal(t, "ev-old", open[1].ID)
}

func TestEventListFilters(t *testing.T) {
	es := NewMemoryEventStore()
	ctx := context.Background()

	flood := testutil.MakeEvent("ev-flood", types.DisasterFlood, "Sindh,PK", types.SeverityHigh, []string{"a"}, 0)
	fire := testutil.MakeEvent("ev-fire", types.DisasterFire, "Attica,GR", types.SeverityLow, []string{"b"}, 0)
	for _, e := range []types.Event{flood, fire} {
		_, err := es.Upsert(ctx, e)
		require.NoError(t, err)
	}

	got, err := es.List(ctx, EventFilter{DisasterType: types.DisasterFlood})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ev-flood", got[0].ID)

	got, err = es.List(ctx, EventFilter{Region: "Attica,GR"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ev-fire", got[0].ID)

	got, err = es.List(ctx, EventFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEventGetReturnsCopy(t *testing.T) {
	es := NewMemoryEventStore()
	ctx := context.Background()

	e := testutil.MakeEvent("ev-1", types.DisasterFlood, "Sindh,PK", types.SeverityMedium, []string{"a"}, 0)
	_, err := es.Upsert(ctx, e)
	require.NoError(t, err)

	got, err := es.Get(ctx, "ev-1")
	require.NoError(t, err)
	got.SupportingSignalIDs[0] = "mutated"

	again, err := es.Get(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.SupportingSignalIDs[0], "callers must not be able to mutate stored state")
}

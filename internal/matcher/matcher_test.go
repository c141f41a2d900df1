package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thejenniferfang/disaster-response/internal/registry"
	"github.com/thejenniferfang/disaster-response/internal/testutil"
	"github.com/thejenniferfang/disaster-response/internal/types"
)

func newTestMatcher(t *testing.T, reg registry.NGORegistry, opts Options) *Matcher {
	t.Helper()
	m, err := New(reg, zap.NewNop(), opts)
	require.NoError(t, err)
	return m
}

func floodEvent(region string) types.Event {
	return testutil.MakeEvent("ev-1", types.DisasterFlood, region, types.SeverityHigh, []string{"a", "b", "c"}, 10*time.Minute)
}

func TestNewRejectsBadOptions(t *testing.T) {
	reg := registry.NewMemoryRegistry()

	tests := []struct {
		name string
		opts Options
	}{
		{"weights do not sum to 1", Options{Weights: Weights{Capability: 0.5, Geographic: 0.5, Capacity: 0.5}, PartialCoverageCredit: 0.5, TopK: 5, MinScore: 0.3}},
		{"negative weight", Options{Weights: Weights{Capability: 1.2, Geographic: -0.2, Capacity: 0}, PartialCoverageCredit: 0.5, TopK: 5, MinScore: 0.3}},
		{"zero top k", Options{Weights: DefaultWeights(), PartialCoverageCredit: 0.5, TopK: 0, MinScore: 0.3}},
		{"min score above 1", Options{Weights: DefaultWeights(), PartialCoverageCredit: 0.5, TopK: 5, MinScore: 1.5}},
		{"partial credit above 1", Options{Weights: DefaultWeights(), PartialCoverageCredit: 1.5, TopK: 5, MinScore: 0.3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(reg, zap.NewNop(), tt.opts)
			require.Error(t, err)
			assert.True(t, types.IsValidation(err))
		})
	}
}

func TestMatchCapabilityHardFilter(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	// Huge capacity and perfect coverage cannot compensate for a capability
	// mismatch.
	reg.Upsert(testutil.MakeNGO("ngo-fire", []types.DisasterType{types.DisasterFire}, []string{"Sindh,PK"}, 1.0))
	reg.Upsert(testutil.MakeNGO("ngo-flood", []types.DisasterType{types.DisasterFlood}, []string{"Sindh,PK"}, 0.1))

	m := newTestMatcher(t, reg, DefaultOptions())
	matches, err := m.Match(context.Background(), floodEvent("Sindh,PK"))
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "ngo-flood", matches[0].NGOID)
}

func TestMatchGeographicHardFilter(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	reg.Upsert(testutil.MakeNGO("ngo-elsewhere", []types.DisasterType{types.DisasterFlood}, []string{"Attica,GR"}, 1.0))

	m := newTestMatcher(t, reg, DefaultOptions())
	matches, err := m.Match(context.Background(), floodEvent("Sindh,PK"))
	require.NoError(t, err)
	assert.Empty(t, matches, "zero geographic overlap is disqualifying")
}

func TestMatchExcludesInactive(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	n := testutil.MakeNGO("ngo-dormant", []types.DisasterType{types.DisasterFlood}, []string{"Sindh,PK"}, 1.0)
	n.Active = false
	reg.Upsert(n)

	m := newTestMatcher(t, reg, DefaultOptions())
	matches, err := m.Match(context.Background(), floodEvent("Sindh,PK"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchScoring(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	reg.Upsert(testutil.MakeNGO("ngo-exact", []types.DisasterType{types.DisasterFlood}, []string{"Sindh,PK"}, 1.0))
	reg.Upsert(testutil.MakeNGO("ngo-national", []types.DisasterType{types.DisasterFlood}, []string{"PK"}, 1.0))
	reg.Upsert(testutil.MakeNGO("ngo-global", []types.DisasterType{types.DisasterFlood}, []string{"global"}, 0.5))

	m := newTestMatcher(t, reg, DefaultOptions())
	matches, err := m.Match(context.Background(), floodEvent("Sindh,PK"))
	require.NoError(t, err)
	require.Len(t, matches, 3)

	// Exact coverage, full capacity: 0.5 + 0.3*1.0 + 0.2*1.0 = 1.0.
	assert.Equal(t, "ngo-exact", matches[0].NGOID)
	assert.InDelta(t, 1.0, matches[0].RelevanceScore, 1e-9)

	// National coverage, full capacity: 0.5 + 0.3*0.5 + 0.2*1.0 = 0.85.
	assert.Equal(t, "ngo-national", matches[1].NGOID)
	assert.InDelta(t, 0.85, matches[1].RelevanceScore, 1e-9)

	// Global coverage, half capacity: 0.5 + 0.3*0.5 + 0.2*0.5 = 0.75.
	assert.Equal(t, "ngo-global", matches[2].NGOID)
	assert.InDelta(t, 0.75, matches[2].RelevanceScore, 1e-9)

	for _, match := range matches {
		assert.NotEmpty(t, match.Reasons, "every match carries its rationale")
		assert.Equal(t, "ev-1", match.EventID)
	}
}

func TestMatchTieBreakDeterministic(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	// Identical scores and capacities: id ascending decides.
	reg.Upsert(testutil.MakeNGO("ngo-b", []types.DisasterType{types.DisasterFlood}, []string{"Sindh,PK"}, 0.7))
	reg.Upsert(testutil.MakeNGO("ngo-a", []types.DisasterType{types.DisasterFlood}, []string{"Sindh,PK"}, 0.7))

	m := newTestMatcher(t, reg, DefaultOptions())
	for i := 0; i < 10; i++ {
		matches, err := m.Match(context.Background(), floodEvent("Sindh,PK"))
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "ngo-a", matches[0].NGOID)
		assert.Equal(t, "ngo-b", matches[1].NGOID)
	}
}

func TestMatchTopKAndThreshold(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	reg.Upsert(testutil.MakeNGO("ngo-1", []types.DisasterType{types.DisasterFlood}, []string{"Sindh,PK"}, 1.0))
	reg.Upsert(testutil.MakeNGO("ngo-2", []types.DisasterType{types.DisasterFlood}, []string{"Sindh,PK"}, 0.9))
	reg.Upsert(testutil.MakeNGO("ngo-3", []types.DisasterType{types.DisasterFlood}, []string{"Sindh,PK"}, 0.8))

	opts := DefaultOptions()
	opts.TopK = 2
	m := newTestMatcher(t, reg, opts)
	matches, err := m.Match(context.Background(), floodEvent("Sindh,PK"))
	require.NoError(t, err)
	assert.Len(t, matches, 2, "top K caps the list")

	// A threshold above every achievable score empties the list rather than
	// padding it.
	opts = DefaultOptions()
	opts.MinScore = 0.99
	opts.Weights = Weights{Capability: 0.5, Geographic: 0.3, Capacity: 0.2}
	m = newTestMatcher(t, reg, opts)
	matches, err = m.Match(context.Background(), floodEvent("Sindh,PK"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "only the perfect score clears 0.99")
	assert.Equal(t, "ngo-1", matches[0].NGOID)
}

func TestMatchMinScoreInclusive(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	reg.Upsert(testutil.MakeNGO("ngo-1", []types.DisasterType{types.DisasterFlood}, []string{"Sindh,PK"}, 1.0))

	opts := DefaultOptions()
	opts.MinScore = 1.0
	m := newTestMatcher(t, reg, opts)
	matches, err := m.Match(context.Background(), floodEvent("Sindh,PK"))
	require.NoError(t, err)
	assert.Len(t, matches, 1, "a score exactly at the threshold qualifies")
}

func TestMatchStaleEvent(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	reg.Upsert(testutil.MakeNGO("ngo-1", []types.DisasterType{types.DisasterFlood}, []string{"Sindh,PK"}, 1.0))

	m := newTestMatcher(t, reg, DefaultOptions())
	e := floodEvent("Sindh,PK")
	e.Status = types.StatusStale

	matches, err := m.Match(context.Background(), e)
	require.NoError(t, err)
	assert.Empty(t, matches, "stale events are excluded from matching")
}

func TestMatchEmptyRegistry(t *testing.T) {
	m := newTestMatcher(t, registry.NewMemoryRegistry(), DefaultOptions())
	matches, err := m.Match(context.Background(), floodEvent("Sindh,PK"))
	require.NoError(t, err)
	assert.Empty(t, matches, "no matches is a valid outcome, not an error")
}

func TestMatchRejectsMalformedEvent(t *testing.T) {
	m := newTestMatcher(t, registry.NewMemoryRegistry(), DefaultOptions())

	_, err := m.Match(context.Background(), types.Event{})
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestGeographicScore(t *testing.T) {
	m := newTestMatcher(t, registry.NewMemoryRegistry(), DefaultOptions())

	tests := []struct {
		name     string
		coverage []string
		region   string
		expected float64
	}{
		{"exact region", []string{"Sindh,PK"}, "Sindh,PK", 1.0},
		{"country tag", []string{"PK"}, "Sindh,PK", 0.5},
		{"global tag", []string{"global"}, "Sindh,PK", 0.5},
		{"exact beats partial", []string{"PK", "Sindh,PK"}, "Sindh,PK", 1.0},
		{"wrong country tag", []string{"IN"}, "Sindh,PK", 0.0},
		{"no overlap", []string{"Attica,GR"}, "Sindh,PK", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := testutil.MakeNGO("ngo", []types.DisasterType{types.DisasterFlood}, tt.coverage, 1.0)
			score, _ := m.geographicScore(n, tt.region)
			assert.InDelta(t, tt.expected, score, 1e-9)
		})
	}
}

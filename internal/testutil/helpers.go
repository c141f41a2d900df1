// Package testutil provides shared test helpers for the disaster-response
// project. Import this in test files to avoid duplicating fixture builders.
package testutil

import (
	"time"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

// BaseTime is a fixed reference instant fixture builders offset from, so
// tests stay deterministic regardless of wall clock.
var BaseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// MakeSignal creates a test Signal observed at BaseTime plus the given
// offset. Use for building corroboration sequences in correlator tests.
func MakeSignal(id string, dt types.DisasterType, region string, offset time.Duration) types.Signal {
	return types.Signal{
		ID:           id,
		SourceRef:    "source://" + id,
		DisasterType: dt,
		Region:       region,
		ObservedAt:   BaseTime.Add(offset),
		CreatedAt:    BaseTime.Add(offset),
	}
}

// MakeSignalWithHint is MakeSignal with a severity hint attached.
func MakeSignalWithHint(id string, dt types.DisasterType, region string, offset time.Duration, hint types.Severity) types.Signal {
	s := MakeSignal(id, dt, region, offset)
	s.SeverityHint = hint
	return s
}

// MakeNGO creates an active test NGO with the given capabilities and
// coverage. Use for registry and matcher tests.
func MakeNGO(id string, aidTypes []types.DisasterType, coverage []string, capacity float64) types.NGO {
	return types.NGO{
		ID:              id,
		Name:            "Test Org " + id,
		AidTypes:        aidTypes,
		CoverageRegions: coverage,
		CapacityWeight:  capacity,
		ContactEmail:    id + "@example.org",
		Active:          true,
	}
}

// MakeEvent creates a test Event spanning BaseTime to BaseTime plus span.
func MakeEvent(id string, dt types.DisasterType, region string, severity types.Severity, signalIDs []string, span time.Duration) types.Event {
	return types.Event{
		ID:                  id,
		DisasterType:        dt,
		Region:              region,
		Severity:            severity,
		FirstObservedAt:     BaseTime,
		LastObservedAt:      BaseTime.Add(span),
		SupportingSignalIDs: signalIDs,
		Status:              types.StatusActive,
	}
}

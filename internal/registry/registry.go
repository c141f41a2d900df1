// Package registry provides read access to the NGO catalog. The matcher
// treats registry filtering as an optimization only and re-validates every
// hard filter itself.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

// Query narrows candidate retrieval. Zero values match everything.
type Query struct {
	DisasterType types.DisasterType
	Region       string
}

// NGORegistry is the read-only catalog of response organizations.
type NGORegistry interface {
	// Query returns active NGOs matching q, ordered by id ascending.
	Query(ctx context.Context, q Query) ([]types.NGO, error)

	// Get returns the NGO with the given id.
	Get(ctx context.Context, id string) (types.NGO, error)
}

// MemoryRegistry is a concurrent-safe in-memory NGORegistry. The registry
// collaborator owns the data; Upsert/Delete exist for seeding and tests.
type MemoryRegistry struct {
	mu   sync.RWMutex
	byID map[string]types.NGO
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{byID: make(map[string]types.NGO)}
}

// Upsert adds the NGO or replaces an existing one with the same id.
func (r *MemoryRegistry) Upsert(n types.NGO) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[n.ID] = n
}

// Delete removes the NGO with the given id. No-op if absent.
func (r *MemoryRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// Query implements NGORegistry.
func (r *MemoryRegistry) Query(_ context.Context, q Query) ([]types.NGO, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []types.NGO
	for _, n := range r.byID {
		if !n.Active {
			continue
		}
		if q.DisasterType != "" && !n.Handles(q.DisasterType) {
			continue
		}
		if q.Region != "" && !coversLoosely(n, q.Region) {
			continue
		}
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Get implements NGORegistry.
func (r *MemoryRegistry) Get(_ context.Context, id string) (types.NGO, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.byID[id]
	if !ok {
		return types.NGO{}, &types.NotFoundError{Kind: "ngo", ID: id}
	}
	return n, nil
}

// Count returns the number of registered NGOs.
func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// coversLoosely is the registry-side pre-filter: exact region, country tag,
// or global coverage all pass. The matcher applies the precise scoring.
func coversLoosely(n types.NGO, region string) bool {
	country := types.RegionCountry(region)
	for _, entry := range n.CoverageRegions {
		if entry == region || entry == types.GlobalCoverageTag {
			return true
		}
		if types.IsCountryTag(entry) && entry == country {
			return true
		}
	}
	return false
}

package matcher

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/thejenniferfang/disaster-response/internal/registry"
	"github.com/thejenniferfang/disaster-response/internal/types"
)

const (
	defaultPartialCoverageCredit = 0.5
	defaultTopK                  = 5
	defaultMinScore              = 0.3
)

// Weights are the scoring coefficients. They must sum to 1 so scores stay
// in [0, 1].
type Weights struct {
	Capability float64 `yaml:"capability" json:"capability"`
	Geographic float64 `yaml:"geographic" json:"geographic"`
	Capacity   float64 `yaml:"capacity" json:"capacity"`
}

// DefaultWeights returns the documented defaults (0.5 / 0.3 / 0.2).
func DefaultWeights() Weights {
	return Weights{Capability: 0.5, Geographic: 0.3, Capacity: 0.2}
}

// Validate rejects negative weights and sums that drift from 1.
func (w Weights) Validate() error {
	if w.Capability < 0 || w.Geographic < 0 || w.Capacity < 0 {
		return &types.ValidationError{Field: "weights", Reason: "weights must be non-negative"}
	}
	sum := w.Capability + w.Geographic + w.Capacity
	if math.Abs(sum-1.0) > 1e-9 {
		return &types.ValidationError{Field: "weights", Reason: fmt.Sprintf("weights must sum to 1, got %g", sum)}
	}
	return nil
}

// Options configures the Matcher.
type Options struct {
	Weights Weights
	// PartialCoverageCredit is the geographic score for national or global
	// coverage that includes the event's country but not the exact region.
	PartialCoverageCredit float64
	// TopK caps the number of matches returned.
	TopK int
	// MinScore is the relevance threshold a match must meet. The list is
	// never padded with low-relevance NGOs to reach TopK.
	MinScore float64
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Weights:               DefaultWeights(),
		PartialCoverageCredit: defaultPartialCoverageCredit,
		TopK:                  defaultTopK,
		MinScore:              defaultMinScore,
	}
}

// Validate checks the option invariants.
func (o Options) Validate() error {
	if err := o.Weights.Validate(); err != nil {
		return err
	}
	if o.PartialCoverageCredit < 0 || o.PartialCoverageCredit > 1 {
		return &types.ValidationError{Field: "partial_coverage_credit", Reason: "must be in [0, 1]"}
	}
	if o.TopK <= 0 {
		return &types.ValidationError{Field: "top_k", Reason: "must be positive"}
	}
	if o.MinScore < 0 || o.MinScore > 1 {
		return &types.ValidationError{Field: "min_score", Reason: "must be in [0, 1]"}
	}
	return nil
}

// Matcher ranks NGOs against events.
type Matcher struct {
	logger   *zap.Logger
	registry registry.NGORegistry
	opts     Options
}

// New creates a Matcher. Returns an error when options are invalid so a bad
// weight configuration fails at startup, not per match.
func New(reg registry.NGORegistry, logger *zap.Logger, opts Options) (*Matcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{
		logger:   logger.Named("matcher"),
		registry: reg,
		opts:     opts,
	}, nil
}

// scored pairs an NGO with its composite score during ranking.
type scored struct {
	ngo   types.NGO
	score float64
	match types.Match
}

// Match returns the ranked, deduplicated NGOs worth alerting for the event.
// An empty list is a valid outcome, not an error. Stale events are excluded
// from matching and also yield an empty list.
func (m *Matcher) Match(ctx context.Context, e types.Event) ([]types.Match, error) {
	if e.ID == "" {
		return nil, &types.ValidationError{Field: "id", Reason: "event id is required"}
	}
	if e.DisasterType == "" || e.Region == "" {
		return nil, &types.ValidationError{Field: "disaster_type", Reason: "event disaster type and region are required"}
	}
	if e.Status == types.StatusStale {
		m.logger.Debug("Skipping stale event", zap.String("event", e.ID))
		return nil, nil
	}

	timer := startMatchTimer()
	defer timer.observe()

	// Registry filtering is an optimization only; hard filters below
	// re-validate every candidate regardless of what the registry returns.
	candidates, err := m.registry.Query(ctx, registry.Query{DisasterType: e.DisasterType})
	if err != nil {
		return nil, fmt.Errorf("query ngo registry: %w", err)
	}

	survivors := make([]scored, 0, len(candidates))
	maxCapacity := 0.0
	for _, n := range candidates {
		if !n.Active {
			continue
		}
		// Hard filter: capability mismatch is disqualifying.
		if !n.Handles(e.DisasterType) {
			continue
		}
		// Hard filter: zero geographic overlap is disqualifying.
		geo, geoReason := m.geographicScore(n, e.Region)
		if geo == 0 {
			continue
		}

		survivors = append(survivors, scored{
			ngo: n,
			match: types.Match{
				EventID: e.ID,
				NGOID:   n.ID,
				Reasons: []string{
					fmt.Sprintf("handles %s", e.DisasterType),
					geoReason,
				},
			},
			score: geo, // geographic component stashed until normalization
		})
		if n.CapacityWeight > maxCapacity {
			maxCapacity = n.CapacityWeight
		}
	}

	if len(survivors) == 0 {
		matchesReturned.Observe(0)
		return nil, nil
	}

	w := m.opts.Weights
	for i := range survivors {
		geo := survivors[i].score
		capacityNorm := 0.0
		if maxCapacity > 0 {
			capacityNorm = survivors[i].ngo.CapacityWeight / maxCapacity
		}
		score := w.Capability*1.0 + w.Geographic*geo + w.Capacity*capacityNorm
		survivors[i].score = score
		survivors[i].match.RelevanceScore = score
		survivors[i].match.Reasons = append(survivors[i].match.Reasons,
			fmt.Sprintf("capacity weight %.2f (%.2f of strongest candidate)", survivors[i].ngo.CapacityWeight, capacityNorm))
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].score != survivors[j].score {
			return survivors[i].score > survivors[j].score
		}
		if survivors[i].ngo.CapacityWeight != survivors[j].ngo.CapacityWeight {
			return survivors[i].ngo.CapacityWeight > survivors[j].ngo.CapacityWeight
		}
		return survivors[i].ngo.ID < survivors[j].ngo.ID
	})

	result := make([]types.Match, 0, m.opts.TopK)
	for _, s := range survivors {
		if s.score < m.opts.MinScore {
			break // sorted descending, nothing below clears the threshold
		}
		result = append(result, s.match)
		if len(result) == m.opts.TopK {
			break
		}
	}

	matchesReturned.Observe(float64(len(result)))
	m.logger.Debug("Matched NGOs for event",
		zap.String("event", e.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("matched", len(result)),
	)
	return result, nil
}

// geographicScore returns the geographic component and its explanation.
// Exact region coverage scores 1; national or global coverage including the
// event's country earns partial credit; anything else is 0 and excluded.
func (m *Matcher) geographicScore(n types.NGO, region string) (float64, string) {
	country := types.RegionCountry(region)
	partial := 0.0
	partialReason := ""
	for _, entry := range n.CoverageRegions {
		if entry == region {
			return 1.0, fmt.Sprintf("covers region %s", region)
		}
		if entry == types.GlobalCoverageTag {
			partial = m.opts.PartialCoverageCredit
			if partialReason == "" {
				partialReason = "global coverage (partial credit)"
			}
			continue
		}
		if types.IsCountryTag(entry) && entry == country {
			partial = m.opts.PartialCoverageCredit
			partialReason = fmt.Sprintf("national coverage %s (partial credit)", country)
		}
	}
	return partial, partialReason
}

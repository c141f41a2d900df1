package types

import (
	"strings"
	"time"
)

// DisasterType categorizes the kind of incident a signal reports.
type DisasterType string

const (
	DisasterFire       DisasterType = "fire"
	DisasterFlood      DisasterType = "flood"
	DisasterEarthquake DisasterType = "earthquake"
	DisasterOutage     DisasterType = "outage"
	DisasterStorm      DisasterType = "storm"
	DisasterOther      DisasterType = "other"
)

// KnownDisasterTypes lists every accepted disaster type.
var KnownDisasterTypes = []DisasterType{
	DisasterFire,
	DisasterFlood,
	DisasterEarthquake,
	DisasterOutage,
	DisasterStorm,
	DisasterOther,
}

// Valid reports whether dt is one of the known disaster types.
func (dt DisasterType) Valid() bool {
	for _, known := range KnownDisasterTypes {
		if dt == known {
			return true
		}
	}
	return false
}

// Severity is the strict ordered severity scale. The empty value means
// "no hint provided" and ranks below every real severity.
type Severity string

const (
	SeverityNone   Severity = ""
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns the severity ordinal (low < medium < high). The empty
// severity ranks at 0 so a max-of-hints fold can ignore it.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is empty or a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// MaxSeverity returns the higher-ranked of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// EventStatus is the lifecycle state of an Event.
type EventStatus string

const (
	StatusCandidate EventStatus = "candidate"
	StatusActive    EventStatus = "active"
	StatusNotified  EventStatus = "notified"
	StatusStale     EventStatus = "stale"
)

// Open reports whether the event can still accept signals and be matched.
func (s EventStatus) Open() bool {
	switch s {
	case StatusCandidate, StatusActive, StatusNotified:
		return true
	default:
		return false
	}
}

// GroupKey is the correlation grouping key. Signals with different keys
// never merge into the same Event. Region is an opaque equality key;
// normalization happens upstream in the extraction collaborator.
type GroupKey struct {
	DisasterType DisasterType `json:"disaster_type"`
	Region       string       `json:"region"`
}

// String renders the key for logging and per-key lock indexing.
func (k GroupKey) String() string {
	return string(k.DisasterType) + "|" + k.Region
}

// Signal is one extracted fact about a possible disaster occurrence.
// Signals are immutable after creation and are never deleted: they are the
// append-only ground truth for the event → signals → raw page audit chain.
type Signal struct {
	ID           string       `json:"id"`
	SourceRef    string       `json:"source_ref"`
	DisasterType DisasterType `json:"disaster_type"`
	Region       string       `json:"region"`
	SeverityHint Severity     `json:"severity_hint,omitempty"`
	ObservedAt   time.Time    `json:"observed_at"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Key returns the correlation grouping key for the signal.
func (s Signal) Key() GroupKey {
	return GroupKey{DisasterType: s.DisasterType, Region: s.Region}
}

// Validate rejects malformed signals at the ingestion boundary.
func (s Signal) Validate() error {
	if s.ID == "" {
		return &ValidationError{Field: "id", Reason: "signal id is required"}
	}
	if s.DisasterType == "" {
		return &ValidationError{Field: "disaster_type", Reason: "disaster type is required"}
	}
	if !s.DisasterType.Valid() {
		return &ValidationError{Field: "disaster_type", Reason: "unknown disaster type " + string(s.DisasterType)}
	}
	if strings.TrimSpace(s.Region) == "" {
		return &ValidationError{Field: "region", Reason: "region is required"}
	}
	if s.ObservedAt.IsZero() {
		return &ValidationError{Field: "observed_at", Reason: "observation timestamp is required"}
	}
	if !s.SeverityHint.Valid() {
		return &ValidationError{Field: "severity_hint", Reason: "unknown severity " + string(s.SeverityHint)}
	}
	return nil
}

// Event is an aggregated incident derived from one or more corroborating
// signals. Only the correlator mutates events; everyone else reads.
type Event struct {
	ID                  string       `json:"id"`
	DisasterType        DisasterType `json:"disaster_type"`
	Region              string       `json:"region"`
	Severity            Severity     `json:"severity"`
	FirstObservedAt     time.Time    `json:"first_observed_at"`
	LastObservedAt      time.Time    `json:"last_observed_at"`
	SupportingSignalIDs []string     `json:"supporting_signal_ids"`
	Status              EventStatus  `json:"status"`

	// Version supports optimistic-concurrency writes in the event store.
	Version int64 `json:"version"`
}

// Key returns the correlation grouping key for the event.
func (e Event) Key() GroupKey {
	return GroupKey{DisasterType: e.DisasterType, Region: e.Region}
}

// Supports reports whether the signal id is already attached.
func (e Event) Supports(signalID string) bool {
	for _, id := range e.SupportingSignalIDs {
		if id == signalID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate without aliasing the
// store's supporting-signal slice.
func (e Event) Clone() Event {
	out := e
	out.SupportingSignalIDs = make([]string, len(e.SupportingSignalIDs))
	copy(out.SupportingSignalIDs, e.SupportingSignalIDs)
	return out
}

// NGO is a response organization from the registry collaborator.
// Read-only to the core.
type NGO struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	AidTypes        []DisasterType `json:"aid_types"`
	CoverageRegions []string       `json:"coverage_regions"`
	CapacityWeight  float64        `json:"capacity_weight"`
	ContactEmail    string         `json:"contact_email"`
	Active          bool           `json:"active"`
}

// Handles reports whether the NGO's mandate covers the disaster type.
func (n NGO) Handles(dt DisasterType) bool {
	for _, t := range n.AidTypes {
		if t == dt {
			return true
		}
	}
	return false
}

// Match pairs an event with an NGO worth alerting. Matches are ephemeral:
// produced per matcher invocation, handed to the dispatcher, not retained.
type Match struct {
	EventID        string   `json:"event_id"`
	NGOID          string   `json:"ngo_id"`
	RelevanceScore float64  `json:"relevance_score"`
	Reasons        []string `json:"reasons"`
}

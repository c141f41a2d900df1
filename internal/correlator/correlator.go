package correlator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thejenniferfang/disaster-response/internal/store"
	"github.com/thejenniferfang/disaster-response/internal/types"
)

const (
	defaultWindow   = 30 * time.Minute
	defaultMinCount = 3
)

// Options configures the Correlator.
type Options struct {
	// Window bounds how far apart corroborating observations may lie.
	Window time.Duration
	// MinCount is the corroboration threshold before an event is asserted.
	MinCount int
}

// DefaultOptions returns the documented defaults (30 minute window,
// three corroborating signals).
func DefaultOptions() Options {
	return Options{Window: defaultWindow, MinCount: defaultMinCount}
}

// Correlator groups signals by (disaster type, region) inside a sliding,
// signal-anchored time window and maintains the resulting events.
type Correlator struct {
	logger  *zap.Logger
	signals store.SignalStore
	events  store.EventStore
	opts    Options

	locks keyedMutex

	mu      sync.Mutex
	pending map[string]struct{} // event ids handed off, awaiting dispatcher ack

	// now is injectable for staleness tests; correlation itself never uses it.
	now func() time.Time
}

// New creates a Correlator. Zero option fields fall back to defaults.
func New(signals store.SignalStore, events store.EventStore, logger *zap.Logger, opts Options) *Correlator {
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.MinCount <= 0 {
		opts.MinCount = defaultMinCount
	}
	return &Correlator{
		logger:  logger.Named("correlator"),
		signals: signals,
		events:  events,
		opts:    opts,
		pending: make(map[string]struct{}),
		now:     time.Now,
	}
}

// Ingest processes one signal and returns the event it touched or created,
// or nil when the signal was stored for future correlation only.
func (c *Correlator) Ingest(ctx context.Context, s types.Signal) (*types.Event, error) {
	if err := s.Validate(); err != nil {
		signalsIngested.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("ingest signal: %w", err)
	}

	key := s.Key()
	unlock := c.locks.Lock(key.String())
	defer unlock()

	stored, err := c.signals.Append(ctx, s)
	if err != nil {
		signalsIngested.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("append signal %s: %w", s.ID, err)
	}

	open, err := c.openEvents(ctx, key)
	if err != nil {
		return nil, err
	}

	// Idempotence: a re-ingested signal that already supports an event is a
	// no-op and returns that event unchanged. Closed events count too, or
	// replaying a signal after its event went stale would re-seed a duplicate
	// from the same stored history.
	dup, err := c.supportingEvent(ctx, key, stored.ID, open)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		signalsIngested.WithLabelValues("duplicate").Inc()
		return dup, nil
	}

	// Attach to the newest open event whose observed span stays bounded by
	// the window after attachment. The span rule keeps the window anchor
	// from drifting without bound as signals trickle in.
	for i := range open {
		if !c.spanAccepts(open[i], stored) {
			continue
		}
		updated, err := c.attach(ctx, open[i], stored)
		if err != nil {
			return nil, err
		}
		signalsIngested.WithLabelValues("attached").Inc()
		c.logger.Debug("Signal attached to event",
			zap.String("signal", stored.ID),
			zap.String("event", updated.ID),
			zap.Int("supporting", len(updated.SupportingSignalIDs)),
		)
		return updated, nil
	}

	// Fresh window evaluation anchored at this signal's observation time.
	windowStart := stored.ObservedAt.Add(-c.opts.Window)
	inWindow, err := c.signals.Query(ctx, key, windowStart, stored.ObservedAt)
	if err != nil {
		return nil, fmt.Errorf("query window for %s: %w", key, err)
	}
	if len(inWindow) < c.opts.MinCount {
		signalsIngested.WithLabelValues("stored").Inc()
		return nil, nil
	}

	created, err := c.create(ctx, key, inWindow)
	if err != nil {
		return nil, err
	}
	signalsIngested.WithLabelValues("created").Inc()
	eventsCreated.Inc()
	c.logger.Info("Event created",
		zap.String("event", created.ID),
		zap.String("disaster_type", string(created.DisasterType)),
		zap.String("region", created.Region),
		zap.String("severity", string(created.Severity)),
		zap.Int("supporting", len(created.SupportingSignalIDs)),
	)
	return created, nil
}

// spanAccepts reports whether attaching s keeps the event's total observed
// span within the window.
func (c *Correlator) spanAccepts(e types.Event, s types.Signal) bool {
	first := e.FirstObservedAt
	last := e.LastObservedAt
	if s.ObservedAt.Before(first) {
		first = s.ObservedAt
	}
	if s.ObservedAt.After(last) {
		last = s.ObservedAt
	}
	return last.Sub(first) <= c.opts.Window
}

// attach appends the signal to the event and recomputes derived fields.
func (c *Correlator) attach(ctx context.Context, e types.Event, s types.Signal) (*types.Event, error) {
	updated := e.Clone()
	updated.SupportingSignalIDs = append(updated.SupportingSignalIDs, s.ID)
	if s.ObservedAt.Before(updated.FirstObservedAt) {
		updated.FirstObservedAt = s.ObservedAt
	}
	if s.ObservedAt.After(updated.LastObservedAt) {
		updated.LastObservedAt = s.ObservedAt
	}

	severity, err := c.deriveSeverity(ctx, updated.SupportingSignalIDs)
	if err != nil {
		return nil, err
	}
	updated.Severity = severity

	// A candidate that keeps accumulating corroboration is an ongoing
	// incident, not a just-formed one.
	if updated.Status == types.StatusCandidate {
		updated.Status = types.StatusActive
	}

	persisted, err := c.events.Upsert(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("update event %s: %w", updated.ID, err)
	}
	eventsUpdated.Inc()
	return &persisted, nil
}

// create seeds a new candidate event with exactly the windowed signals.
func (c *Correlator) create(ctx context.Context, key types.GroupKey, seed []types.Signal) (*types.Event, error) {
	ids := make([]string, 0, len(seed))
	first := seed[0].ObservedAt
	last := seed[0].ObservedAt
	for _, s := range seed {
		ids = append(ids, s.ID)
		if s.ObservedAt.Before(first) {
			first = s.ObservedAt
		}
		if s.ObservedAt.After(last) {
			last = s.ObservedAt
		}
	}

	e := types.Event{
		ID:                  uuid.NewString(),
		DisasterType:        key.DisasterType,
		Region:              key.Region,
		Severity:            severityFromSignals(seed),
		FirstObservedAt:     first,
		LastObservedAt:      last,
		SupportingSignalIDs: ids,
		Status:              types.StatusCandidate,
	}

	persisted, err := c.events.Upsert(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("create event for %s: %w", key, err)
	}
	return &persisted, nil
}

// deriveSeverity recomputes event severity from the supporting signals:
// the maximum hint where hints exist, medium when none provide one.
func (c *Correlator) deriveSeverity(ctx context.Context, signalIDs []string) (types.Severity, error) {
	severity := types.SeverityNone
	for _, id := range signalIDs {
		s, err := c.signals.Get(ctx, id)
		if err != nil {
			return types.SeverityNone, fmt.Errorf("load supporting signal %s: %w", id, err)
		}
		severity = types.MaxSeverity(severity, s.SeverityHint)
	}
	if severity == types.SeverityNone {
		severity = types.SeverityMedium
	}
	return severity, nil
}

// severityFromSignals folds hints from an in-hand signal slice.
func severityFromSignals(signals []types.Signal) types.Severity {
	severity := types.SeverityNone
	for _, s := range signals {
		severity = types.MaxSeverity(severity, s.SeverityHint)
	}
	if severity == types.SeverityNone {
		severity = types.SeverityMedium
	}
	return severity
}

// MarkDispatched records that the event was handed to the notification
// dispatcher. Staleness is suspended while the acknowledgment is pending.
func (c *Correlator) MarkDispatched(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[eventID] = struct{}{}
}

// AbandonDispatch clears a pending dispatch that produced no acknowledgment,
// so staleness applies to the event again. The dispatcher calls it when no
// channel accepted anything.
func (c *Correlator) AbandonDispatch(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, eventID)
}

// Acknowledge records the dispatcher's explicit delivery acknowledgment and
// moves the event to notified. The core never assumes delivery succeeded
// merely because matching ran.
func (c *Correlator) Acknowledge(ctx context.Context, eventID string) error {
	e, err := c.events.Get(ctx, eventID)
	if err != nil {
		return err
	}

	unlock := c.locks.Lock(e.Key().String())
	defer unlock()

	c.mu.Lock()
	delete(c.pending, eventID)
	c.mu.Unlock()

	// Re-read under the key lock; the event may have changed since.
	e, err = c.events.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if !e.Status.Open() || e.Status == types.StatusNotified {
		return nil
	}

	e.Status = types.StatusNotified
	if _, err := c.events.Upsert(ctx, e); err != nil {
		return fmt.Errorf("acknowledge event %s: %w", eventID, err)
	}
	eventsNotified.Inc()
	c.logger.Info("Event acknowledged as notified", zap.String("event", eventID))
	return nil
}

// ackPending reports whether a dispatcher acknowledgment is outstanding.
func (c *Correlator) ackPending(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[eventID]
	return ok
}

// Event returns one event with lazy staleness applied.
func (c *Correlator) Event(ctx context.Context, id string) (types.Event, error) {
	e, err := c.events.Get(ctx, id)
	if err != nil {
		return types.Event{}, err
	}
	swept, err := c.sweepStale(ctx, []types.Event{e})
	if err != nil {
		return types.Event{}, err
	}
	return swept[0], nil
}

// Events lists events with lazy staleness applied.
func (c *Correlator) Events(ctx context.Context, f store.EventFilter) ([]types.Event, error) {
	events, err := c.events.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return c.sweepStale(ctx, events)
}

// openEvents returns open events for the key after a staleness sweep,
// ordered newest LastObservedAt first.
func (c *Correlator) openEvents(ctx context.Context, key types.GroupKey) ([]types.Event, error) {
	open, err := c.events.OpenByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("query open events for %s: %w", key, err)
	}
	swept, err := c.sweepStale(ctx, open)
	if err != nil {
		return nil, err
	}
	stillOpen := swept[:0]
	for _, e := range swept {
		if e.Status.Open() {
			stillOpen = append(stillOpen, e)
		}
	}
	return stillOpen, nil
}

// supportingEvent finds an event of any status already supported by the
// signal. Open events are checked from the in-hand slice; closed ones need a
// key-wide lookup so a replay stays a no-op after its event leaves the open
// set.
func (c *Correlator) supportingEvent(ctx context.Context, key types.GroupKey, signalID string, open []types.Event) (*types.Event, error) {
	for i := range open {
		if open[i].Supports(signalID) {
			e := open[i].Clone()
			return &e, nil
		}
	}
	all, err := c.events.List(ctx, store.EventFilter{DisasterType: key.DisasterType, Region: key.Region})
	if err != nil {
		return nil, fmt.Errorf("query events for %s: %w", key, err)
	}
	for i := range all {
		if all[i].Status.Open() || !all[i].Supports(signalID) {
			continue
		}
		e := all[i].Clone()
		return &e, nil
	}
	return nil, nil
}

// sweepStale transitions open events to stale when nothing joined for longer
// than the window and no dispatcher acknowledgment is pending. Stale events
// are excluded from matching but never deleted: they are the audit trail.
func (c *Correlator) sweepStale(ctx context.Context, events []types.Event) ([]types.Event, error) {
	cutoff := c.now().Add(-c.opts.Window)
	for i := range events {
		e := events[i]
		if !e.Status.Open() || !e.LastObservedAt.Before(cutoff) || c.ackPending(e.ID) {
			continue
		}
		e.Status = types.StatusStale
		persisted, err := c.events.Upsert(ctx, e)
		if err != nil {
			// A conflict here means a concurrent ingest revived the event;
			// surface everything else.
			if types.IsConflict(err) {
				refreshed, getErr := c.events.Get(ctx, e.ID)
				if getErr != nil {
					return nil, getErr
				}
				events[i] = refreshed
				continue
			}
			return nil, fmt.Errorf("mark event %s stale: %w", e.ID, err)
		}
		eventsStale.Inc()
		c.logger.Debug("Event marked stale", zap.String("event", e.ID))
		events[i] = persisted
	}
	return events, nil
}

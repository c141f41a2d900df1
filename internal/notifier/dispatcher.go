package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/thejenniferfang/disaster-response/internal/registry"
	"github.com/thejenniferfang/disaster-response/internal/types"
)

// Acker receives dispatch lifecycle callbacks. The correlator implements it:
// MarkDispatched suspends staleness while delivery is in flight, Acknowledge
// moves the event to notified, and AbandonDispatch lifts the suspension when
// nothing was accepted.
type Acker interface {
	MarkDispatched(eventID string)
	AbandonDispatch(eventID string)
	Acknowledge(ctx context.Context, eventID string) error
}

// DispatcherOptions configures the Dispatcher behavior.
type DispatcherOptions struct {
	SuppressDuplicateMinutes int      // default 60
	RateLimitPerMinute       int      // default 100, applied per region
	Senders                  []Sender // external notification channels
}

// DefaultDispatcherOptions returns sensible defaults.
func DefaultDispatcherOptions() DispatcherOptions {
	return DispatcherOptions{
		SuppressDuplicateMinutes: 60,
		RateLimitPerMinute:       100,
	}
}

// dedupeKey uniquely identifies an event-NGO notification pair.
type dedupeKey struct {
	eventID string
	ngoID   string
}

// regionRateLimiter tracks rate limits per region.
type regionRateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	lastAccess map[string]time.Time
	rate       rate.Limit
	burst      int
}

func newRegionRateLimiter(perMinute int) *regionRateLimiter {
	return &regionRateLimiter{
		limiters:   make(map[string]*rate.Limiter),
		lastAccess: make(map[string]time.Time),
		rate:       rate.Limit(float64(perMinute) / 60.0),
		burst:      max(1, perMinute/10), // 10% burst, minimum 1
	}
}

func (r *regionRateLimiter) Allow(region string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	limiter, exists := r.limiters[region]
	if !exists {
		limiter = rate.NewLimiter(r.rate, r.burst)
		r.limiters[region] = limiter
	}
	r.lastAccess[region] = time.Now()
	return limiter.Allow()
}

// Evict removes region limiters not accessed within maxAge.
func (r *regionRateLimiter) Evict(maxAge time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	for region, last := range r.lastAccess {
		if last.Before(cutoff) {
			delete(r.limiters, region)
			delete(r.lastAccess, region)
		}
	}
}

// Dispatcher fans matched (event, NGO) pairs out to the configured senders.
type Dispatcher struct {
	logger        *zap.Logger
	registry      registry.NGORegistry
	acker         Acker
	opts          DispatcherOptions
	regionLimiter *regionRateLimiter

	mu          sync.Mutex
	dedupeCache map[dedupeKey]time.Time
}

// NewDispatcher creates a Dispatcher. acker may be nil when no lifecycle
// feedback is wanted (tests, dry runs).
func NewDispatcher(reg registry.NGORegistry, acker Acker, logger *zap.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.SuppressDuplicateMinutes <= 0 {
		opts.SuppressDuplicateMinutes = DefaultDispatcherOptions().SuppressDuplicateMinutes
	}
	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = DefaultDispatcherOptions().RateLimitPerMinute
	}
	return &Dispatcher{
		logger:        logger.Named("dispatcher"),
		registry:      reg,
		acker:         acker,
		opts:          opts,
		regionLimiter: newRegionRateLimiter(opts.RateLimitPerMinute),
		dedupeCache:   make(map[dedupeKey]time.Time),
	}
}

// Start begins background routines for cleanup and senders. Non-blocking.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.cleanupDedupeCache(ctx)
	for _, s := range d.opts.Senders {
		s.Start(ctx)
		d.logger.Info("Started external sender", zap.String("sender", s.Name()))
	}
}

// Dispatch delivers the matches for one event. At least one accepted
// notification triggers the acknowledgment callback; with none accepted the
// pendency is abandoned so the event can still go stale. An empty match list
// is a valid outcome and produces no callbacks at all.
func (d *Dispatcher) Dispatch(ctx context.Context, e types.Event, matches []types.Match) error {
	if len(matches) == 0 {
		return nil
	}

	if !d.regionLimiter.Allow(e.Region) {
		notificationsSuppressed.WithLabelValues("rate_limited").Inc()
		d.logger.Debug("Region rate limited", zap.String("region", e.Region))
		return nil
	}

	if d.acker != nil {
		d.acker.MarkDispatched(e.ID)
	}

	var errs []error
	accepted := 0
	for _, m := range matches {
		key := dedupeKey{eventID: m.EventID, ngoID: m.NGOID}
		if !d.tryMarkSeen(key) {
			notificationsSuppressed.WithLabelValues("duplicate").Inc()
			continue
		}

		ngo, err := d.registry.Get(ctx, m.NGOID)
		if err != nil {
			// Propagated, not swallowed; one missing NGO must not block
			// delivery to the rest.
			errs = append(errs, fmt.Errorf("resolve ngo %s: %w", m.NGOID, err))
			continue
		}

		n := Notification{Event: e, NGO: ngo, Match: m}
		for _, s := range d.opts.Senders {
			if !s.ShouldSend(e.Severity) {
				continue
			}
			if err := s.Send(ctx, n); err != nil {
				d.logger.Error("Sender enqueue failed",
					zap.String("sender", s.Name()),
					zap.String("ngo", ngo.ID),
					zap.Error(err),
				)
				continue
			}
			accepted++
		}
		notificationsDispatched.Inc()
	}

	if d.acker != nil {
		if accepted > 0 {
			if err := d.acker.Acknowledge(ctx, e.ID); err != nil {
				errs = append(errs, fmt.Errorf("acknowledge event %s: %w", e.ID, err))
			}
		} else {
			d.acker.AbandonDispatch(e.ID)
		}
	}

	d.logger.Info("Dispatched event notifications",
		zap.String("event", e.ID),
		zap.String("region", e.Region),
		zap.Int("matches", len(matches)),
		zap.Int("accepted", accepted),
	)
	return errors.Join(errs...)
}

// tryMarkSeen atomically checks whether this event-NGO pair was recently
// notified and, if not, marks it as seen.
func (d *Dispatcher) tryMarkSeen(key dedupeKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seenAt, exists := d.dedupeCache[key]; exists {
		window := time.Duration(d.opts.SuppressDuplicateMinutes) * time.Minute
		if time.Since(seenAt) < window {
			return false
		}
	}
	d.dedupeCache[key] = time.Now()
	return true
}

// cleanupDedupeCache periodically removes old entries.
func (d *Dispatcher) cleanupDedupeCache(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			window := time.Duration(d.opts.SuppressDuplicateMinutes) * time.Minute
			cutoff := time.Now().Add(-window)
			for key, seenAt := range d.dedupeCache {
				if seenAt.Before(cutoff) {
					delete(d.dedupeCache, key)
				}
			}
			d.mu.Unlock()

			// Evict stale region rate limiters (regions quiet for 1 hour).
			d.regionLimiter.Evict(time.Hour)
		}
	}
}

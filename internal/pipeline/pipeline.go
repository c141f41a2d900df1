// Package pipeline chains the correlation, matching, and dispatch stages into
// one signal-to-notification flow shared by the HTTP intake and the Kafka
// consumer.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

// Ingester is the correlation stage: one signal in, the touched event (or
// nil) out.
type Ingester interface {
	Ingest(ctx context.Context, s types.Signal) (*types.Event, error)
}

// EventMatcher is the relevance ranking stage.
type EventMatcher interface {
	Match(ctx context.Context, e types.Event) ([]types.Match, error)
}

// NotificationDispatcher is the delivery stage.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, e types.Event, matches []types.Match) error
}

// Result is the outcome of processing one signal end to end.
type Result struct {
	// Event is the event the signal touched, or nil when the signal was only
	// stored pending further corroboration.
	Event *types.Event `json:"event,omitempty"`
	// Matches are the NGOs ranked for the touched event.
	Matches []types.Match `json:"matches,omitempty"`
}

// Pipeline wires the three stages together.
type Pipeline struct {
	logger     *zap.Logger
	correlator Ingester
	matcher    EventMatcher
	dispatcher NotificationDispatcher
}

// New creates a Pipeline. dispatcher may be nil, in which case matching
// results are returned but nothing is delivered (dry-run and test setups).
func New(correlator Ingester, matcher EventMatcher, dispatcher NotificationDispatcher, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		logger:     logger.Named("pipeline"),
		correlator: correlator,
		matcher:    matcher,
		dispatcher: dispatcher,
	}
}

// ProcessSignal runs one signal through correlation, matching, and dispatch.
// A signal that does not touch an event short-circuits with an empty Result.
func (p *Pipeline) ProcessSignal(ctx context.Context, s types.Signal) (Result, error) {
	event, err := p.correlator.Ingest(ctx, s)
	if err != nil {
		return Result{}, err
	}
	if event == nil {
		return Result{}, nil
	}

	matches, err := p.matcher.Match(ctx, *event)
	if err != nil {
		return Result{Event: event}, fmt.Errorf("match event %s: %w", event.ID, err)
	}

	if p.dispatcher != nil && len(matches) > 0 {
		if err := p.dispatcher.Dispatch(ctx, *event, matches); err != nil {
			// Delivery problems are logged and surfaced; the correlation and
			// matching results still stand.
			p.logger.Error("Dispatch failed",
				zap.String("event", event.ID),
				zap.Error(err),
			)
			return Result{Event: event, Matches: matches}, fmt.Errorf("dispatch event %s: %w", event.ID, err)
		}
	}

	return Result{Event: event, Matches: matches}, nil
}

// Package correlator decides when corroborating disaster signals constitute
// an incident, and keeps open events current.
//
// # Contract
//
// The Correlator:
//  1. Validates each incoming signal and persists it (idempotent on id)
//  2. Attaches the signal to the newest open event for its
//     (disaster type, region) key whose observed span stays within the window
//  3. Otherwise creates a candidate event when the signal-anchored window
//     holds at least MinCount corroborating signals
//  4. Otherwise leaves the signal stored unattached for future correlation
//
// # Windowing
//
// Windows anchor on the newest signal's observed_at, never wall-clock time,
// so correlation is deterministic and replayable over historical data.
// Wall-clock time is consulted only for lazy staleness on reads.
//
// # Concurrency
//
// Ingestion is serialized per grouping key (single writer per key); distinct
// keys proceed fully in parallel. Event mutation is not commutative-safe, so
// the per-key lock is the correctness mechanism, not an optimization.
//
// # Constructor
//
//	func New(signals store.SignalStore, events store.EventStore, logger *zap.Logger, opts Options) *Correlator
//	func (c *Correlator) Ingest(ctx context.Context, s types.Signal) (*types.Event, error)
//	func (c *Correlator) MarkDispatched(eventID string)
//	func (c *Correlator) AbandonDispatch(eventID string)
//	func (c *Correlator) Acknowledge(ctx context.Context, eventID string) error
package correlator

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

// PostgresSignalStore is the pgx-backed SignalStore.
type PostgresSignalStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSignalStore wraps an open pool.
func NewPostgresSignalStore(pool *pgxpool.Pool) *PostgresSignalStore {
	return &PostgresSignalStore{pool: pool}
}

// Append implements SignalStore. ON CONFLICT DO NOTHING keeps the append
// idempotent on signal identity; the stored row is read back so repeated
// appends return identical signals.
func (p *PostgresSignalStore) Append(ctx context.Context, s types.Signal) (types.Signal, error) {
	if err := s.Validate(); err != nil {
		return types.Signal{}, err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := p.pool.Exec(ctx, `
        INSERT INTO signals (id, source_ref, disaster_type, region, severity_hint, observed_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO NOTHING
    `, s.ID, s.SourceRef, s.DisasterType, s.Region, s.SeverityHint, s.ObservedAt, s.CreatedAt)
	if err != nil {
		return types.Signal{}, fmt.Errorf("insert signal: %w", err)
	}

	return p.Get(ctx, s.ID)
}

// Query implements SignalStore.
func (p *PostgresSignalStore) Query(ctx context.Context, key types.GroupKey, from, to time.Time) ([]types.Signal, error) {
	rows, err := p.pool.Query(ctx, `
        SELECT id, source_ref, disaster_type, region, severity_hint, observed_at, created_at
        FROM signals
        WHERE disaster_type = $1 AND region = $2
          AND observed_at >= $3 AND observed_at <= $4
        ORDER BY observed_at ASC, id ASC
    `, key.DisasterType, key.Region, from, to)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var result []types.Signal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Get implements SignalStore.
func (p *PostgresSignalStore) Get(ctx context.Context, id string) (types.Signal, error) {
	row := p.pool.QueryRow(ctx, `
        SELECT id, source_ref, disaster_type, region, severity_hint, observed_at, created_at
        FROM signals WHERE id = $1
    `, id)

	s, err := scanSignal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Signal{}, &types.NotFoundError{Kind: "signal", ID: id}
	}
	return s, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (types.Signal, error) {
	var s types.Signal
	err := row.Scan(&s.ID, &s.SourceRef, &s.DisasterType, &s.Region, &s.SeverityHint, &s.ObservedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Signal{}, err
		}
		return types.Signal{}, fmt.Errorf("scan signal: %w", err)
	}
	return s, nil
}

// PostgresEventStore is the pgx-backed EventStore with optimistic
// concurrency enforced by a version-guarded UPDATE.
type PostgresEventStore struct {
	pool *pgxpool.Pool
}

// NewPostgresEventStore wraps an open pool.
func NewPostgresEventStore(pool *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{pool: pool}
}

// Upsert implements EventStore.
func (p *PostgresEventStore) Upsert(ctx context.Context, e types.Event) (types.Event, error) {
	if e.ID == "" {
		return types.Event{}, &types.ValidationError{Field: "id", Reason: "event id is required"}
	}
	if len(e.SupportingSignalIDs) == 0 {
		return types.Event{}, &types.ValidationError{Field: "supporting_signal_ids", Reason: "an event needs at least one supporting signal"}
	}

	supporting, err := json.Marshal(e.SupportingSignalIDs)
	if err != nil {
		return types.Event{}, fmt.Errorf("marshal supporting signal ids: %w", err)
	}

	next := e.Version + 1
	if e.Version == 0 {
		cmd, err := p.pool.Exec(ctx, `
            INSERT INTO events
                (id, disaster_type, region, severity, first_observed_at, last_observed_at, supporting_signal_ids, status, version)
            VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
            ON CONFLICT (id) DO NOTHING
        `, e.ID, e.DisasterType, e.Region, e.Severity, e.FirstObservedAt, e.LastObservedAt, string(supporting), e.Status, next)
		if err != nil {
			return types.Event{}, fmt.Errorf("insert event: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return types.Event{}, &types.ConflictError{Kind: "event", ID: e.ID, Version: e.Version}
		}
	} else {
		cmd, err := p.pool.Exec(ctx, `
            UPDATE events
            SET severity = $2,
                first_observed_at = $3,
                last_observed_at = $4,
                supporting_signal_ids = $5::jsonb,
                status = $6,
                version = $7,
                updated_at = NOW()
            WHERE id = $1 AND version = $8
        `, e.ID, e.Severity, e.FirstObservedAt, e.LastObservedAt, string(supporting), e.Status, next, e.Version)
		if err != nil {
			return types.Event{}, fmt.Errorf("update event: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return types.Event{}, &types.ConflictError{Kind: "event", ID: e.ID, Version: e.Version}
		}
	}

	e.Version = next
	return e, nil
}

// Get implements EventStore.
func (p *PostgresEventStore) Get(ctx context.Context, id string) (types.Event, error) {
	row := p.pool.QueryRow(ctx, eventSelect+` WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Event{}, &types.NotFoundError{Kind: "event", ID: id}
	}
	return e, err
}

// OpenByKey implements EventStore.
func (p *PostgresEventStore) OpenByKey(ctx context.Context, key types.GroupKey) ([]types.Event, error) {
	rows, err := p.pool.Query(ctx, eventSelect+`
        WHERE disaster_type = $1 AND region = $2
          AND status IN ('candidate', 'active', 'notified')
        ORDER BY last_observed_at DESC, id ASC
    `, key.DisasterType, key.Region)
	if err != nil {
		return nil, fmt.Errorf("query open events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// List implements EventStore.
func (p *PostgresEventStore) List(ctx context.Context, f EventFilter) ([]types.Event, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := p.pool.Query(ctx, eventSelect+`
        WHERE ($1 = '' OR disaster_type = $1)
          AND ($2 = '' OR region = $2)
          AND ($3 = '' OR status = $3)
        ORDER BY last_observed_at DESC, id ASC
        LIMIT $4
    `, string(f.DisasterType), f.Region, string(f.Status), limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

const eventSelect = `
    SELECT id, disaster_type, region, severity, first_observed_at, last_observed_at, supporting_signal_ids, status, version
    FROM events`

func scanEvent(row rowScanner) (types.Event, error) {
	var e types.Event
	var supportingRaw []byte
	err := row.Scan(&e.ID, &e.DisasterType, &e.Region, &e.Severity, &e.FirstObservedAt, &e.LastObservedAt, &supportingRaw, &e.Status, &e.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Event{}, err
		}
		return types.Event{}, fmt.Errorf("scan event: %w", err)
	}
	if err := json.Unmarshal(supportingRaw, &e.SupportingSignalIDs); err != nil {
		return types.Event{}, fmt.Errorf("unmarshal supporting signal ids: %w", err)
	}
	return e, nil
}

func collectEvents(rows pgx.Rows) ([]types.Event, error) {
	var result []types.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

// PostgresRegistry reads the NGO catalog from the shared database. The rows
// are maintained by the registry collaborator; this side only queries.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry wraps an open pool.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

// Query implements NGORegistry. Coverage filtering happens in Go because
// coverage entries mix exact region keys, country tags, and the global tag.
func (p *PostgresRegistry) Query(ctx context.Context, q Query) ([]types.NGO, error) {
	rows, err := p.pool.Query(ctx, `
        SELECT id, name, aid_types, coverage_regions, capacity_weight, contact_email, active
        FROM ngos
        WHERE active
        ORDER BY id ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("query ngos: %w", err)
	}
	defer rows.Close()

	var result []types.NGO
	for rows.Next() {
		n, err := scanNGO(rows)
		if err != nil {
			return nil, err
		}
		if q.DisasterType != "" && !n.Handles(q.DisasterType) {
			continue
		}
		if q.Region != "" && !coversLoosely(n, q.Region) {
			continue
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Get implements NGORegistry.
func (p *PostgresRegistry) Get(ctx context.Context, id string) (types.NGO, error) {
	row := p.pool.QueryRow(ctx, `
        SELECT id, name, aid_types, coverage_regions, capacity_weight, contact_email, active
        FROM ngos WHERE id = $1
    `, id)

	n, err := scanNGO(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.NGO{}, &types.NotFoundError{Kind: "ngo", ID: id}
	}
	return n, err
}

// Seed inserts or replaces catalog rows. Used by the service on startup when
// a seed file is configured and by tests.
func (p *PostgresRegistry) Seed(ctx context.Context, ngos []types.NGO) error {
	for _, n := range ngos {
		aidTypes, err := json.Marshal(n.AidTypes)
		if err != nil {
			return fmt.Errorf("marshal aid types: %w", err)
		}
		coverage, err := json.Marshal(n.CoverageRegions)
		if err != nil {
			return fmt.Errorf("marshal coverage regions: %w", err)
		}
		_, err = p.pool.Exec(ctx, `
            INSERT INTO ngos (id, name, aid_types, coverage_regions, capacity_weight, contact_email, active)
            VALUES ($1, $2, $3::jsonb, $4::jsonb, $5, $6, $7)
            ON CONFLICT (id) DO UPDATE SET
                name = EXCLUDED.name,
                aid_types = EXCLUDED.aid_types,
                coverage_regions = EXCLUDED.coverage_regions,
                capacity_weight = EXCLUDED.capacity_weight,
                contact_email = EXCLUDED.contact_email,
                active = EXCLUDED.active
        `, n.ID, n.Name, string(aidTypes), string(coverage), n.CapacityWeight, n.ContactEmail, n.Active)
		if err != nil {
			return fmt.Errorf("seed ngo %s: %w", n.ID, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNGO(row rowScanner) (types.NGO, error) {
	var n types.NGO
	var aidTypesRaw, coverageRaw []byte
	err := row.Scan(&n.ID, &n.Name, &aidTypesRaw, &coverageRaw, &n.CapacityWeight, &n.ContactEmail, &n.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.NGO{}, err
		}
		return types.NGO{}, fmt.Errorf("scan ngo: %w", err)
	}
	if err := json.Unmarshal(aidTypesRaw, &n.AidTypes); err != nil {
		return types.NGO{}, fmt.Errorf("unmarshal aid types: %w", err)
	}
	if err := json.Unmarshal(coverageRaw, &n.CoverageRegions); err != nil {
		return types.NGO{}, fmt.Errorf("unmarshal coverage regions: %w", err)
	}
	return n, nil
}

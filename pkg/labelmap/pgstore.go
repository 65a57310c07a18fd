package labelmap

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/ozonebridge/pkg/bridgeerr"
)

// PgStore is a Postgres-backed Store over the label_mappings table.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a labelmap PgStore backed by the given connection pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// List implements Store.
func (s *PgStore) List(ctx context.Context, tenantID string) ([]Mapping, error) {
	const query = `
		SELECT tenant_id, policy_type, label_value, direction
		FROM label_mappings
		WHERE tenant_id = $1
		ORDER BY policy_type, label_value`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, &bridgeerr.PersistenceError{Op: "labelmap.List", Cause: err}
	}
	defer rows.Close()

	var out []Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.TenantID, &m.PolicyType, &m.LabelValue, &m.Direction); err != nil {
			return nil, &bridgeerr.PersistenceError{Op: "labelmap.List", Cause: err}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &bridgeerr.PersistenceError{Op: "labelmap.List", Cause: err}
	}
	return out, nil
}

// Upsert implements Store.
func (s *PgStore) Upsert(ctx context.Context, m Mapping) error {
	const query = `
		INSERT INTO label_mappings (id, tenant_id, policy_type, label_value, direction, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, now())
		ON CONFLICT (tenant_id, policy_type, label_value) DO UPDATE SET direction = $4`

	_, err := s.pool.Exec(ctx, query, m.TenantID, m.PolicyType, m.LabelValue, m.Direction)
	if err != nil {
		return &bridgeerr.PersistenceError{Op: "labelmap.Upsert", Cause: err}
	}
	return nil
}

// Delete implements Store.
func (s *PgStore) Delete(ctx context.Context, tenantID, policyType, labelValue string) error {
	const query = `
		DELETE FROM label_mappings WHERE tenant_id = $1 AND policy_type = $2 AND label_value = $3`

	_, err := s.pool.Exec(ctx, query, tenantID, policyType, labelValue)
	if err != nil {
		return &bridgeerr.PersistenceError{Op: "labelmap.Delete", Cause: err}
	}
	return nil
}

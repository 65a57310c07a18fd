package syncstate

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/ozonebridge/pkg/bridgeerr"
)

// PgStore is a Postgres-backed Store over the event_sync_state table.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a syncstate PgStore backed by the given connection pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Get implements Store.
func (s *PgStore) Get(ctx context.Context, tenantID string) (*State, error) {
	const query = `
		SELECT tenant_id, last_synced_cursor, last_synced_at, sync_enabled
		FROM event_sync_state
		WHERE tenant_id = $1`

	var st State
	err := s.pool.QueryRow(ctx, query, tenantID).Scan(
		&st.TenantID, &st.LastSyncedCursor, &st.LastSyncedAt, &st.SyncEnabled,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, &bridgeerr.PersistenceError{Op: "syncstate.Get", Cause: err}
	}
	return &st, nil
}

// Upsert implements Store. It inserts a new row (syncEnabled defaults to
// true) when absent, and otherwise updates only the columns partial
// actually sets, always bumping updated_at.
func (s *PgStore) Upsert(ctx context.Context, tenantID string, partial Partial) error {
	const query = `
		INSERT INTO event_sync_state (tenant_id, last_synced_cursor, last_synced_at, sync_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, COALESCE($4, true), now(), now())
		ON CONFLICT (tenant_id) DO UPDATE SET
			last_synced_cursor = COALESCE($2, event_sync_state.last_synced_cursor),
			last_synced_at     = COALESCE($3, event_sync_state.last_synced_at),
			sync_enabled       = COALESCE($4, event_sync_state.sync_enabled),
			updated_at         = now()`

	_, err := s.pool.Exec(ctx, query, tenantID, partial.Cursor, partial.SyncedAt, partial.Enabled)
	if err != nil {
		return &bridgeerr.PersistenceError{Op: "syncstate.Upsert", Cause: err}
	}
	return nil
}

// ListEnabledTenants implements Store.
func (s *PgStore) ListEnabledTenants(ctx context.Context) ([]string, error) {
	const query = `SELECT tenant_id FROM event_sync_state WHERE sync_enabled = true ORDER BY tenant_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, &bridgeerr.PersistenceError{Op: "syncstate.ListEnabledTenants", Cause: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &bridgeerr.PersistenceError{Op: "syncstate.ListEnabledTenants", Cause: err}
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &bridgeerr.PersistenceError{Op: "syncstate.ListEnabledTenants", Cause: err}
	}
	return out, nil
}

package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/ozonebridge/internal/httpserver"
	"github.com/wisbric/ozonebridge/pkg/bridgeerr"
)

// PgStore is a Postgres-backed Store over the emitted_events table.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates an audit PgStore backed by the given connection pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// InsertPending implements Store.
func (s *PgStore) InsertPending(ctx context.Context, rec PendingRecord) (string, error) {
	const query = `
		INSERT INTO emitted_events (
			id, tenant_id, event_type, subject_did, subject_uri,
			platform_action_id, platform_correlation_id, status, retry_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, now())
		RETURNING id`

	id := uuid.New().String()
	var returnedID string
	err := s.pool.QueryRow(ctx, query,
		id, rec.TenantID, rec.EventType, rec.SubjectDID, rec.SubjectURI,
		rec.PlatformActionID, rec.PlatformCorrelationID, StatusPending,
	).Scan(&returnedID)
	if err != nil {
		return "", &bridgeerr.PersistenceError{Op: "audit.InsertPending", Cause: err}
	}
	return returnedID, nil
}

// MarkSuccess implements Store.
func (s *PgStore) MarkSuccess(ctx context.Context, id string, response json.RawMessage) error {
	const query = `
		UPDATE emitted_events
		SET status = $2, external_response = $3, error = NULL
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, StatusSuccess, response)
	if err != nil {
		return &bridgeerr.PersistenceError{Op: "audit.MarkSuccess", Cause: err}
	}
	return nil
}

// MarkRetryable implements Store.
func (s *PgStore) MarkRetryable(ctx context.Context, id string, errMessage string) error {
	const query = `
		UPDATE emitted_events
		SET status = $2, error = $3, retry_count = retry_count + 1
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, id, StatusRetryableError, errMessage)
	if err != nil {
		return &bridgeerr.PersistenceError{Op: "audit.MarkRetryable", Cause: err}
	}
	return nil
}

// List implements Store using keyset pagination on (created_at, id), both
// descending so the most recent row comes first.
func (s *PgStore) List(ctx context.Context, tenantID string, status *Status, after *httpserver.Cursor, limit int) ([]Record, error) {
	const query = `
		SELECT id, tenant_id, event_type, subject_did, subject_uri,
			platform_action_id, platform_correlation_id, status,
			external_response, error, retry_count, created_at
		FROM emitted_events
		WHERE tenant_id = $1
			AND ($2::text IS NULL OR status = $2)
			AND ($3::timestamptz IS NULL OR (created_at, id) < ($3, $4))
		ORDER BY created_at DESC, id DESC
		LIMIT $5`

	var afterCreatedAt any
	var afterID any
	if after != nil {
		afterCreatedAt = after.CreatedAt
		afterID = after.ID
	}

	rows, err := s.pool.Query(ctx, query, tenantID, status, afterCreatedAt, afterID, limit)
	if err != nil {
		return nil, &bridgeerr.PersistenceError{Op: "audit.List", Cause: err}
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.TenantID, &r.EventType, &r.SubjectDID, &r.SubjectURI,
			&r.PlatformActionID, &r.PlatformCorrelationID, &r.Status,
			&r.ExternalResponse, &r.Error, &r.RetryCount, &r.CreatedAt); err != nil {
			return nil, &bridgeerr.PersistenceError{Op: "audit.List", Cause: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &bridgeerr.PersistenceError{Op: "audit.List", Cause: err}
	}
	return out, nil
}

package credential

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/ozonebridge/pkg/bridgeerr"
)

const credentialColumns = `tenant_id, service_url, did, signing_key, handle`

// PgStore is a Postgres-backed Store, read-through against the
// external_labeler_credentials table this repo owns for standalone use.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a credential PgStore backed by the given connection pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Get implements Store.
func (s *PgStore) Get(ctx context.Context, tenantID string) (*TenantCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM external_labeler_credentials WHERE tenant_id = $1`

	row := s.pool.QueryRow(ctx, query, tenantID)

	var (
		cred       TenantCredential
		serviceURL string
		handle     *string
	)
	err := row.Scan(&cred.TenantID, &serviceURL, &cred.DID, &cred.SigningKey, &handle)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, &bridgeerr.PersistenceError{Op: "credential.Get", Cause: err}
	}

	parsed, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("parsing stored service URL %q: %w", serviceURL, err)
	}
	cred.ServiceURL = parsed
	if handle != nil {
		cred.Handle = *handle
	}

	return &cred, nil
}

package labelmap

import "context"

// Store persists a tenant's label mapping overrides.
type Store interface {
	// List returns every mapping row for tenantID (empty slice, not an
	// error, if the tenant has configured none).
	List(ctx context.Context, tenantID string) ([]Mapping, error)
	// Upsert inserts or updates (tenantID, policyType, labelValue); on
	// conflict only direction is updated.
	Upsert(ctx context.Context, m Mapping) error
	// Delete removes the row identified by (tenantID, policyType, labelValue).
	Delete(ctx context.Context, tenantID, policyType, labelValue string) error
}

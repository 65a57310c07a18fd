// Package syncstate persists the per-tenant inbound sync cursor and
// sync-enabled flag.
package syncstate

import (
	"context"
	"time"
)

// State is one tenant's sync position.
type State struct {
	TenantID         string
	LastSyncedCursor *string
	LastSyncedAt     *time.Time
	SyncEnabled      bool
}

// Partial carries only the fields Upsert should actually change; a nil
// field is left untouched on an existing row.
type Partial struct {
	Cursor   *string
	SyncedAt *time.Time
	Enabled  *bool
}

// Store is the persistence contract for sync state.
type Store interface {
	// Get returns the state for tenantID, or nil if no row exists.
	Get(ctx context.Context, tenantID string) (*State, error)
	// Upsert inserts a row for tenantID if absent, default syncEnabled=true;
	// otherwise updates only the fields partial actually sets, and always
	// bumps updated_at.
	Upsert(ctx context.Context, tenantID string, partial Partial) error
	// ListEnabledTenants returns the IDs of every tenant with syncEnabled=true.
	ListEnabledTenants(ctx context.Context) ([]string, error)
}

// Package credential is the read-through adapter onto the per-tenant
// external labeler credential. It makes no caching guarantee —
// callers may invoke Get repeatedly for the same tenant.
package credential

import (
	"context"
	"net/url"
)

// TenantCredential holds everything the bridge needs to talk to one
// tenant's external labeler.
type TenantCredential struct {
	TenantID string
	// ServiceURL is the base URL of the external labeler (e.g. "https://ozone.example.com").
	ServiceURL *url.URL
	// DID is the decentralized identifier of the platform's service account.
	DID string
	// SigningKey is the raw secp256k1 private scalar, hex-encoded (lowercase,
	// optional "0x" prefix), as stored.
	SigningKey string
	// Handle is a human label, unused by the bridge itself.
	Handle string
}

// Store is the contract this subsystem depends on for tenant credentials.
// In the full platform this is owned by a separate credential-store
// service; the Postgres-backed implementation in this repo (see PgStore
// in pgstore.go) stands in for that collaborator so the bridge can be
// exercised standalone.
type Store interface {
	// Get returns the credential for tenantID, or nil if the tenant is
	// unconfigured. A nil, nil return is not an error.
	Get(ctx context.Context, tenantID string) (*TenantCredential, error)
}

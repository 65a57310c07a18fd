// Package audit persists every outbound emission attempt against the
// external labeler: one row per attempt, inserted PENDING before the
// network call and transitioned to a terminal status after it returns.
//
// Unlike the platform's general-purpose audit log, this trail has
// read-your-write requirements the bridge depends on directly — emitEvent
// needs the row's id back before it can make the terminal call — so writes
// here are synchronous, not batched.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/ozonebridge/internal/httpserver"
)

// Status is the lifecycle state of an emission attempt.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusSuccess        Status = "SUCCESS"
	StatusRetryableError Status = "RETRYABLE_ERROR"
)

// PendingRecord carries every request-side field recorded at insert time.
type PendingRecord struct {
	TenantID              string
	EventType             string
	SubjectDID            *string
	SubjectURI            *string
	PlatformActionID      *string
	PlatformCorrelationID *string
}

// Record is a full emitted-event row, including its terminal fields once set.
type Record struct {
	ID                    string
	TenantID              string
	EventType             string
	SubjectDID            *string
	SubjectURI            *string
	PlatformActionID      *string
	PlatformCorrelationID *string
	Status                Status
	ExternalResponse      json.RawMessage
	Error                 *string
	RetryCount            int
	CreatedAt             time.Time
}

// Cursor returns r's keyset pagination position, for use with
// httpserver.NewCursorPage. IDs are always well-formed UUIDs minted by
// InsertPending, so a parse failure yields the zero UUID rather than an
// error.
func (r Record) Cursor() httpserver.Cursor {
	id, _ := uuid.Parse(r.ID)
	return httpserver.Cursor{CreatedAt: r.CreatedAt, ID: id}
}

// Store is the persistence contract for the emission audit trail.
type Store interface {
	// InsertPending inserts a new row in PENDING status and returns its id.
	InsertPending(ctx context.Context, rec PendingRecord) (string, error)
	// MarkSuccess transitions id to SUCCESS, recording the external
	// labeler's response body. Idempotent: last write wins.
	MarkSuccess(ctx context.Context, id string, response json.RawMessage) error
	// MarkRetryable transitions id to RETRYABLE_ERROR, recording the error
	// message and incrementing retryCount. Repeated calls overwrite the
	// error message (last write wins) and increment retryCount each time.
	MarkRetryable(ctx context.Context, id string, errMessage string) error
	// List returns up to limit rows for tenantID, most recent first,
	// optionally filtered to a single status (nil for all statuses).
	// Callers fetch limit+1 to detect whether another page exists and hand
	// the result to httpserver.NewCursorPage.
	List(ctx context.Context, tenantID string, status *Status, after *httpserver.Cursor, limit int) ([]Record, error)
}

// Package reviewqueue defines the bridge's outbound collaborator contract
// for routing classified inbound events to the platform's human review
// workflow.
package reviewqueue

import (
	"context"
	"log/slog"
	"time"
)

// Item is one unit of review work handed to the Review Queue collaborator.
type Item struct {
	TenantID      string
	Payload       map[string]any
	CreatedAt     time.Time
	Source        string
	CorrelationID string
	PolicyIDs     []string
}

// Queue is the interface this subsystem depends on for routing classified
// external events into the platform's review workflow. Enqueue is
// fire-and-forget from the bridge's perspective: any error bubbles up as a
// per-event processing error that the caller logs and moves past.
type Queue interface {
	Enqueue(ctx context.Context, item Item) error
}

// LoggingQueue is a stub Queue that logs every item instead of routing it
// anywhere, used where no review-queue collaborator is wired yet.
type LoggingQueue struct {
	Logger *slog.Logger
}

// Enqueue implements Queue by logging the item at info level.
func (q *LoggingQueue) Enqueue(_ context.Context, item Item) error {
	q.Logger.Info("review queue enqueue",
		"tenant_id", item.TenantID,
		"source", item.Source,
		"correlation_id", item.CorrelationID,
		"policy_ids", item.PolicyIDs,
	)
	return nil
}

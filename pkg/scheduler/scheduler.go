// Package scheduler runs the long-running supervisor that drives inbound
// polling on a configurable cadence.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/ozonebridge/internal/telemetry"
	"github.com/wisbric/ozonebridge/pkg/bridge"
	"github.com/wisbric/ozonebridge/pkg/labelmap"
	"github.com/wisbric/ozonebridge/pkg/reviewqueue"
)

// defaultPollInterval is the fallback cadence when Config.PollIntervalMs is
// zero.
const defaultPollInterval = 30 * time.Second

// leaseKey is the Redis key guarding cooperative scheduling: only the
// instance holding it runs a poll cycle, so running multiple poller
// replicas doesn't multiply external labeler traffic.
const leaseKey = "ozonebridge:poller:lease"

// Config controls the scheduler's cadence and enablement.
type Config struct {
	PollIntervalMs int
	Enabled        bool
}

func (c Config) interval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return defaultPollInterval
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// Scheduler is the single long-running supervisor driving inbound polling.
type Scheduler struct {
	Bridge      *bridge.Service
	ReviewQueue reviewqueue.Queue
	Config      Config
	Logger      *slog.Logger

	// Redis backs the cooperative-scheduling lease. A nil client disables
	// the lease check, which is fine when exactly one poller replica runs.
	Redis      *redis.Client
	instanceID string
}

// New constructs a Scheduler. rdb may be nil to disable the lease (single
// poller replica, or local development).
func New(svc *bridge.Service, queue reviewqueue.Queue, cfg Config, logger *slog.Logger, rdb *redis.Client) *Scheduler {
	return &Scheduler{
		Bridge:      svc,
		ReviewQueue: queue,
		Config:      cfg,
		Logger:      logger,
		Redis:       rdb,
		instanceID:  uuid.NewString(),
	}
}

// Run starts the polling loop and blocks until ctx is cancelled. If the
// scheduler is disabled, Run returns immediately.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.Config.Enabled {
		s.Logger.Info("poll scheduler disabled, not starting")
		return
	}

	interval := s.Config.interval()
	s.Logger.Info("poll scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("poll scheduler stopped")
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				s.Logger.Info("poll scheduler stopped")
				return
			}
			s.runCycle(ctx)
		}
	}
}

// runCycle executes one full pass over every sync-enabled tenant,
// sequentially. A per-tenant or per-event failure is logged and the cycle
// continues.
func (s *Scheduler) runCycle(ctx context.Context) {
	if !s.acquireLease(ctx) {
		s.Logger.Info("poll cycle skipped, another instance holds the lease")
		return
	}
	defer s.releaseLease(ctx)

	start := time.Now()
	defer func() { telemetry.PollCycleDuration.Observe(time.Since(start).Seconds()) }()

	tenantIDs, err := s.Bridge.ListEnabledTenants(ctx)
	if err != nil {
		s.Logger.Error("listing enabled tenants", "error", err)
		return
	}

	for _, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			return
		}
		s.pollTenant(ctx, tenantID)
	}
}

// acquireLease claims the cooperative-scheduling lease for the duration of
// one poll cycle, returning false if another instance currently holds it.
// A nil Redis client means the lease is disabled; the cycle always runs.
func (s *Scheduler) acquireLease(ctx context.Context) bool {
	if s.Redis == nil {
		return true
	}
	ok, err := s.Redis.SetNX(ctx, leaseKey, s.instanceID, s.Config.interval()).Result()
	if err != nil {
		s.Logger.Error("acquiring poll lease", "error", err)
		return true
	}
	return ok
}

func (s *Scheduler) releaseLease(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		end
		return 0`)
	if err := script.Run(ctx, s.Redis, []string{leaseKey}, s.instanceID).Err(); err != nil && err != redis.Nil {
		s.Logger.Error("releasing poll lease", "error", err)
	}
}

func (s *Scheduler) pollTenant(ctx context.Context, tenantID string) {
	result, err := s.Bridge.PollEvents(ctx, tenantID)
	if err != nil {
		s.Logger.Error("poll failed for tenant", "tenant_id", tenantID, "error", err)
		return
	}

	for _, ev := range result.Events {
		s.routeEvent(ctx, tenantID, ev)
	}
}

// routeEvent implements the per-event routing table:
// REPORT/LABEL enqueue with a category-appropriate reason, ESCALATE
// enqueues with a fixed reason, TAKEDOWN/COMMENT are log-only, and a null
// category or subject DID is skipped.
func (s *Scheduler) routeEvent(ctx context.Context, tenantID string, ev bridge.ClassifiedEvent) {
	if ev.Category == "" || ev.SubjectDID == nil {
		return
	}

	telemetry.PollEventsRoutedTotal.WithLabelValues(ev.Category).Inc()

	switch ev.Category {
	case "REPORT", "LABEL":
		s.enqueue(ctx, tenantID, ev, reasonFor(ev.Category))
	case "ESCALATE":
		s.enqueue(ctx, tenantID, ev, "Escalated from external labeler")
	case "TAKEDOWN", "COMMENT":
		s.Logger.Info("external moderation event recorded",
			"tenant_id", tenantID, "category", ev.Category, "subject_did", *ev.SubjectDID)
	}
}

func reasonFor(category string) string {
	if category == "LABEL" {
		return "Label applied by external labeler"
	}
	return "Reported via external labeler"
}

func (s *Scheduler) enqueue(ctx context.Context, tenantID string, ev bridge.ClassifiedEvent, reason string) {
	var policyIDs []string
	if ev.Category == "LABEL" && len(ev.Labels) > 0 {
		if mappings, err := s.Bridge.EffectiveMappings(ctx, tenantID); err == nil {
			policyIDs = labelmap.LabelsToPolicies(mappings, ev.Labels)
		} else {
			s.Logger.Error("resolving effective mappings", "tenant_id", tenantID, "error", err)
		}
	}

	item := reviewqueue.Item{
		TenantID:  tenantID,
		CreatedAt: ev.CreatedAt,
		Source:    "external_labeler",
		PolicyIDs: policyIDs,
		Payload: map[string]any{
			"reason":      reason,
			"category":    ev.Category,
			"subject_did": *ev.SubjectDID,
			"labels":      ev.Labels,
			"comment":     ev.Comment,
		},
	}
	if ev.SubjectURI != nil {
		item.Payload["subject_uri"] = *ev.SubjectURI
	}

	if err := s.ReviewQueue.Enqueue(ctx, item); err != nil {
		s.Logger.Error("review queue enqueue failed", "tenant_id", tenantID, "error", err)
	}
}

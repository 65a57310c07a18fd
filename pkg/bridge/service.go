// Package bridge is the public façade composing the credential, token,
// protocol, label-mapping, sync-state, and audit components into the two
// operations the rest of the platform calls: emitting outbound moderation
// actions and polling inbound ones.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/wisbric/ozonebridge/internal/httpserver"
	"github.com/wisbric/ozonebridge/internal/telemetry"
	"github.com/wisbric/ozonebridge/pkg/audit"
	"github.com/wisbric/ozonebridge/pkg/bridgeerr"
	"github.com/wisbric/ozonebridge/pkg/credential"
	"github.com/wisbric/ozonebridge/pkg/labelmap"
	"github.com/wisbric/ozonebridge/pkg/ozoneclient"
	"github.com/wisbric/ozonebridge/pkg/ozoneevent"
	"github.com/wisbric/ozonebridge/pkg/syncstate"
	"github.com/wisbric/ozonebridge/pkg/tokenminter"
)

// pollLimit is the page size requested on every pollEvents call.
const pollLimit = 100

// Service is the bridge's public façade.
type Service struct {
	Credentials credential.Store
	Mappings    labelmap.Store
	SyncState   syncstate.Store
	Audit       audit.Store
	Minter      *tokenminter.Minter
	Logger      *slog.Logger

	// newClient builds a Protocol Client for a resolved credential. Tests
	// substitute this to point at an httptest server.
	newClient func(*credential.TenantCredential) *ozoneclient.Client
}

// New constructs a Service wiring together its collaborators.
func New(creds credential.Store, mappings labelmap.Store, sync syncstate.Store, auditStore audit.Store, minter *tokenminter.Minter, logger *slog.Logger) *Service {
	return &Service{
		Credentials: creds,
		Mappings:    mappings,
		SyncState:   sync,
		Audit:       auditStore,
		Minter:      minter,
		Logger:      logger,
		newClient: func(cred *credential.TenantCredential) *ozoneclient.Client {
			return ozoneclient.New(cred, minter)
		},
	}
}

type effectiveResolver interface {
	Effective(ctx context.Context, tenantID string) ([]labelmap.Mapping, error)
}

// EffectiveMappings resolves tenantID's effective mapping set, preferring a cache hot path when Mappings supports one.
// The Polling Scheduler uses this to translate classified labels back to
// policy IDs before enqueueing a review-queue item.
func (s *Service) EffectiveMappings(ctx context.Context, tenantID string) ([]labelmap.Mapping, error) {
	if er, ok := s.Mappings.(effectiveResolver); ok {
		return er.Effective(ctx, tenantID)
	}
	rows, err := s.Mappings.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return labelmap.Effective(rows), nil
}

// IsConfigured reports whether tenantID has an external labeler credential.
func (s *Service) IsConfigured(ctx context.Context, tenantID string) (bool, error) {
	cred, err := s.Credentials.Get(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return cred != nil, nil
}

// ListEnabledTenants returns every tenant with sync enabled.
func (s *Service) ListEnabledTenants(ctx context.Context) ([]string, error) {
	return s.SyncState.ListEnabledTenants(ctx)
}

// ListMappings returns tenantID's configured mapping rows.
func (s *Service) ListMappings(ctx context.Context, tenantID string) ([]labelmap.Mapping, error) {
	return s.Mappings.List(ctx, tenantID)
}

// UpsertMapping creates or updates a mapping row.
func (s *Service) UpsertMapping(ctx context.Context, m labelmap.Mapping) error {
	return s.Mappings.Upsert(ctx, m)
}

// DeleteMapping removes a mapping row.
func (s *Service) DeleteMapping(ctx context.Context, tenantID, policyType, labelValue string) error {
	return s.Mappings.Delete(ctx, tenantID, policyType, labelValue)
}

// GetSyncState returns tenantID's sync state, or nil if none exists.
func (s *Service) GetSyncState(ctx context.Context, tenantID string) (*syncstate.State, error) {
	return s.SyncState.Get(ctx, tenantID)
}

// UpsertSyncState updates tenantID's sync state.
func (s *Service) UpsertSyncState(ctx context.Context, tenantID string, partial syncstate.Partial) error {
	return s.SyncState.Upsert(ctx, tenantID, partial)
}

// ListEvents returns tenantID's emitted-event audit rows, most recent
// first, optionally filtered by status. Callers pass limit+1 so they can
// detect a further page via httpserver.NewCursorPage.
func (s *Service) ListEvents(ctx context.Context, tenantID string, status *audit.Status, after *httpserver.Cursor, limit int) ([]audit.Record, error) {
	return s.Audit.List(ctx, tenantID, status, after, limit)
}

// QueryStatuses is a thin passthrough to the protocol client's
// queryStatuses, resolving the tenant's credential first.
func (s *Service) QueryStatuses(ctx context.Context, tenantID string, params ozoneevent.QueryStatusesParams) (*ozoneevent.QueryStatusesResponse, error) {
	cred, err := s.Credentials.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, &bridgeerr.NotConfigured{TenantID: tenantID}
	}
	return s.newClient(cred).QueryStatuses(ctx, params)
}

// HealthCheck is a thin passthrough to the protocol client's health check.
func (s *Service) HealthCheck(ctx context.Context, tenantID string) (*ozoneevent.HealthResponse, error) {
	cred, err := s.Credentials.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, &bridgeerr.NotConfigured{TenantID: tenantID}
	}
	return s.newClient(cred).HealthCheck(ctx)
}

// EmitEvent builds and submits an outbound moderation event, auditing the
// attempt before and after the network call.
func (s *Service) EmitEvent(ctx context.Context, params EmitEventParams) error {
	cred, err := s.Credentials.Get(ctx, params.TenantID)
	if err != nil {
		return err
	}
	if cred == nil {
		return &bridgeerr.NotConfigured{TenantID: params.TenantID}
	}

	event, err := buildEvent(params)
	if err != nil {
		return err
	}
	subject := buildSubject(params.SubjectDID, params.SubjectURI)

	id, err := s.Audit.InsertPending(ctx, audit.PendingRecord{
		TenantID:              params.TenantID,
		EventType:             string(params.EventType),
		SubjectDID:            &params.SubjectDID,
		SubjectURI:            params.SubjectURI,
		PlatformActionID:      &params.PlatformActionID,
		PlatformCorrelationID: &params.PlatformCorrelationID,
	})
	if err != nil {
		return err
	}

	resp, err := s.newClient(cred).EmitEvent(ctx, ozoneevent.EmitEventRequest{
		Event:     event,
		Subject:   subject,
		CreatedBy: cred.DID,
	})
	if err != nil {
		_ = s.Audit.MarkRetryable(ctx, id, err.Error())
		telemetry.EmitEventOutcomesTotal.WithLabelValues(string(params.EventType), "retryable_error").Inc()
		return err
	}

	respJSON, _ := json.Marshal(resp)
	if markErr := s.Audit.MarkSuccess(ctx, id, respJSON); markErr != nil {
		return markErr
	}
	telemetry.EmitEventOutcomesTotal.WithLabelValues(string(params.EventType), "success").Inc()
	return nil
}

// buildEvent constructs the external event object for eventType.
func buildEvent(params EmitEventParams) (ozoneevent.Event, error) {
	comment := params.Comment
	if comment == nil {
		names := make([]string, len(params.Policies))
		for i, p := range params.Policies {
			names[i] = p.Name
		}
		joined := "Platform moderation action: " + strings.Join(names, ", ")
		comment = &joined
	}

	switch params.EventType {
	case EventLabel:
		negate := params.NegateLabels
		if negate == nil {
			negate = []string{}
		}
		return ozoneevent.Event{
			Type:            ozoneevent.TypeModEventLabel,
			CreateLabelVals: params.Labels,
			NegateLabelVals: negate,
			Comment:         comment,
		}, nil
	case EventTakedown:
		return ozoneevent.Event{
			Type:            ozoneevent.TypeModEventTakedown,
			Comment:         comment,
			DurationInHours: params.DurationInHours,
		}, nil
	case EventReverseTakedown:
		return ozoneevent.Event{
			Type:    ozoneevent.TypeModEventReverseTakedown,
			Comment: comment,
		}, nil
	case EventComment:
		c := ""
		if params.Comment != nil {
			c = *params.Comment
		}
		sticky := false
		return ozoneevent.Event{
			Type:    ozoneevent.TypeModEventComment,
			Comment: &c,
			Sticky:  &sticky,
		}, nil
	case EventAcknowledge:
		return ozoneevent.Event{
			Type:    ozoneevent.TypeModEventAcknowledge,
			Comment: comment,
		}, nil
	case EventEscalate:
		return ozoneevent.Event{
			Type:    ozoneevent.TypeModEventEscalate,
			Comment: comment,
		}, nil
	default:
		return ozoneevent.Event{}, fmt.Errorf("bridge: unknown event type %q", params.EventType)
	}
}

// buildSubject builds the subject reference, preferring a StrongRef when a
// subject URI is present.
func buildSubject(subjectDID string, subjectURI *string) ozoneevent.SubjectRef {
	if subjectURI != nil {
		return ozoneevent.StrongRefSubject(*subjectURI, "")
	}
	return ozoneevent.RepoRefSubject(subjectDID)
}

// PollEvents fetches the next page of inbound events for tenantID and
// advances its sync cursor.
func (s *Service) PollEvents(ctx context.Context, tenantID string) (*PollResult, error) {
	cred, err := s.Credentials.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return &PollResult{}, nil
	}

	state, err := s.SyncState.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if state == nil || !state.SyncEnabled {
		return &PollResult{}, nil
	}

	cursor := ""
	if state.LastSyncedCursor != nil {
		cursor = *state.LastSyncedCursor
	}

	resp, err := s.newClient(cred).QueryEvents(ctx, ozoneevent.QueryEventsParams{
		Cursor:        cursor,
		Limit:         pollLimit,
		SortDirection: "asc",
	})
	if err != nil {
		return nil, err
	}

	if resp.Cursor != nil {
		now := time.Now()
		if err := s.SyncState.Upsert(ctx, tenantID, syncstate.Partial{
			Cursor:   resp.Cursor,
			SyncedAt: &now,
		}); err != nil {
			return nil, err
		}
		telemetry.PollCursorAdvancesTotal.WithLabelValues(tenantID).Inc()
	}

	classified := make([]ClassifiedEvent, 0, len(resp.Events))
	for _, ev := range resp.Events {
		ce, err := s.ClassifyEvent(ctx, ev)
		if err != nil {
			s.Logger.Warn("skipping unparseable inbound event", "tenant_id", tenantID, "error", err)
			continue
		}
		classified = append(classified, ce)
	}

	return &PollResult{Events: classified, NewCursor: resp.Cursor}, nil
}

var subjectURIPattern = regexp.MustCompile(`^at://([^/]+)`)

// ClassifyEvent resolves an external event into the bridge's internal
// shape.
func (s *Service) ClassifyEvent(_ context.Context, ev ozoneevent.ExternalEvent) (ClassifiedEvent, error) {
	typ, labels, comment, hasComment, err := ev.DecodeEvent()
	if err != nil {
		return ClassifiedEvent{}, fmt.Errorf("decoding event body: %w", err)
	}

	ce := ClassifiedEvent{
		Category: string(labelmap.ClassifyEventType(typ)),
		Labels:   labels,
	}
	if createdAt, err := time.Parse(time.RFC3339, ev.CreatedAt); err == nil {
		ce.CreatedAt = createdAt
	}
	if hasComment {
		ce.Comment = &comment
	}
	if ce.Labels == nil {
		ce.Labels = []string{}
	}

	switch ev.Subject.Type {
	case ozoneevent.SubjectTypeRepoRef:
		did := ev.Subject.DID
		ce.SubjectDID = &did
	case ozoneevent.SubjectTypeStrongRef:
		uri := ev.Subject.URI
		ce.SubjectURI = &uri
		if m := subjectURIPattern.FindStringSubmatch(uri); m != nil {
			did := m[1]
			ce.SubjectDID = &did
		}
	}

	return ce, nil
}

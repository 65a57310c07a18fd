package bridge

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/ozonebridge/internal/httpserver"
	"github.com/wisbric/ozonebridge/pkg/audit"
	"github.com/wisbric/ozonebridge/pkg/bridgeerr"
	"github.com/wisbric/ozonebridge/pkg/labelmap"
	"github.com/wisbric/ozonebridge/pkg/syncstate"
	"github.com/wisbric/ozonebridge/pkg/tenant"
)

// Handler exposes the bridge's operations over REST, mounted under
// /api/v1 behind the service-token middleware.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a bridge Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes returns a chi.Router with every bridge route mounted, scoped under
// a {tenantId} path parameter.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{tenantId}", func(r chi.Router) {
		r.Use(withTenantID)
		r.Post("/events", h.handleEmitEvent)
		r.Get("/events", h.handleListEvents)
		r.Get("/mappings", h.handleListMappings)
		r.Put("/mappings", h.handleUpsertMapping)
		r.Delete("/mappings", h.handleDeleteMapping)
		r.Get("/sync-state", h.handleGetSyncState)
		r.Put("/sync-state", h.handleUpsertSyncState)
	})
	return r
}

// withTenantID carries the {tenantId} path parameter into the request
// context under pkg/tenant's key, so handlers don't reach back into chi's
// route context directly.
func withTenantID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tenant.WithID(r.Context(), chi.URLParam(r, "tenantId"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// emitEventRequest is the JSON body accepted by handleEmitEvent.
type emitEventRequest struct {
	EventType             EventType `json:"event_type" validate:"required"`
	Labels                []string  `json:"labels"`
	NegateLabels          []string  `json:"negate_labels"`
	Comment               *string   `json:"comment"`
	SubjectDID            string    `json:"subject_did" validate:"required"`
	SubjectURI            *string   `json:"subject_uri"`
	PlatformActionID      string    `json:"platform_action_id" validate:"required"`
	PlatformCorrelationID string    `json:"platform_correlation_id"`
	Policies              []Policy  `json:"policies"`
	DurationInHours       *int      `json:"duration_in_hours"`
}

func (h *Handler) handleEmitEvent(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	var req emitEventRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.EmitEvent(r.Context(), EmitEventParams{
		TenantID:              tenantID,
		EventType:             req.EventType,
		Labels:                req.Labels,
		NegateLabels:          req.NegateLabels,
		Comment:               req.Comment,
		SubjectDID:            req.SubjectDID,
		SubjectURI:            req.SubjectURI,
		PlatformActionID:      req.PlatformActionID,
		PlatformCorrelationID: req.PlatformCorrelationID,
		Policies:              req.Policies,
		DurationInHours:       req.DurationInHours,
	})
	if err != nil {
		h.respondEmitError(w, tenantID, err)
		return
	}

	httpserver.Respond(w, http.StatusAccepted, map[string]string{"status": "submitted"})
}

func (h *Handler) respondEmitError(w http.ResponseWriter, tenantID string, err error) {
	var notConfigured *bridgeerr.NotConfigured
	var invalidCred *bridgeerr.InvalidCredential
	switch {
	case errors.As(err, &notConfigured):
		httpserver.RespondError(w, http.StatusPreconditionFailed, "not_configured", err.Error())
	case errors.As(err, &invalidCred):
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "invalid_credential", err.Error())
	default:
		h.logger.Error("emitting event", "tenant_id", tenantID, "error", err)
		httpserver.RespondError(w, http.StatusBadGateway, "emit_failed", err.Error())
	}
}

// handleListEvents returns a keyset-paginated page of tenantID's
// emitted-event audit rows, most recent first. An optional ?status= query
// parameter restricts to one lifecycle state; ?after= and ?limit= page
// through results per httpserver's cursor pagination convention.
func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	params, err := httpserver.ParseCursorParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var status *audit.Status
	if v := r.URL.Query().Get("status"); v != "" {
		s := audit.Status(v)
		status = &s
	}

	rows, err := h.service.ListEvents(r.Context(), tenantID, status, params.After, params.Limit+1)
	if err != nil {
		h.logger.Error("listing events", "tenant_id", tenantID, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list events")
		return
	}

	page := httpserver.NewCursorPage(rows, params.Limit, audit.Record.Cursor)
	httpserver.Respond(w, http.StatusOK, page)
}

func (h *Handler) handleListMappings(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	rows, err := h.service.ListMappings(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("listing mappings", "tenant_id", tenantID, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list mappings")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{"mappings": rows, "count": len(rows)})
}

type upsertMappingRequest struct {
	PolicyType string             `json:"policy_type" validate:"required"`
	LabelValue string             `json:"label_value" validate:"required"`
	Direction  labelmap.Direction `json:"direction" validate:"required"`
}

func (h *Handler) handleUpsertMapping(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	var req upsertMappingRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	m := labelmap.Mapping{
		TenantID:   tenantID,
		PolicyType: req.PolicyType,
		LabelValue: req.LabelValue,
		Direction:  req.Direction,
	}
	if err := h.service.UpsertMapping(r.Context(), m); err != nil {
		h.logger.Error("upserting mapping", "tenant_id", tenantID, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to upsert mapping")
		return
	}

	httpserver.Respond(w, http.StatusOK, m)
}

func (h *Handler) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())
	policyType := r.URL.Query().Get("policy_type")
	labelValue := r.URL.Query().Get("label_value")
	if policyType == "" || labelValue == "" {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "policy_type and label_value query parameters are required")
		return
	}

	if err := h.service.DeleteMapping(r.Context(), tenantID, policyType, labelValue); err != nil {
		h.logger.Error("deleting mapping", "tenant_id", tenantID, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to delete mapping")
		return
	}

	httpserver.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handleGetSyncState(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	state, err := h.service.GetSyncState(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("getting sync state", "tenant_id", tenantID, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get sync state")
		return
	}
	if state == nil {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "no sync state for tenant")
		return
	}

	httpserver.Respond(w, http.StatusOK, state)
}

type upsertSyncStateRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) handleUpsertSyncState(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := tenant.IDFromContext(r.Context())

	var req upsertSyncStateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.UpsertSyncState(r.Context(), tenantID, syncstate.Partial{Enabled: req.Enabled}); err != nil {
		h.logger.Error("upserting sync state", "tenant_id", tenantID, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to upsert sync state")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "updated"})
}

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/wisbric/ozonebridge/pkg/audit"
	"github.com/wisbric/ozonebridge/pkg/bridgeerr"
	"github.com/wisbric/ozonebridge/pkg/credential"
	"github.com/wisbric/ozonebridge/pkg/labelmap"
	"github.com/wisbric/ozonebridge/pkg/ozoneclient"
	"github.com/wisbric/ozonebridge/pkg/ozoneevent"
	"github.com/wisbric/ozonebridge/pkg/syncstate"
	"github.com/wisbric/ozonebridge/pkg/tokenminter"
)

// singleCredStore is a credential.Store fake that always resolves a fixed
// tenant, or nil for any other tenant ID.
type singleCredStore struct {
	cred *credential.TenantCredential
}

func (s *singleCredStore) Get(_ context.Context, tenantID string) (*credential.TenantCredential, error) {
	if tenantID != s.cred.TenantID {
		return nil, nil
	}
	return s.cred, nil
}

func newTestService(t *testing.T, server *httptest.Server) (*Service, *audit.MemStore) {
	t.Helper()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}

	creds := &singleCredStore{
		cred: &credential.TenantCredential{
			TenantID:   "tenant-a",
			ServiceURL: u,
			DID:        "did:web:tenant-a.example.com",
			SigningKey: strings.Repeat("ab", 32),
		},
	}
	auditStore := audit.NewMemStore()
	minter := tokenminter.New()
	svc := New(creds, labelmap.NewMemStore(), syncstate.NewMemStore(), auditStore, minter, slog.Default())
	svc.newClient = func(cred *credential.TenantCredential) *ozoneclient.Client {
		return ozoneclient.New(cred, minter)
	}
	return svc, auditStore
}

func TestService_EmitEvent_Label_S1(t *testing.T) {
	var captured ozoneevent.EmitEventRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ozoneevent.EmitEventResponse{ID: "evt-1"})
	}))
	defer server.Close()

	svc, auditStore := newTestService(t, server)

	subjectURI := "at://did:plc:A/app.bsky.feed.post/1"
	err := svc.EmitEvent(t.Context(), EmitEventParams{
		TenantID:              "tenant-a",
		EventType:             EventLabel,
		Labels:                []string{"spam", "misleading"},
		SubjectDID:            "did:plc:A",
		SubjectURI:            &subjectURI,
		PlatformActionID:      "action-1",
		PlatformCorrelationID: "corr-1",
		Policies:              []Policy{{ID: "p1", Name: "Spam"}},
	})
	if err != nil {
		t.Fatalf("EmitEvent: %v", err)
	}

	if captured.Event.Type != ozoneevent.TypeModEventLabel {
		t.Errorf("event.$type = %q", captured.Event.Type)
	}
	if len(captured.Event.CreateLabelVals) != 2 || captured.Event.CreateLabelVals[0] != "spam" {
		t.Errorf("createLabelVals = %v", captured.Event.CreateLabelVals)
	}
	if captured.Event.NegateLabelVals == nil || len(captured.Event.NegateLabelVals) != 0 {
		t.Errorf("negateLabelVals = %v, want []", captured.Event.NegateLabelVals)
	}
	if captured.Event.Comment == nil || *captured.Event.Comment != "Platform moderation action: Spam" {
		t.Errorf("comment = %v", captured.Event.Comment)
	}
	if captured.Subject.Type != ozoneevent.SubjectTypeStrongRef || captured.Subject.URI != subjectURI || captured.Subject.CID != "" {
		t.Errorf("subject = %+v", captured.Subject)
	}

	var found bool
	for _, r := range auditStore.All() {
		if r.Status == audit.StatusSuccess {
			found = true
		}
	}
	if !found {
		t.Error("expected one audit row to end in SUCCESS")
	}
}

func TestService_EmitEvent_Takedown_RepoRef_S2(t *testing.T) {
	var captured ozoneevent.EmitEventRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(ozoneevent.EmitEventResponse{ID: "evt-1"})
	}))
	defer server.Close()

	svc, _ := newTestService(t, server)

	duration := 72
	err := svc.EmitEvent(t.Context(), EmitEventParams{
		TenantID:              "tenant-a",
		EventType:             EventTakedown,
		SubjectDID:            "did:plc:B",
		PlatformActionID:      "action-2",
		PlatformCorrelationID: "corr-2",
		DurationInHours:       &duration,
	})
	if err != nil {
		t.Fatalf("EmitEvent: %v", err)
	}

	if captured.Subject.Type != ozoneevent.SubjectTypeRepoRef || captured.Subject.DID != "did:plc:B" {
		t.Errorf("subject = %+v", captured.Subject)
	}
	if captured.Event.DurationInHours == nil || *captured.Event.DurationInHours != 72 {
		t.Errorf("durationInHours = %v", captured.Event.DurationInHours)
	}
}

func TestService_EmitEvent_External500_S3(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"InternalServerError"}`))
	}))
	defer server.Close()

	svc, auditStore := newTestService(t, server)

	err := svc.EmitEvent(t.Context(), EmitEventParams{
		TenantID:              "tenant-a",
		EventType:             EventAcknowledge,
		SubjectDID:            "did:plc:B",
		PlatformActionID:      "action-3",
		PlatformCorrelationID: "corr-3",
	})
	if err == nil {
		t.Fatal("expected an error")
	}

	var httpErr *bridgeerr.ExternalHTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want *bridgeerr.ExternalHTTPError", err)
	}

	var sawRetryable bool
	for _, r := range auditStore.All() {
		if r.Status == audit.StatusRetryableError {
			sawRetryable = true
			if r.Error == nil || !strings.Contains(*r.Error, "500") {
				t.Errorf("audit error = %v, want to contain 500", r.Error)
			}
		}
	}
	if !sawRetryable {
		t.Error("expected one audit row to end in RETRYABLE_ERROR")
	}
}

func TestService_EmitEvent_NotConfigured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	svc, _ := newTestService(t, server)

	err := svc.EmitEvent(t.Context(), EmitEventParams{TenantID: "unknown-tenant", EventType: EventComment})
	var notConfigured *bridgeerr.NotConfigured
	if !errors.As(err, &notConfigured) {
		t.Fatalf("error = %v, want *bridgeerr.NotConfigured", err)
	}
}

func TestService_PollEvents_CursorAdvance_S5(t *testing.T) {
	var gotCursor string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCursor = r.URL.Query().Get("cursor")
		cursor := "42"
		_ = json.NewEncoder(w).Encode(ozoneevent.QueryEventsResponse{
			Cursor: &cursor,
			Events: []ozoneevent.ExternalEvent{
				{ID: "e1", Subject: ozoneevent.RepoRefSubject("did:plc:X")},
				{ID: "e2", Subject: ozoneevent.RepoRefSubject("did:plc:Y")},
			},
		})
	}))
	defer server.Close()

	svc, _ := newTestService(t, server)
	if err := svc.SyncState.Upsert(t.Context(), "tenant-a", syncstate.Partial{}); err != nil {
		t.Fatalf("seeding sync state: %v", err)
	}

	result, err := svc.PollEvents(t.Context(), "tenant-a")
	if err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if gotCursor != "" {
		t.Errorf("first poll cursor query = %q, want empty", gotCursor)
	}
	if len(result.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(result.Events))
	}

	state, err := svc.SyncState.Get(t.Context(), "tenant-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state.LastSyncedCursor == nil || *state.LastSyncedCursor != "42" {
		t.Errorf("stored cursor = %v, want 42", state.LastSyncedCursor)
	}

	if _, err := svc.PollEvents(t.Context(), "tenant-a"); err != nil {
		t.Fatalf("second PollEvents: %v", err)
	}
	if gotCursor != "42" {
		t.Errorf("second poll cursor query = %q, want 42", gotCursor)
	}
}

func TestService_ClassifyEvent_Report_S4(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	svc, _ := newTestService(t, server)

	eventBody, _ := json.Marshal(map[string]any{"$type": "tools.ozone.moderation.defs#modEventReport", "comment": "spam report"})
	ev := ozoneevent.ExternalEvent{
		Event:   eventBody,
		Subject: ozoneevent.StrongRefSubject("at://did:plc:C/app.bsky.feed.post/2", ""),
	}

	ce, err := svc.ClassifyEvent(t.Context(), ev)
	if err != nil {
		t.Fatalf("ClassifyEvent: %v", err)
	}
	if ce.Category != "REPORT" {
		t.Errorf("category = %q, want REPORT", ce.Category)
	}
	if ce.SubjectDID == nil || *ce.SubjectDID != "did:plc:C" {
		t.Errorf("subjectDid = %v, want did:plc:C", ce.SubjectDID)
	}
	if ce.SubjectURI == nil || *ce.SubjectURI != "at://did:plc:C/app.bsky.feed.post/2" {
		t.Errorf("subjectUri = %v", ce.SubjectURI)
	}
}

func TestService_MappingPrecedence_S6(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	svc, _ := newTestService(t, server)

	if err := svc.UpsertMapping(t.Context(), labelmap.Mapping{
		TenantID: "tenant-a", PolicyType: "SPAM", LabelValue: "x-spam", Direction: labelmap.Both,
	}); err != nil {
		t.Fatalf("UpsertMapping: %v", err)
	}

	rows, err := svc.EffectiveMappings(t.Context(), "tenant-a")
	if err != nil {
		t.Fatalf("EffectiveMappings: %v", err)
	}
	got := labelmap.PolicyToLabels(rows, "SPAM")
	if len(got) != 1 || got[0] != "x-spam" {
		t.Errorf("PolicyToLabels(SPAM) = %v, want [x-spam]", got)
	}
}

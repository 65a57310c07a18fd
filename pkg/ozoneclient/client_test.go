package ozoneclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/wisbric/ozonebridge/pkg/bridgeerr"
	"github.com/wisbric/ozonebridge/pkg/credential"
	"github.com/wisbric/ozonebridge/pkg/ozoneevent"
	"github.com/wisbric/ozonebridge/pkg/tokenminter"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	cred := &credential.TenantCredential{
		TenantID:   "tenant-a",
		ServiceURL: u,
		DID:        "did:web:tenant-a.example.com",
		SigningKey: strings.Repeat("ab", 32),
	}
	return New(cred, tokenminter.New())
}

func TestQueryEvents_SendsBearerTokenAndParsesResponse(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ozoneevent.QueryEventsResponse{
			Events: []ozoneevent.ExternalEvent{{ID: "evt-1"}},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server)
	resp, err := c.QueryEvents(t.Context(), ozoneevent.QueryEventsParams{Cursor: "abc", Limit: 100, Types: []string{"x", "y"}})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/xrpc/tools.ozone.moderation.queryEvents?") {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.Contains(gotPath, "cursor=abc") || !strings.Contains(gotPath, "limit=100") {
		t.Errorf("query missing expected params: %q", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Errorf("Authorization header = %q, want Bearer prefix", gotAuth)
	}
	if len(resp.Events) != 1 || resp.Events[0].ID != "evt-1" {
		t.Errorf("unexpected events: %+v", resp.Events)
	}
}

func TestEmitEvent_NonTwoXX_ReturnsExternalHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"InvalidRequest"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.EmitEvent(t.Context(), ozoneevent.EmitEventRequest{})

	var httpErr *bridgeerr.ExternalHTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want *bridgeerr.ExternalHTTPError", err)
	}
	if httpErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", httpErr.Status)
	}
}

func TestEmitEvent_MalformedBody_ReturnsMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	_, err := c.EmitEvent(t.Context(), ozoneevent.EmitEventRequest{})

	var malformed *bridgeerr.MalformedResponse
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want *bridgeerr.MalformedResponse", err)
	}
}

func TestHealthCheck_Unauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("expected no Authorization header on health check, got %q", auth)
		}
		_ = json.NewEncoder(w).Encode(ozoneevent.HealthResponse{Version: "1.2.3"})
	}))
	defer server.Close()

	c := newTestClient(t, server)
	resp, err := c.HealthCheck(t.Context())
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if resp.Version != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", resp.Version)
	}
}

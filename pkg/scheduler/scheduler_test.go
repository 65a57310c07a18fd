package scheduler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wisbric/ozonebridge/pkg/audit"
	"github.com/wisbric/ozonebridge/pkg/bridge"
	"github.com/wisbric/ozonebridge/pkg/credential"
	"github.com/wisbric/ozonebridge/pkg/labelmap"
	"github.com/wisbric/ozonebridge/pkg/ozoneevent"
	"github.com/wisbric/ozonebridge/pkg/reviewqueue"
	"github.com/wisbric/ozonebridge/pkg/syncstate"
	"github.com/wisbric/ozonebridge/pkg/tokenminter"
)

type singleCredStore struct {
	cred *credential.TenantCredential
}

func (s *singleCredStore) Get(_ context.Context, tenantID string) (*credential.TenantCredential, error) {
	if tenantID != s.cred.TenantID {
		return nil, nil
	}
	return s.cred, nil
}

type fakeQueue struct {
	mu    sync.Mutex
	items []reviewqueue.Item
}

func (q *fakeQueue) Enqueue(_ context.Context, item reviewqueue.Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

func (q *fakeQueue) all() []reviewqueue.Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]reviewqueue.Item(nil), q.items...)
}

func newTestScheduler(t *testing.T, events []ozoneevent.ExternalEvent, cursor string) (*Scheduler, *fakeQueue) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ozoneevent.QueryEventsResponse{Cursor: &cursor, Events: events})
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}

	creds := &singleCredStore{cred: &credential.TenantCredential{
		TenantID:   "tenant-a",
		ServiceURL: u,
		DID:        "did:web:tenant-a.example.com",
		SigningKey: strings.Repeat("ab", 32),
	}}
	sync := syncstate.NewMemStore()
	_ = sync.Upsert(context.Background(), "tenant-a", syncstate.Partial{})

	minter := tokenminter.New()
	svc := bridge.New(creds, labelmap.NewMemStore(), sync, audit.NewMemStore(), minter, slog.New(slog.NewTextHandler(io.Discard, nil)))

	queue := &fakeQueue{}
	sched := New(svc, queue, Config{Enabled: true, PollIntervalMs: 10}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	return sched, queue
}

func rawEvent(t *testing.T, typ, comment string, labels []string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(map[string]any{"$type": typ, "comment": comment, "createLabelVals": labels})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return b
}

func TestScheduler_RoutesReportAndLabelToReviewQueue(t *testing.T) {
	events := []ozoneevent.ExternalEvent{
		{
			Event:   rawEvent(t, "tools.ozone.moderation.defs#modEventReport", "spam report", nil),
			Subject: ozoneevent.RepoRefSubject("did:plc:A"),
		},
		{
			Event:   rawEvent(t, "tools.ozone.moderation.defs#modEventLabel", "", []string{"hate"}),
			Subject: ozoneevent.RepoRefSubject("did:plc:B"),
		},
	}
	sched, queue := newTestScheduler(t, events, "c1")

	sched.runCycle(context.Background())

	items := queue.all()
	if len(items) != 2 {
		t.Fatalf("got %d enqueued items, want 2", len(items))
	}
	if items[1].PolicyIDs == nil || items[1].PolicyIDs[0] != "HATE" {
		t.Errorf("label event policyIDs = %v, want [HATE]", items[1].PolicyIDs)
	}
}

func TestScheduler_TakedownAndCommentAreLogOnly(t *testing.T) {
	events := []ozoneevent.ExternalEvent{
		{
			Event:   rawEvent(t, "tools.ozone.moderation.defs#modEventTakedown", "taken down", nil),
			Subject: ozoneevent.RepoRefSubject("did:plc:A"),
		},
		{
			Event:   rawEvent(t, "tools.ozone.moderation.defs#modEventComment", "fyi", nil),
			Subject: ozoneevent.RepoRefSubject("did:plc:B"),
		},
	}
	sched, queue := newTestScheduler(t, events, "c1")

	sched.runCycle(context.Background())

	if len(queue.all()) != 0 {
		t.Errorf("expected no enqueued items for TAKEDOWN/COMMENT, got %d", len(queue.all()))
	}
}

func TestScheduler_UnknownCategoryOrMissingSubjectIsSkipped(t *testing.T) {
	events := []ozoneevent.ExternalEvent{
		{
			Event:   rawEvent(t, "tools.ozone.moderation.defs#modEventUnknown", "", nil),
			Subject: ozoneevent.RepoRefSubject("did:plc:A"),
		},
		{
			Event:   rawEvent(t, "tools.ozone.moderation.defs#modEventReport", "no subject", nil),
			Subject: ozoneevent.SubjectRef{},
		},
	}
	sched, queue := newTestScheduler(t, events, "c1")

	sched.runCycle(context.Background())

	if len(queue.all()) != 0 {
		t.Errorf("expected no enqueued items for unclassified or subject-less events, got %d", len(queue.all()))
	}
}

func TestScheduler_DisabledDoesNotBlock(t *testing.T) {
	sched, _ := newTestScheduler(t, nil, "c1")
	sched.Config.Enabled = false

	done := make(chan struct{})
	go func() {
		sched.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return immediately when disabled")
	}
}

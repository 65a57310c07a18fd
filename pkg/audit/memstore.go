package audit

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/ozonebridge/internal/httpserver"
)

// MemStore is an in-memory Store used by component tests that exercise
// collaborators without a database.
type MemStore struct {
	mu   sync.Mutex
	rows map[string]Record
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[string]Record)}
}

// InsertPending implements Store.
func (m *MemStore) InsertPending(_ context.Context, rec PendingRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.rows[id] = Record{
		ID:                    id,
		TenantID:              rec.TenantID,
		EventType:             rec.EventType,
		SubjectDID:            rec.SubjectDID,
		SubjectURI:            rec.SubjectURI,
		PlatformActionID:      rec.PlatformActionID,
		PlatformCorrelationID: rec.PlatformCorrelationID,
		Status:                StatusPending,
		CreatedAt:             time.Now(),
	}
	return id, nil
}

// MarkSuccess implements Store.
func (m *MemStore) MarkSuccess(_ context.Context, id string, response json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.rows[id]
	r.Status = StatusSuccess
	r.ExternalResponse = response
	r.Error = nil
	m.rows[id] = r
	return nil
}

// MarkRetryable implements Store.
func (m *MemStore) MarkRetryable(_ context.Context, id string, errMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.rows[id]
	r.Status = StatusRetryableError
	r.Error = &errMessage
	r.RetryCount++
	m.rows[id] = r
	return nil
}

// Get returns the current state of row id, for test assertions.
func (m *MemStore) Get(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}

// All returns every row currently stored, for test assertions.
func (m *MemStore) All() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	return out
}

// List implements Store, matching PgStore's keyset ordering: most recent
// row first, ties broken by id descending.
func (m *MemStore) List(_ context.Context, tenantID string, status *Status, after *httpserver.Cursor, limit int) ([]Record, error) {
	m.mu.Lock()
	var matched []Record
	for _, r := range m.rows {
		if r.TenantID != tenantID {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		matched = append(matched, r)
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if after != nil {
		cut := len(matched)
		for i, r := range matched {
			c := r.Cursor()
			if c.CreatedAt.Before(after.CreatedAt) || (c.CreatedAt.Equal(after.CreatedAt) && c.ID.String() < after.ID.String()) {
				cut = i
				break
			}
		}
		matched = matched[cut:]
	}

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

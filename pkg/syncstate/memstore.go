package syncstate

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store used by component tests that exercise
// collaborators without a database.
type MemStore struct {
	mu    sync.Mutex
	rows  map[string]State
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[string]State)}
}

// Get implements Store.
func (m *MemStore) Get(_ context.Context, tenantID string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.rows[tenantID]
	if !ok {
		return nil, nil
	}
	cp := st
	return &cp, nil
}

// Upsert implements Store.
func (m *MemStore) Upsert(_ context.Context, tenantID string, partial Partial) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.rows[tenantID]
	if !ok {
		st = State{TenantID: tenantID, SyncEnabled: true}
	}
	if partial.Cursor != nil {
		st.LastSyncedCursor = partial.Cursor
	}
	if partial.SyncedAt != nil {
		st.LastSyncedAt = partial.SyncedAt
	}
	if partial.Enabled != nil {
		st.SyncEnabled = *partial.Enabled
	}
	m.rows[tenantID] = st
	return nil
}

// ListEnabledTenants implements Store.
func (m *MemStore) ListEnabledTenants(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for id, st := range m.rows {
		if st.SyncEnabled {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

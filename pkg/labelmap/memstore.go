package labelmap

import (
	"context"
	"sync"
)

// MemStore is an in-memory Store used by component tests that exercise
// collaborators without a database.
type MemStore struct {
	mu   sync.Mutex
	rows map[string][]Mapping
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{rows: make(map[string][]Mapping)}
}

// List implements Store.
func (m *MemStore) List(_ context.Context, tenantID string) ([]Mapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mapping(nil), m.rows[tenantID]...), nil
}

// Upsert implements Store.
func (m *MemStore) Upsert(_ context.Context, mapping Mapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[mapping.TenantID]
	for i, r := range rows {
		if r.PolicyType == mapping.PolicyType && r.LabelValue == mapping.LabelValue {
			rows[i].Direction = mapping.Direction
			m.rows[mapping.TenantID] = rows
			return nil
		}
	}
	m.rows[mapping.TenantID] = append(rows, mapping)
	return nil
}

// Delete implements Store.
func (m *MemStore) Delete(_ context.Context, tenantID, policyType, labelValue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[tenantID]
	for i, r := range rows {
		if r.PolicyType == policyType && r.LabelValue == labelValue {
			m.rows[tenantID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

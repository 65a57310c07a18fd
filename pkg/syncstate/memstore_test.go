package syncstate

import (
	"context"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestMemStore_UpsertInsertsWithDefaultEnabled(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	if err := m.Upsert(ctx, "tenant-a", Partial{Cursor: strPtr("cursor-1")}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	st, err := m.Get(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st == nil {
		t.Fatal("expected a row to exist")
	}
	if !st.SyncEnabled {
		t.Error("expected SyncEnabled to default true on insert")
	}
	if st.LastSyncedCursor == nil || *st.LastSyncedCursor != "cursor-1" {
		t.Errorf("cursor = %v, want cursor-1", st.LastSyncedCursor)
	}
}

func TestMemStore_UpsertOnlyTouchesProvidedFields(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()
	now := time.Now()

	if err := m.Upsert(ctx, "tenant-a", Partial{Cursor: strPtr("cursor-1"), SyncedAt: &now}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	disabled := false
	if err := m.Upsert(ctx, "tenant-a", Partial{Enabled: &disabled}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	st, err := m.Get(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.SyncEnabled {
		t.Error("expected SyncEnabled to be false after second upsert")
	}
	if st.LastSyncedCursor == nil || *st.LastSyncedCursor != "cursor-1" {
		t.Errorf("expected cursor to remain unchanged, got %v", st.LastSyncedCursor)
	}
}

func TestMemStore_ListEnabledTenants(t *testing.T) {
	m := NewMemStore()
	ctx := context.Background()

	disabled := false
	_ = m.Upsert(ctx, "tenant-a", Partial{})
	_ = m.Upsert(ctx, "tenant-b", Partial{Enabled: &disabled})
	_ = m.Upsert(ctx, "tenant-c", Partial{})

	got, err := m.ListEnabledTenants(ctx)
	if err != nil {
		t.Fatalf("ListEnabledTenants: %v", err)
	}
	want := []string{"tenant-a", "tenant-c"}
	if len(got) != len(want) {
		t.Fatalf("ListEnabledTenants = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListEnabledTenants = %v, want %v", got, want)
		}
	}
}

func TestMemStore_GetMissingReturnsNil(t *testing.T) {
	m := NewMemStore()
	st, err := m.Get(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st != nil {
		t.Errorf("expected nil for unknown tenant, got %+v", st)
	}
}

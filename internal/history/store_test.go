package history

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/kvstore"
)

// MockKV is a mock implementation of kvstore.Store for testing.
type MockKV struct {
	GetFunc   func(ctx context.Context, key string) ([]byte, error)
	PutFunc   func(ctx context.Context, key string, value []byte) error
	PutCalls  int
	LastValue []byte
}

func (m *MockKV) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	if m.LastValue == nil {
		return nil, kvstore.ErrNotFound
	}
	return m.LastValue, nil
}

func (m *MockKV) Put(ctx context.Context, key string, value []byte) error {
	m.PutCalls++
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, value)
	}
	m.LastValue = value
	return nil
}

func (m *MockKV) Close() error { return nil }

func sampleResult(month string) domain.AnalysisResult {
	return domain.AnalysisResult{
		StatementType: domain.StatementTypeBank,
		BillData:      domain.StatementData{TotalIncome: 1000, TotalExpense: -400, StatementMonth: month},
	}
}

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestStore_LoadEmpty(t *testing.T) {
	tests := []struct {
		name string
		get  func(ctx context.Context, key string) ([]byte, error)
	}{
		{name: "missing", get: func(context.Context, string) ([]byte, error) { return nil, kvstore.ErrNotFound }},
		{name: "read failure", get: func(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }},
		{name: "not json", get: func(context.Context, string) ([]byte, error) { return []byte("{{{"), nil }},
		{name: "wrong shape", get: func(context.Context, string) ([]byte, error) { return []byte(`{"id":"1"}`), nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(&MockKV{GetFunc: tt.get}, "")
			got := store.Load(context.Background())
			if got == nil || len(got) != 0 {
				t.Errorf("Load() = %v, want empty non-nil slice", got)
			}
		})
	}
}

func TestStore_AppendLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()

	store := NewStore(kv, DefaultKey)
	store.Load(ctx)

	first := store.NewEntry(sampleResult("2024-04"), baseTime)
	if err := store.Append(ctx, first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	second := store.NewEntry(sampleResult("2024-05"), baseTime.Add(time.Hour))
	if err := store.Append(ctx, second); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	reloaded := NewStore(kv, DefaultKey).Load(ctx)
	if len(reloaded) != 2 {
		t.Fatalf("Load() returned %d entries, want 2", len(reloaded))
	}
	if reloaded[0].ID != second.ID || reloaded[1].ID != first.ID {
		t.Errorf("order = [%s %s], want newest first [%s %s]", reloaded[0].ID, reloaded[1].ID, second.ID, first.ID)
	}
	if !reloaded[0].Date.Equal(second.Date) || !reflect.DeepEqual(reloaded[0].Data, second.Data) {
		t.Errorf("reloaded entry = %+v, want %+v", reloaded[0], second)
	}
	if reloaded[0].Month != "2024-05" {
		t.Errorf("Month = %q, want 2024-05", reloaded[0].Month)
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	kv := &MockKV{}
	store := NewStore(kv, "")
	store.Load(ctx)

	a := store.NewEntry(sampleResult("2024-01"), baseTime)
	_ = store.Append(ctx, a)
	b := store.NewEntry(sampleResult("2024-02"), baseTime.Add(time.Minute))
	_ = store.Append(ctx, b)

	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var persisted []domain.HistoryEntry
	if err := json.Unmarshal(kv.LastValue, &persisted); err != nil {
		t.Fatalf("persisted value is not a list: %v", err)
	}
	if len(persisted) != 1 || persisted[0].ID != b.ID {
		t.Errorf("persisted = %+v, want only %s", persisted, b.ID)
	}
	if _, err := store.Get(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestStore_DeleteUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	kv := &MockKV{}
	store := NewStore(kv, "")
	store.Load(ctx)
	_ = store.Append(ctx, store.NewEntry(sampleResult("2024-01"), baseTime))

	before := store.Entries()
	calls := kv.PutCalls

	if err := store.Delete(ctx, "does-not-exist"); err != nil {
		t.Fatalf("Delete(unknown) error = %v", err)
	}
	if kv.PutCalls != calls {
		t.Errorf("Delete(unknown) wrote to the store")
	}
	if !reflect.DeepEqual(store.Entries(), before) {
		t.Errorf("Delete(unknown) changed entries")
	}
}

func TestStore_WriteFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	writeErr := errors.New("quota exceeded")
	kv := &MockKV{PutFunc: func(context.Context, string, []byte) error { return writeErr }}
	store := NewStore(kv, "")
	store.Load(ctx)

	entry := store.NewEntry(sampleResult("2024-03"), baseTime)
	err := store.Append(ctx, entry)
	if !errors.Is(err, writeErr) {
		t.Fatalf("Append() error = %v, want %v", err, writeErr)
	}
	if got := store.Entries(); len(got) != 1 || got[0].ID != entry.ID {
		t.Errorf("Entries() = %+v, want the appended entry", got)
	}

	// Once writes succeed again the pending change is persisted.
	kv.PutFunc = nil
	next := store.NewEntry(sampleResult("2024-04"), baseTime.Add(time.Second))
	if err := store.Append(ctx, next); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	var persisted []domain.HistoryEntry
	_ = json.Unmarshal(kv.LastValue, &persisted)
	if len(persisted) != 2 {
		t.Errorf("persisted %d entries, want 2", len(persisted))
	}
}

func TestStore_NewEntryIDCollision(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kvstore.NewMemoryStore(), "")
	store.Load(ctx)

	first := store.NewEntry(sampleResult("2024-01"), baseTime)
	if err := store.Append(ctx, first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	second := store.NewEntry(sampleResult("2024-02"), baseTime)
	if second.ID == first.ID {
		t.Fatalf("NewEntry reused id %s", first.ID)
	}
	if err := store.Append(ctx, second); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, first); err == nil {
		t.Error("expected duplicate id error")
	}
}

func TestStore_AddConcurrentSameInstant(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemoryStore()
	store := NewStore(kv, "")
	store.Load(ctx)

	const writers = 8
	now := time.UnixMilli(1700000000000)

	var wg sync.WaitGroup
	entries := make([]domain.HistoryEntry, writers)
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i], errs[i] = store.Add(ctx, sampleResult("2024-05"), now)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < writers; i++ {
		if errs[i] != nil {
			t.Errorf("Add() #%d error = %v", i, errs[i])
		}
		if seen[entries[i].ID] {
			t.Errorf("id %s allocated twice", entries[i].ID)
		}
		seen[entries[i].ID] = true
	}

	reloaded := NewStore(kv, "").Load(ctx)
	if len(reloaded) != writers {
		t.Fatalf("stored %d entries, want %d", len(reloaded), writers)
	}
	for _, e := range reloaded {
		if !seen[e.ID] {
			t.Errorf("stored unexpected id %s", e.ID)
		}
	}
}

func TestStore_AddWriteFailureReturnsEntry(t *testing.T) {
	ctx := context.Background()
	writeErr := errors.New("quota exceeded")
	store := NewStore(&MockKV{PutFunc: func(context.Context, string, []byte) error { return writeErr }}, "")
	store.Load(ctx)

	entry, err := store.Add(ctx, sampleResult("2024-05"), baseTime)
	if !errors.Is(err, writeErr) {
		t.Fatalf("Add() error = %v, want %v", err, writeErr)
	}
	if entry.ID != "1717243200000" {
		t.Errorf("ID = %q, want 1717243200000", entry.ID)
	}
	if got, err := store.Get(entry.ID); err != nil || got.Month != "2024-05" {
		t.Errorf("Get() = %+v, %v; want the kept entry", got, err)
	}
}

func TestStore_NewEntryFields(t *testing.T) {
	store := NewStore(kvstore.NewMemoryStore(), "")
	result := domain.AnalysisResult{
		StatementType: domain.StatementTypeCreditCard,
		BillData:      domain.StatementData{BillMonth: "2024-07", TotalAmount: 500},
	}

	entry := store.NewEntry(result, baseTime)
	if entry.ID != "1717243200000" {
		t.Errorf("ID = %q, want 1717243200000", entry.ID)
	}
	if entry.Type != domain.StatementTypeCreditCard || entry.Month != "2024-07" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestStore_Filter(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kvstore.NewMemoryStore(), "")
	store.Load(ctx)

	_ = store.Append(ctx, store.NewEntry(sampleResult("2024-01"), baseTime))
	card := store.NewEntry(domain.AnalysisResult{StatementType: domain.StatementTypeCreditCard}, baseTime.Add(time.Minute))
	_ = store.Append(ctx, card)

	if got := store.Filter(domain.StatementTypeCreditCard); len(got) != 1 || got[0].ID != card.ID {
		t.Errorf("Filter(credit_card) = %+v", got)
	}
	if got := store.Filter(domain.StatementTypeBank); len(got) != 1 {
		t.Errorf("Filter(bank) returned %d entries, want 1", len(got))
	}
}

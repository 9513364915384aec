package worklist

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "worklist.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testEntry(appointmentID int64, name string) Entry {
	accession := AccessionNumber(appointmentID, "ACC", 6)
	return Entry{
		AppointmentID:    appointmentID,
		AccessionNumber:  accession,
		PatientName:      name,
		PatientID:        FallbackPatientID(appointmentID),
		StudyDescription: "Siêu âm thai",
		Modality:         "US",
		ScheduledDate:    "20251102",
		ScheduledTime:    "143000",
		StudyInstanceUID: StudyInstanceUID(accession),
	}
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testEntry(42, "Nguyễn Thị Test")
	id1, err := store.Upsert(ctx, &first)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	second := testEntry(42, "Nguyễn Thị Đổi Tên")
	second.ScheduledTime = "150000"
	id2, err := store.Upsert(ctx, &second)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if id1 != id2 {
		t.Errorf("Expected the same row id, got %d and %d", id1, id2)
	}

	entries, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].PatientName != "Nguyễn Thị Đổi Tên" || entries[0].ScheduledTime != "150000" {
		t.Errorf("Expected latest values, got %+v", entries[0])
	}
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := testEntry(int64(i%4), fmt.Sprintf("Patient %d", i))
			if _, err := store.Upsert(ctx, &e); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Upsert() error = %v", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 distinct accession numbers, got %d", n)
	}
}

func TestStore_GetAllOrdersByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{30, 10, 20} {
		e := testEntry(id, "P")
		if _, err := store.Upsert(ctx, &e); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	entries, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	want := []string{"ACC000030", "ACC000010", "ACC000020"}
	for i, e := range entries {
		if e.AccessionNumber != want[i] {
			t.Errorf("entry %d = %s, want %s", i, e.AccessionNumber, want[i])
		}
	}
}

func TestStore_CRUDByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := testEntry(7, "Trần Văn A")
	id, err := store.Upsert(ctx, &e)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.AccessionNumber != "ACC000007" {
		t.Errorf("AccessionNumber = %s", got.AccessionNumber)
	}

	correction := *got
	correction.PatientName = "Trần Văn B"
	correction.ID = 999
	updated, err := store.UpdateByID(ctx, id, correction)
	if err != nil {
		t.Fatalf("UpdateByID() error = %v", err)
	}
	if updated.ID != id || updated.PatientName != "Trần Văn B" {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := store.UpdateByID(ctx, id+100, correction); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByID(ctx, id+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	deleted, err := store.DeleteByID(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("DeleteByID() = %v, %v", deleted, err)
	}
	deleted, err = store.DeleteByID(ctx, id)
	if err != nil || deleted {
		t.Errorf("second DeleteByID() = %v, %v", deleted, err)
	}
}

func TestStore_UpdateByIDDuplicateAccession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testEntry(7, "Trần Văn A")
	if _, err := store.Upsert(ctx, &first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	second := testEntry(8, "Trần Văn B")
	id, err := store.Upsert(ctx, &second)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	clash := second
	clash.AccessionNumber = first.AccessionNumber
	if _, err := store.UpdateByID(ctx, id, clash); !errors.Is(err, ErrDuplicateAccession) {
		t.Errorf("Expected ErrDuplicateAccession, got %v", err)
	}

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.AccessionNumber != second.AccessionNumber {
		t.Errorf("Expected %s, got %s", second.AccessionNumber, got.AccessionNumber)
	}
}

func TestStore_ReplaceAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		e := testEntry(id, "stale")
		if _, err := store.Upsert(ctx, &e); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	n, err := store.ReplaceAll(ctx, []Entry{testEntry(3, "fresh"), testEntry(4, "new")})
	if err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ReplaceAll() = %d, want 2", n)
	}

	entries, _ := store.GetAll(ctx)
	got := map[string]string{}
	for _, e := range entries {
		got[e.AccessionNumber] = e.PatientName
	}
	if len(got) != 2 || got["ACC000003"] != "fresh" || got["ACC000004"] != "new" {
		t.Errorf("Expected exactly the new snapshot, got %v", got)
	}
}

func TestStore_ReplaceAllRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := testEntry(1, "kept")
	if _, err := store.Upsert(ctx, &e); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	broken := testEntry(2, "broken")
	broken.AccessionNumber = ""
	if _, err := store.ReplaceAll(ctx, []Entry{testEntry(5, "x"), broken}); err == nil {
		t.Fatal("Expected error for entry without accession number")
	}

	entries, _ := store.GetAll(ctx)
	if len(entries) != 1 || entries[0].PatientName != "kept" {
		t.Errorf("Expected store untouched after failed replace, got %+v", entries)
	}
}

func TestStore_ClearAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := testEntry(1, "x")
	_, _ = store.Upsert(ctx, &e)
	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("Expected empty store, got %d entries", n)
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

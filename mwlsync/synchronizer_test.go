package mwlsync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/caio-sobreiro/mwlbridge/source"
	"github.com/caio-sobreiro/mwlbridge/worklist"
)

func appointment(id int64, text, status string) source.Appointment {
	return source.Appointment{
		ID:            id,
		ScheduledAt:   time.Date(2025, 11, 2, 14, 30, 0, 0, time.UTC),
		ProcedureText: text,
		Status:        status,
		Patient:       source.Patient{Name: "Nguyễn Thị Test"},
	}
}

type fixture struct {
	reader *source.MemoryReader
	store  *worklist.Store
	sync   *Synchronizer
}

func newFixture(t *testing.T, appointments ...source.Appointment) *fixture {
	t.Helper()
	store, err := worklist.Open(filepath.Join(t.TempDir(), "worklist.db"))
	if err != nil {
		t.Fatalf("worklist.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reader := source.NewMemoryReader(appointments...)
	extractor := source.NewExtractor(reader, source.NewClassifier(nil, nil), source.DefaultProjection)
	return &fixture{reader: reader, store: store, sync: New(extractor, store, zerolog.Nop())}
}

func accessions(t *testing.T, store *worklist.Store) []string {
	t.Helper()
	entries, err := store.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	var out []string
	for _, e := range entries {
		out = append(out, e.AccessionNumber)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSyncOne_Scenario(t *testing.T) {
	f := newFixture(t, appointment(42, "Siêu âm thai", "pending"))

	entry, err := f.sync.SyncOne(context.Background(), 42)
	if err != nil {
		t.Fatalf("SyncOne() error = %v", err)
	}
	if entry.AccessionNumber != "ACC000042" || entry.ScheduledDate != "20251102" ||
		entry.ScheduledTime != "143000" || entry.Modality != "US" {
		t.Errorf("entry = %+v", entry)
	}

	if got := accessions(t, f.store); !equalStrings(got, []string{"ACC000042"}) {
		t.Errorf("store = %v", got)
	}
}

func TestSyncOne_SkipsOutOfScope(t *testing.T) {
	f := newFixture(t, appointment(5, "Khám tổng quát", "pending"))

	entry, err := f.sync.SyncOne(context.Background(), 5)
	if err != nil || entry != nil {
		t.Fatalf("SyncOne() = %v, %v; want nil, nil", entry, err)
	}
	if got := accessions(t, f.store); len(got) != 0 {
		t.Errorf("Expected empty store, got %v", got)
	}
	if stats := f.sync.Stats(); stats.SingleSkipped != 1 || stats.SingleFailures != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSyncOne_SourceFailureWritesNothing(t *testing.T) {
	f := newFixture(t, appointment(42, "Siêu âm thai", "pending"))
	boom := errors.New("scheduling database unreachable")
	f.reader.SetErr(boom)

	if _, err := f.sync.SyncOne(context.Background(), 42); !errors.Is(err, boom) {
		t.Fatalf("Expected source error, got %v", err)
	}
	if got := accessions(t, f.store); len(got) != 0 {
		t.Errorf("Expected no partial entry, got %v", got)
	}

	stats := f.sync.Stats()
	if stats.SingleFailures != 1 || stats.LastSingle == nil || stats.LastSingle.Error == "" {
		t.Errorf("stats = %+v", stats)
	}
}

func TestFullRefresh_Converges(t *testing.T) {
	f := newFixture(t,
		appointment(1, "Siêu âm thai", "pending"),
		appointment(2, "Khám tổng quát", "pending"),
		appointment(3, "ultrasound screening", "scheduled"),
		appointment(4, "Xét nghiệm máu", "scheduled"),
	)
	ctx := context.Background()

	// a stale row that no longer exists upstream
	stale := worklist.Entry{AccessionNumber: "ACC000099", PatientName: "Old", PatientID: "X", Modality: "US", ScheduledDate: "20250101"}
	if _, err := f.store.Upsert(ctx, &stale); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	n, err := f.sync.FullRefresh(ctx)
	if err != nil {
		t.Fatalf("FullRefresh() error = %v", err)
	}
	if n != 2 {
		t.Errorf("FullRefresh() = %d, want 2", n)
	}
	if got := accessions(t, f.store); !equalStrings(got, []string{"ACC000001", "ACC000003"}) {
		t.Errorf("store = %v", got)
	}

	// booking 1 completes, a new one arrives
	f.reader.Put(appointment(1, "Siêu âm thai", "completed"))
	f.reader.Put(appointment(5, "Sieu am bung", "pending"))
	if _, err := f.sync.FullRefresh(ctx); err != nil {
		t.Fatalf("FullRefresh() error = %v", err)
	}
	if got := accessions(t, f.store); !equalStrings(got, []string{"ACC000003", "ACC000005"}) {
		t.Errorf("store = %v", got)
	}
}

func TestFullRefresh_ExtractionFailureKeepsStore(t *testing.T) {
	f := newFixture(t, appointment(1, "Siêu âm thai", "pending"))
	ctx := context.Background()

	if _, err := f.sync.FullRefresh(ctx); err != nil {
		t.Fatalf("FullRefresh() error = %v", err)
	}

	f.reader.SetErr(errors.New("timeout"))
	if _, err := f.sync.FullRefresh(ctx); err == nil {
		t.Fatal("Expected extraction error")
	}
	if got := accessions(t, f.store); !equalStrings(got, []string{"ACC000001"}) {
		t.Errorf("Expected previous worklist to survive, got %v", got)
	}

	stats := f.sync.Stats()
	if stats.FullPasses != 2 || stats.FullFailures != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

type failingStore struct{}

func (failingStore) Upsert(ctx context.Context, e *worklist.Entry) (int64, error) {
	return 0, errors.New("disk I/O error")
}

func (failingStore) ReplaceAll(ctx context.Context, entries []worklist.Entry) (int, error) {
	return 0, errors.New("disk I/O error")
}

func TestSynchronizer_StoreErrorsSurface(t *testing.T) {
	reader := source.NewMemoryReader(appointment(1, "Siêu âm thai", "pending"))
	extractor := source.NewExtractor(reader, source.NewClassifier(nil, nil), source.DefaultProjection)
	s := New(extractor, failingStore{}, zerolog.Nop())

	if _, err := s.FullRefresh(context.Background()); err == nil {
		t.Error("Expected FullRefresh to report store error")
	}
	if _, err := s.SyncOne(context.Background(), 1); err == nil {
		t.Error("Expected SyncOne to report store error")
	}
}

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ssimranjit302/Bayesian-ML-Booking-System/internal/model"
)

func ptr(f float64) *float64 { return &f }

func sampleRecords() []*model.BeliefRecord {
	return []*model.BeliefRecord{
		{Service: "Cryo", Hour: 9, Alpha: 14, Beta: 6, PHat: ptr(0.7), NTotal: 10, NFull: 7,
			Prior: model.Distribution{0.5, 0.3, 0.2}},
		{Service: "Cryo", Hour: 15, Alpha: 1, Beta: 1, NTotal: 2, NFull: 1,
			Prior: model.Distribution{1.0 / 3, 1.0 / 3, 1.0 / 3}},
		{Service: "Sauna", Hour: 18, Alpha: 0.001, Beta: 20, PHat: ptr(0), NTotal: 8,
			Prior: model.Distribution{0.9, 0.1, 0}},
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Replace(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestSQLiteGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.Get(ctx, model.SlotKey{Service: "Cryo", Hour: 9})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Alpha != 14 || rec.Beta != 6 {
		t.Errorf("expected alpha=14 beta=6, got %v %v", rec.Alpha, rec.Beta)
	}
	if rec.PHat == nil || *rec.PHat != 0.7 {
		t.Errorf("expected p_hat 0.7, got %v", rec.PHat)
	}
	if len(rec.Prior) != 3 || rec.Prior[1] != 0.3 {
		t.Errorf("prior not persisted: %v", rec.Prior)
	}
	if rec.Version != 1 {
		t.Errorf("expected version 1, got %d", rec.Version)
	}

	weak, _ := s.Get(ctx, model.SlotKey{Service: "Cryo", Hour: 15})
	if weak.PHat != nil {
		t.Errorf("expected null p_hat, got %v", *weak.PHat)
	}
}

func TestSQLiteGetUnknown(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), model.SlotKey{Service: "Cryo", Hour: 3})
	if !errors.Is(err, ErrUnknownSlot) {
		t.Fatalf("expected ErrUnknownSlot, got %v", err)
	}
	var use *UnknownSlotError
	if !errors.As(err, &use) || use.Key.Hour != 3 {
		t.Errorf("expected UnknownSlotError for hour 3, got %v", err)
	}
}

func TestSQLiteUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	key := model.SlotKey{Service: "Cryo", Hour: 9}

	p, err := s.Update(ctx, model.Observation{Key: key, IsFull: true, Source: model.SourceObserved})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p != 15.0/21 {
		t.Errorf("expected p_hat 15/21, got %v", p)
	}

	rec, _ := s.Get(ctx, key)
	if rec.Alpha != 15 || rec.Beta != 6 || rec.NFull != 8 || rec.NTotal != 11 {
		t.Errorf("unexpected record after full update: %+v", rec)
	}
	if rec.Version != 2 {
		t.Errorf("expected version 2, got %d", rec.Version)
	}

	p, _ = s.Update(ctx, model.Observation{Key: key, IsFull: false, Source: model.SourceDecision})
	if p != 15.0/22 {
		t.Errorf("expected p_hat 15/22, got %v", p)
	}
	rec, _ = s.Get(ctx, key)
	if rec.Beta != 7 || rec.NFull != 8 || rec.NTotal != 12 {
		t.Errorf("unexpected record after not-full update: %+v", rec)
	}
	if rec.Prior[0] != 0.5 {
		t.Errorf("prior must not change on update, got %v", rec.Prior)
	}

	hist, err := s.History(ctx, key, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(hist))
	}
	if hist[0].Source != model.SourceDecision || hist[0].IsFull {
		t.Errorf("expected newest entry to be a not-full decision, got %+v", hist[0])
	}

	counts, _ := s.ObservationCounts(ctx)
	if counts[model.SourceDecision] != 1 || counts[model.SourceObserved] != 1 {
		t.Errorf("unexpected source counts %v", counts)
	}
}

func TestSQLiteUpdateUnknown(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(context.Background(), model.Observation{Key: model.SlotKey{Service: "Nope", Hour: 1}})
	if !errors.Is(err, ErrUnknownSlot) {
		t.Fatalf("expected ErrUnknownSlot, got %v", err)
	}
}

func TestSQLiteStaleVersionLoses(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	key := model.SlotKey{Service: "Cryo", Hour: 9}

	stale, _ := s.Get(ctx, key)
	if _, err := s.Update(ctx, model.Observation{Key: key, IsFull: true}); err != nil {
		t.Fatalf("update: %v", err)
	}

	prev := stale.Version
	stale.Apply(false)
	ok, err := s.compareAndSwap(ctx, stale, prev, false, model.SourceObserved)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if ok {
		t.Fatal("expected stale write to be rejected")
	}

	rec, _ := s.Get(ctx, key)
	if rec.NTotal != 11 || rec.Beta != 6 {
		t.Errorf("stale write leaked into record: %+v", rec)
	}
}

func TestSQLiteList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	all, _ := s.List(ctx, ListParams{})
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}
	if all[0].Hour != 9 || all[1].Hour != 15 || all[2].Service != "Sauna" {
		t.Errorf("unexpected order: %v %v %v", all[0].Key(), all[1].Key(), all[2].Key())
	}

	cryo, _ := s.List(ctx, ListParams{Service: "Cryo"})
	if len(cryo) != 2 {
		t.Errorf("expected 2, got %d", len(cryo))
	}

	one, _ := s.List(ctx, ListParams{Limit: 1})
	if len(one) != 1 {
		t.Errorf("expected 1, got %d", len(one))
	}
}

func TestSQLiteReplaceRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	bad := sampleRecords()
	bad[2].Prior = model.Distribution{0.5, 0.1}
	err := s.Replace(ctx, bad)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}

	// the previous mapping survives the failed replace
	all, _ := s.List(ctx, ListParams{})
	if len(all) != 3 {
		t.Errorf("expected 3 records after rollback, got %d", len(all))
	}
}

func TestSQLiteReplaceClearsObservationLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	key := model.SlotKey{Service: "Cryo", Hour: 9}

	if _, err := s.Update(ctx, model.Observation{Key: key, IsFull: true, Source: model.SourceDecision}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.Replace(ctx, sampleRecords()); err != nil {
		t.Fatalf("replace: %v", err)
	}

	counts, err := s.ObservationCounts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("expected empty log after replace, got %v", counts)
	}
	hist, _ := s.History(ctx, key, 0)
	if len(hist) != 0 {
		t.Errorf("expected no history after replace, got %d entries", len(hist))
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

package runstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"warehouseplanner/warehouse/service"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string, started time.Time) *service.RunRecord {
	return &service.RunRecord{
		ID:         id,
		SessionID:  "ab12",
		Scenario:   "default",
		Outcome:    service.OutcomePlanned,
		PlanLength: 14,
		Applied:    0,
		DurationMs: 230,
		StartedAt:  started,
		FinishedAt: started.Add(230 * time.Millisecond),
		Problem:    []byte("(define (problem warehouse-delivery) ...)"),
		Plan:       []byte("(move r2 zone_6_6 zone_6_5)\n"),
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Expected error for empty db path")
	}
}

func TestOpen_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	store.Close()
}

func TestRecordAndRecentRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	runs, err := store.RecentRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(runs))
	}
	// Newest first
	if runs[0].ID != "run-2" || runs[2].ID != "run-0" {
		t.Errorf("Expected newest-first order, got %s .. %s", runs[0].ID, runs[2].ID)
	}

	got := runs[0]
	if got.SessionID != "ab12" || got.Scenario != "default" {
		t.Errorf("Unexpected run fields: %+v", got)
	}
	if got.Outcome != service.OutcomePlanned || got.PlanLength != 14 {
		t.Errorf("Unexpected run fields: %+v", got)
	}
	if !got.StartedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("Unexpected started_at: %s", got.StartedAt)
	}
}

func TestRecentRuns_SessionFilterAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 4; i++ {
		rec := sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Second))
		if i%2 == 1 {
			rec.SessionID = "cd34"
		}
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	runs, err := store.RecentRuns(ctx, "cd34", 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs for session cd34, got %d", len(runs))
	}
	for _, r := range runs {
		if r.SessionID != "cd34" {
			t.Errorf("Run %s belongs to session %s", r.ID, r.SessionID)
		}
	}

	limited, err := store.RecentRuns(ctx, "", 1)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "run-3" {
		t.Errorf("Expected only the newest run, got %v", limited)
	}
}

func TestRecentRuns_EmptyStore(t *testing.T) {
	store := openTestStore(t)

	runs, err := store.RecentRuns(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", runs)
	}
}

func TestRunArtifacts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := sampleRun("run-a", time.Now().UTC())
	if err := store.Record(ctx, rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	problem, plan, err := store.RunArtifacts(ctx, "run-a")
	if err != nil {
		t.Fatalf("RunArtifacts failed: %v", err)
	}
	if string(problem) != string(rec.Problem) {
		t.Errorf("Problem round-trip mismatch: %q", problem)
	}
	if string(plan) != string(rec.Plan) {
		t.Errorf("Plan round-trip mismatch: %q", plan)
	}
}

func TestRunArtifacts_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, _, err := store.RunArtifacts(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestRecord_NoArtifacts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := sampleRun("run-b", time.Now().UTC())
	rec.Problem = nil
	rec.Plan = nil
	if err := store.Record(ctx, rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// No artifacts row was written
	_, _, err := store.RunArtifacts(ctx, "run-b")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound for artifact-less run, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		rec := sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Second))
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	dropped, err := store.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if dropped != 3 {
		t.Errorf("Expected 3 runs pruned, got %d", dropped)
	}

	runs, err := store.RecentRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs left, got %d", len(runs))
	}
	if runs[0].ID != "run-4" || runs[1].ID != "run-3" {
		t.Errorf("Pruned the wrong runs: %s, %s", runs[0].ID, runs[1].ID)
	}

	// Pruned runs lose their artifacts via the cascade
	if _, _, err := store.RunArtifacts(ctx, "run-0"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected cascaded artifact delete, got %v", err)
	}
}

func TestPrune_NonPositiveKeep(t *testing.T) {
	store := openTestStore(t)

	dropped, err := store.Prune(context.Background(), 0)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if dropped != 0 {
		t.Errorf("Expected no-op for keep=0, got %d", dropped)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	data := []byte("(define (problem warehouse-delivery)\n (:domain warehouse)\n)")

	gz, err := compress(data)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	got, err := decompress(gz)
	if err != nil {
		t.Fatalf("decompress failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Round trip mismatch: %q", got)
	}

	// Empty payloads stay nil in both directions
	if gz, _ := compress(nil); gz != nil {
		t.Error("Expected nil for empty input")
	}
	if out, _ := decompress(nil); out != nil {
		t.Error("Expected nil for empty input")
	}
}

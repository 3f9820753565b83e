package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
	"github.com/remedystack/remedy-engine/internal/utils"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReport(runID string, started time.Time) models.RunReport {
	return models.RunReport{
		RunID:    runID,
		Mode:     models.ModeAutomatic,
		Status:   models.RunCompleted,
		Started:  started,
		Finished: started.Add(2 * time.Second),
		Items: []models.ItemResult{{
			Index:    0,
			LookupID: "REM_RestartService_Generic",
		}},
	}
}

func TestSaveAndGetReport(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	report := sampleReport("run-1", time.Now().UTC())

	if err := store.SaveReport(ctx, report); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.GetReport(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.RunID != "run-1" || loaded.Status != models.RunCompleted {
		t.Fatalf("unexpected report: %+v", loaded)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].LookupID != "REM_RestartService_Generic" {
		t.Fatalf("items not round-tripped: %+v", loaded.Items)
	}
}

func TestOpenFailureCarriesOperationContext(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	_, err := Open(filepath.Join(blocker, "sub", "history.db"), nil)
	if err == nil {
		t.Fatal("expected error when the parent path is a file")
	}
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %T lacks operation context", err)
	}
	if appErr.Op != "history.open" {
		t.Fatalf("op = %q", appErr.Op)
	}
}

func TestGetReportNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetReport(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveReportWithoutRunID(t *testing.T) {
	store := openTestStore(t)
	if err := store.SaveReport(context.Background(), models.RunReport{}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := store.SaveReport(ctx, sampleReport(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	summaries, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].RunID != "run-c" || summaries[1].RunID != "run-b" {
		t.Fatalf("not newest first: %+v", summaries)
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	store.SaveReport(ctx, sampleReport("old", base))
	store.SaveReport(ctx, sampleReport("new", base.Add(48*time.Hour)))

	removed, err := store.Prune(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := store.GetReport(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old run should be gone, got %v", err)
	}
	if _, err := store.GetReport(ctx, "new"); err != nil {
		t.Fatalf("new run should remain: %v", err)
	}
}

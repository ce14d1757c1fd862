package delibstate

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/revisoria/deliberation/internal/domain"
	"github.com/revisoria/deliberation/internal/orcherrors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	store := newTestStore(t)

	state := domain.DeliberationState{
		ProjectID:    "p1",
		CompanyID:    "c1",
		CurrentStage: domain.StageFiscal,
		Status:       domain.StatusInProgress,
		StageResults: map[domain.Stage]domain.StageResultSummary{
			domain.StageStrategy: {Decision: domain.DecisionApprove, Reasoning: "ok", RecordedAt: time.Now().UTC()},
		},
		ProjectSnapshot: domain.Project{ID: "p1", CompanyID: "c1", Name: "X"},
	}
	if err := store.Save(state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load("p1", "c1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.CurrentStage != domain.StageFiscal || got.Status != domain.StatusInProgress {
		t.Fatalf("unexpected state: %+v", got)
	}
	if len(got.StageResults) != 1 {
		t.Fatalf("expected 1 stage result, got %d", len(got.StageResults))
	}
	if got.ProjectSnapshot.Name != "X" {
		t.Fatalf("project snapshot not round-tripped: %+v", got.ProjectSnapshot)
	}
}

func TestSaveIsUpsert(t *testing.T) {
	store := newTestStore(t)

	state := domain.DeliberationState{ProjectID: "p1", CompanyID: "c1", CurrentStage: domain.StageStrategy, Status: domain.StatusInProgress}
	if err := store.Save(state); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	state.CurrentStage = domain.StageFiscal
	state.Status = domain.StatusCompleted
	if err := store.Save(state); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := store.Load("p1", "c1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.CurrentStage != domain.StageFiscal || got.Status != domain.StatusCompleted {
		t.Fatalf("upsert did not apply: %+v", got)
	}
}

func TestLoadMismatchedCompanyIsNotFound(t *testing.T) {
	store := newTestStore(t)
	store.Save(domain.DeliberationState{ProjectID: "p1", CompanyID: "c1", CurrentStage: domain.StageStrategy, Status: domain.StatusInProgress})

	_, err := store.Load("p1", "c2")
	if !errors.Is(err, orcherrors.ErrNotFound) {
		t.Fatalf("expected NotFound for mismatched tenant, got %v", err)
	}
}

func TestLoadUnknownProjectIsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load("nope", "c1")
	if !errors.Is(err, orcherrors.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

package sqlindex

import (
	"path/filepath"
	"testing"

	"github.com/revisoria/deliberation/internal/defensefile"
	"github.com/revisoria/deliberation/internal/domain"
)

func newTestStore(t *testing.T) *IndexedStore {
	t.Helper()
	fileStore := defensefile.NewFileStore(filepath.Join(t.TempDir(), "defense_files"))
	idx, err := New(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return NewIndexedStore(fileStore, idx)
}

func TestIndexedStoreReflectsDecisionsAfterAppend(t *testing.T) {
	store := newTestStore(t)

	if err := store.RecordProject("p1", "acme", domain.Project{ID: "p1", CompanyID: "acme"}); err != nil {
		t.Fatalf("RecordProject() error = %v", err)
	}
	if err := store.AppendDecision("p1", "acme", domain.AgentDecision{Stage: domain.StageStrategy, Decision: domain.DecisionApprove}); err != nil {
		t.Fatalf("AppendDecision() error = %v", err)
	}

	rows, err := store.index.ListByCompany("acme")
	if err != nil {
		t.Fatalf("ListByCompany() error = %v", err)
	}
	if len(rows) != 1 || rows[0].DecisionCount != 1 {
		t.Fatalf("rows = %+v, want one row with 1 decision", rows)
	}
}

func TestIndexedStoreReflectsFinalDecision(t *testing.T) {
	store := newTestStore(t)

	if err := store.RecordProject("p1", "acme", domain.Project{ID: "p1", CompanyID: "acme"}); err != nil {
		t.Fatalf("RecordProject() error = %v", err)
	}
	if err := store.SetFinal("p1", "acme", domain.DecisionReject, "no business rationale"); err != nil {
		t.Fatalf("SetFinal() error = %v", err)
	}

	rows, err := store.index.ListByDecision("acme", domain.DecisionReject)
	if err != nil {
		t.Fatalf("ListByDecision() error = %v", err)
	}
	if len(rows) != 1 || rows[0].ProjectID != "p1" {
		t.Fatalf("rows = %+v, want p1 indexed under reject", rows)
	}

	open, err := store.index.ListOpen("acme")
	if err != nil {
		t.Fatalf("ListOpen() error = %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("ListOpen() = %+v, want none (p1 is finalized)", open)
	}
}

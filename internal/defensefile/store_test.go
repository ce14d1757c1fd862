package defensefile

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/revisoria/deliberation/internal/domain"
	"github.com/revisoria/deliberation/internal/orcherrors"
)

func TestGetOrCreateReturnsEmptyDefenseFile(t *testing.T) {
	store := NewFileStore(t.TempDir())

	df, err := store.GetOrCreate("proj-1", "acme")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if df.ProjectID != "proj-1" || df.CompanyID != "acme" {
		t.Fatalf("unexpected defense file %+v", df)
	}
	if len(df.Decisions) != 0 {
		t.Errorf("expected no decisions, got %d", len(df.Decisions))
	}
}

func TestAppendDecisionPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	if err := store.AppendDecision("proj-1", "acme", domain.AgentDecision{
		Stage:     domain.StageStrategy,
		AgentID:   "A1_SPONSOR",
		Decision:  domain.DecisionApprove,
		Reasoning: "Existe razon de negocios clara.",
	}); err != nil {
		t.Fatalf("AppendDecision() error = %v", err)
	}

	reopened := NewFileStore(dir)
	df, err := reopened.GetOrCreate("proj-1", "acme")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if len(df.Decisions) != 1 {
		t.Fatalf("expected 1 decision after reopening store, got %d", len(df.Decisions))
	}
	if df.Decisions[0].Version != 1 {
		t.Errorf("expected version 1, got %d", df.Decisions[0].Version)
	}
}

func TestExportRejectsCompanyMismatchAsNotFound(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.RecordProject("proj-1", "acme", domain.Project{CompanyID: "acme", Name: "Roof repair"}); err != nil {
		t.Fatalf("RecordProject() error = %v", err)
	}

	_, err := store.Export("proj-1", "other-co")
	if err == nil {
		t.Fatal("expected an error for a cross-tenant export")
	}
	if !errors.Is(err, orcherrors.ErrNotFound) {
		t.Fatalf("expected NotFound for a cross-tenant export, got %v", err)
	}
}

func TestExportReflectsDerivedChecklist(t *testing.T) {
	store := NewFileStore(t.TempDir())
	store.RecordProject("proj-1", "acme", domain.Project{CompanyID: "acme", Name: "Roof repair"})
	store.AppendDecision("proj-1", "acme", domain.AgentDecision{Stage: domain.StageStrategy, Reasoning: "razon de negocios"})
	store.AppendDecision("proj-1", "acme", domain.AgentDecision{Stage: domain.StageFiscal, Reasoning: "beneficio economico y materialidad"})

	export, err := store.Export("proj-1", "acme")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !export.AuditReady {
		t.Errorf("expected export to be audit-ready, got %+v", export.ComplianceChecklist)
	}
	if export.EvidenceCount.Decisions != 2 {
		t.Errorf("expected 2 decisions counted, got %d", export.EvidenceCount.Decisions)
	}
}

func TestReadAllScopesToCompanyDirectory(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	store.RecordProject("proj-1", "acme", domain.Project{CompanyID: "acme", Name: "A"})
	store.RecordProject("proj-2", "acme", domain.Project{CompanyID: "acme", Name: "B"})
	store.RecordProject("proj-3", "other-co", domain.Project{CompanyID: "other-co", Name: "C"})

	files, err := store.ReadAll("acme")
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 defense files for acme, got %d", len(files))
	}
}

func TestReadAllOnMissingCompanyDirReturnsEmpty(t *testing.T) {
	store := NewFileStore(t.TempDir())
	files, err := store.ReadAll("nobody")
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files, got %d", len(files))
	}
}

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			store.AppendDecision("proj-1", "acme", domain.AgentDecision{
				Stage:    domain.StageStrategy,
				Decision: domain.DecisionApprove,
			})
		}(i)
	}
	wg.Wait()

	df, err := store.GetOrCreate("proj-1", "acme")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if len(df.Decisions) != n {
		t.Fatalf("expected %d decisions, got %d (lost update under concurrency)", n, len(df.Decisions))
	}

	seen := make(map[int]bool)
	for _, d := range df.Decisions {
		if seen[d.Version] {
			t.Fatalf("duplicate version %d assigned, append was not serialized", d.Version)
		}
		seen[d.Version] = true
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	store.RecordProject("proj-1", "acme", domain.Project{CompanyID: "acme", Name: "A"})

	matches, err := filepath.Glob(filepath.Join(dir, "acme", ".defensefile-*.tmp"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no leftover temp files, found %v", matches)
	}
}

func TestRecordProjectResubmissionLeavesVersionEntry(t *testing.T) {
	store := NewFileStore(t.TempDir())

	first := domain.Project{ID: "proj-1", CompanyID: "acme", Name: "Roof repair", CreatedBy: "u1"}
	if err := store.RecordProject("proj-1", "acme", first); err != nil {
		t.Fatalf("first RecordProject() error = %v", err)
	}

	df, _ := store.GetOrCreate("proj-1", "acme")
	if len(df.VersionEntries) != 0 {
		t.Fatalf("the initial submission must not create a version entry, got %d", len(df.VersionEntries))
	}

	second := first
	second.Description = "Roof repair, now with supplemental documents"
	if err := store.RecordProject("proj-1", "acme", second); err != nil {
		t.Fatalf("second RecordProject() error = %v", err)
	}

	df, _ = store.GetOrCreate("proj-1", "acme")
	if len(df.VersionEntries) != 1 {
		t.Fatalf("a resubmission must leave exactly one version entry, got %d", len(df.VersionEntries))
	}
	if df.VersionEntries[0].ChangeType != "project_resubmitted" {
		t.Fatalf("unexpected change type %q", df.VersionEntries[0].ChangeType)
	}
	if df.Project.Description != second.Description {
		t.Fatalf("snapshot was not replaced")
	}
}

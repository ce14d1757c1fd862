package stagegraph

import (
	"path/filepath"
	"testing"

	"github.com/revisoria/deliberation/internal/domain"
)

func TestDefaultApprovalChain(t *testing.T) {
	g := Default()
	stage := g.EntryStage()
	if stage != domain.StageStrategy {
		t.Fatalf("entry stage = %s, want %s", stage, domain.StageStrategy)
	}

	want := []domain.Stage{
		domain.StageFiscal, domain.StageFinance, domain.StageLegal,
		domain.StageAuditor, domain.StageApproved,
	}
	for _, w := range want {
		stage = g.Next(stage, domain.DecisionApprove)
		if stage != w {
			t.Fatalf("Next = %s, want %s", stage, w)
		}
	}
}

func TestDefaultWithoutAuditorTerminatesAtLegal(t *testing.T) {
	g := DefaultWithoutAuditor()
	stage := domain.StageLegal
	if got := g.Next(stage, domain.DecisionApprove); got != domain.StageApproved {
		t.Fatalf("Next(Legal, approve) = %s, want APPROVED", got)
	}
}

func TestRejectIsAlwaysTerminal(t *testing.T) {
	g := Default()
	for _, s := range g.Stages() {
		if got := g.Next(s, domain.DecisionReject); got != domain.StageRejected {
			t.Errorf("Next(%s, reject) = %s, want REJECTED", s, got)
		}
	}
}

func TestRequestInfoSelfLoop(t *testing.T) {
	g := Default()
	for _, s := range g.Stages() {
		if got := g.Next(s, domain.DecisionRequestInfo); got != s {
			t.Errorf("Next(%s, request_info) = %s, want self-loop to %s", s, got, s)
		}
	}
}

func TestAgentForUnknownStageIsFalse(t *testing.T) {
	g := Default()
	if _, ok := g.AgentFor(domain.StageApproved); ok {
		t.Fatal("AgentFor(APPROVED) should be false: terminal sinks bind no agent")
	}
}

func TestIndexOfAndTotalStages(t *testing.T) {
	g := Default()
	if g.TotalStages() != 5 {
		t.Fatalf("TotalStages = %d, want 5", g.TotalStages())
	}
	if g.IndexOf(domain.StageFinance) != 2 {
		t.Fatalf("IndexOf(FINANCE) = %d, want 2", g.IndexOf(domain.StageFinance))
	}
	if g.IndexOf(domain.StageRejected) != -1 {
		t.Fatal("IndexOf(REJECTED) should be -1: it is not a graph node")
	}
}

func TestLoadFileMissingFallsBackToDefault(t *testing.T) {
	g, err := LoadFile(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile on missing file returned error: %v", err)
	}
	if g.EntryStage() != domain.StageStrategy {
		t.Fatalf("fallback graph entry = %s, want %s", g.EntryStage(), domain.StageStrategy)
	}
}

func TestFromConfigRequiresStageAndAgent(t *testing.T) {
	_, err := FromConfig(FileConfig{Stages: []struct {
		Stage         string `yaml:"stage"`
		AgentID       string `yaml:"agentId"`
		OnApprove     string `yaml:"onApprove"`
		OnReject      string `yaml:"onReject"`
		OnRequestInfo string `yaml:"onRequestInfo"`
	}{{Stage: "", AgentID: ""}}})
	if err == nil {
		t.Fatal("expected error for empty stage/agentId")
	}
}

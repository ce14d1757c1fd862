package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/revisoria/deliberation/internal/domain"
	"github.com/revisoria/deliberation/internal/quota"
)

func TestLoadMissingFileReturnsAllDefaults(t *testing.T) {
	bundle, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if bundle.Graph.EntryStage() != domain.StageStrategy {
		t.Fatalf("entry stage = %s, want %s", bundle.Graph.EntryStage(), domain.StageStrategy)
	}
	if _, ok := bundle.Registry.Get("A1_SPONSOR"); !ok {
		t.Fatalf("expected default registry to carry A1_SPONSOR")
	}
	if bundle.Timeouts.MaxModelAttempts != 3 {
		t.Fatalf("MaxModelAttempts = %d, want 3", bundle.Timeouts.MaxModelAttempts)
	}
	if bundle.Timeouts.ModelTimeout != 60*time.Second {
		t.Fatalf("ModelTimeout = %s, want 60s", bundle.Timeouts.ModelTimeout)
	}
}

func TestLoadOverridesOnlyMentionedSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deliberation.yaml")
	doc := `
timeouts:
  maxModelAttempts: 5
  modelTimeout: 30s
plans:
  free:
    requestsPerDay: 10
    tokensPerDay: 1000
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	bundle, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Stages and agents weren't mentioned: still the coded defaults.
	if bundle.Graph.EntryStage() != domain.StageStrategy {
		t.Fatalf("entry stage = %s, want %s", bundle.Graph.EntryStage(), domain.StageStrategy)
	}
	if _, ok := bundle.Registry.Get("A1_SPONSOR"); !ok {
		t.Fatalf("expected default registry to carry A1_SPONSOR")
	}

	if bundle.Timeouts.MaxModelAttempts != 5 {
		t.Fatalf("MaxModelAttempts = %d, want 5", bundle.Timeouts.MaxModelAttempts)
	}
	if bundle.Timeouts.ModelTimeout != 30*time.Second {
		t.Fatalf("ModelTimeout = %s, want 30s", bundle.Timeouts.ModelTimeout)
	}
	// RetrievalTimeout wasn't mentioned: still the coded default.
	if bundle.Timeouts.RetrievalTimeout != 10*time.Second {
		t.Fatalf("RetrievalTimeout = %s, want 10s", bundle.Timeouts.RetrievalTimeout)
	}

	if got := quota.PlanByName("free"); got.RequestsPerDay != 10 || got.TokensPerDay != 1000 {
		t.Fatalf("PlanByName(free) = %+v, want overridden limits", got)
	}
}

func TestLoadCustomStageGraphAndAgents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deliberation.yaml")
	doc := `
stages:
  - stage: E1_STRATEGY
    agentId: A1_SPONSOR
    onApprove: APPROVED
agents:
  - id: A1_SPONSOR
    name: Sponsor
    systemPromptTmpl: "Review for %s"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	bundle, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := bundle.Graph.Next(domain.StageStrategy, domain.DecisionApprove); got != domain.StageApproved {
		t.Fatalf("Next(STRATEGY, approve) = %s, want APPROVED", got)
	}
	if _, ok := bundle.Registry.Get("A9_SINTESIS"); ok {
		t.Fatalf("custom agent set should not carry unrelated default descriptors")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deliberation.yaml")
	if err := os.WriteFile(path, []byte("stages: [this is not valid"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for malformed YAML")
	}
}

// Package config is the composition root's single YAML entry point: it
// loads the stage graph, agent descriptor set, plan table, and per-call
// timeouts from one file. Every section falls back to its package's coded
// default independently, so a deployment can override just the stages,
// just the plans, or nothing at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/revisoria/deliberation/internal/agentrunner"
	"github.com/revisoria/deliberation/internal/quota"
	"github.com/revisoria/deliberation/internal/stagegraph"
)

// Timeouts mirrors agentrunner.Config's tunables so they can be set from
// YAML instead of compiled in.
type Timeouts struct {
	MaxModelAttempts        int
	RetrievalK              int
	RetrievalTimeout        time.Duration
	ModelTimeout            time.Duration
	EstimatedTokensPerStage int64
}

// duration wraps time.Duration so YAML can carry "30s"-style values;
// yaml.v3 has no built-in Duration decoding.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = duration(parsed)
	return nil
}

// fileConfig is the root YAML document shape. Each section is optional and
// independently defaulted; a deployment typically only overrides the ones
// it cares about.
type fileConfig struct {
	Stages []struct {
		Stage         string `yaml:"stage"`
		AgentID       string `yaml:"agentId"`
		OnApprove     string `yaml:"onApprove"`
		OnReject      string `yaml:"onReject"`
		OnRequestInfo string `yaml:"onRequestInfo"`
	} `yaml:"stages"`
	Agents []struct {
		ID                string   `yaml:"id"`
		Name              string   `yaml:"name"`
		SystemPromptTmpl  string   `yaml:"systemPromptTmpl"`
		PermittedTools    []string `yaml:"permittedTools"`
		RetrievalHint     string   `yaml:"retrievalHint"`
		CompliancePillars []string `yaml:"compliancePillars"`
	} `yaml:"agents"`
	Plans map[string]struct {
		RequestsPerDay int64 `yaml:"requestsPerDay"`
		TokensPerDay   int64 `yaml:"tokensPerDay"`
	} `yaml:"plans"`
	Timeouts struct {
		MaxModelAttempts        int      `yaml:"maxModelAttempts"`
		RetrievalK              int      `yaml:"retrievalK"`
		RetrievalTimeout        duration `yaml:"retrievalTimeout"`
		ModelTimeout            duration `yaml:"modelTimeout"`
		EstimatedTokensPerStage int64    `yaml:"estimatedTokensPerStage"`
	} `yaml:"timeouts"`
}

// Bundle is everything a composition root needs to wire the orchestrator.
type Bundle struct {
	Graph    *stagegraph.Graph
	Registry *agentrunner.Registry
	Timeouts Timeouts
}

// defaultTimeouts mirrors agentrunner.New's own documented defaults, so a
// Bundle built from a missing file behaves identically to an
// agentrunner.Config left entirely zero-valued.
func defaultTimeouts() Timeouts {
	return Timeouts{
		MaxModelAttempts: 3,
		RetrievalK:       5,
		RetrievalTimeout: 10 * time.Second,
		ModelTimeout:     60 * time.Second,
	}
}

// Load reads path and builds a Bundle. A missing file is not an error:
// every section falls back to its package's coded default. Plan table
// overrides take effect immediately on quota's package-level registry,
// since plans are a read-only table populated once at startup,
// not a dict mutated per request.
func Load(path string) (Bundle, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		graph := stagegraph.Default()
		return Bundle{Graph: graph, Registry: agentrunner.DefaultRegistry(), Timeouts: defaultTimeouts()}, nil
	}
	if err != nil {
		return Bundle{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Bundle{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	graph, err := graphFromSections(cfg)
	if err != nil {
		return Bundle{}, err
	}

	registry, err := registryFromSections(cfg)
	if err != nil {
		return Bundle{}, err
	}

	if err := applyPlans(cfg); err != nil {
		return Bundle{}, err
	}

	timeouts := defaultTimeouts()
	applyTimeoutOverrides(&timeouts, cfg)

	return Bundle{Graph: graph, Registry: registry, Timeouts: timeouts}, nil
}

func graphFromSections(cfg fileConfig) (*stagegraph.Graph, error) {
	if len(cfg.Stages) == 0 {
		return stagegraph.Default(), nil
	}
	var sgCfg stagegraph.FileConfig
	for _, s := range cfg.Stages {
		sgCfg.Stages = append(sgCfg.Stages, struct {
			Stage         string `yaml:"stage"`
			AgentID       string `yaml:"agentId"`
			OnApprove     string `yaml:"onApprove"`
			OnReject      string `yaml:"onReject"`
			OnRequestInfo string `yaml:"onRequestInfo"`
		}{
			Stage:         s.Stage,
			AgentID:       s.AgentID,
			OnApprove:     s.OnApprove,
			OnReject:      s.OnReject,
			OnRequestInfo: s.OnRequestInfo,
		})
	}
	graph, err := stagegraph.FromConfig(sgCfg)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return graph, nil
}

func registryFromSections(cfg fileConfig) (*agentrunner.Registry, error) {
	if len(cfg.Agents) == 0 {
		return agentrunner.DefaultRegistry(), nil
	}
	var arCfg agentrunner.DescriptorsFileConfig
	for _, a := range cfg.Agents {
		arCfg.Agents = append(arCfg.Agents, struct {
			ID                string   `yaml:"id"`
			Name              string   `yaml:"name"`
			SystemPromptTmpl  string   `yaml:"systemPromptTmpl"`
			PermittedTools    []string `yaml:"permittedTools"`
			RetrievalHint     string   `yaml:"retrievalHint"`
			CompliancePillars []string `yaml:"compliancePillars"`
		}{
			ID:                a.ID,
			Name:              a.Name,
			SystemPromptTmpl:  a.SystemPromptTmpl,
			PermittedTools:    a.PermittedTools,
			RetrievalHint:     a.RetrievalHint,
			CompliancePillars: a.CompliancePillars,
		})
	}
	registry, err := agentrunner.FromConfig(arCfg)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return registry, nil
}

func applyPlans(cfg fileConfig) error {
	if len(cfg.Plans) == 0 {
		return nil
	}
	var plansCfg quota.PlansFileConfig
	plansCfg.Plans = cfg.Plans
	return quota.ApplyPlans(plansCfg)
}

func applyTimeoutOverrides(dst *Timeouts, cfg fileConfig) {
	override := cfg.Timeouts
	if override.MaxModelAttempts != 0 {
		dst.MaxModelAttempts = override.MaxModelAttempts
	}
	if override.RetrievalK != 0 {
		dst.RetrievalK = override.RetrievalK
	}
	if override.RetrievalTimeout != 0 {
		dst.RetrievalTimeout = time.Duration(override.RetrievalTimeout)
	}
	if override.ModelTimeout != 0 {
		dst.ModelTimeout = time.Duration(override.ModelTimeout)
	}
	if override.EstimatedTokensPerStage != 0 {
		dst.EstimatedTokensPerStage = override.EstimatedTokensPerStage
	}
}

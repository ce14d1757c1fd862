package stagegraph

import (
	"fmt"
	"os"

	"github.com/revisoria/deliberation/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape a deployment can use to override the
// default stage graph without recompiling.
type FileConfig struct {
	Stages []struct {
		Stage         string `yaml:"stage"`
		AgentID       string `yaml:"agentId"`
		OnApprove     string `yaml:"onApprove"`
		OnReject      string `yaml:"onReject"`
		OnRequestInfo string `yaml:"onRequestInfo"`
	} `yaml:"stages"`
}

// LoadFile reads a stage graph definition from a YAML file. A missing file
// is not an error: it falls back to Default().
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stage graph config %s: %w", path, err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse stage graph config %s: %w", path, err)
	}
	return FromConfig(cfg)
}

// FromConfig builds a Graph from a parsed FileConfig, requiring every entry
// to name its stage and agentId. An empty onReject defaults to REJECTED and
// an empty onRequestInfo to the stage itself; onApprove is taken as given.
func FromConfig(cfg FileConfig) (*Graph, error) {
	nodes := make([]Node, 0, len(cfg.Stages))
	for _, s := range cfg.Stages {
		if s.Stage == "" || s.AgentID == "" {
			return nil, fmt.Errorf("stage graph config: stage and agentId are required")
		}
		onRequestInfo := domain.Stage(s.OnRequestInfo)
		if onRequestInfo == "" {
			onRequestInfo = domain.Stage(s.Stage) // self-loop is the default
		}
		onReject := domain.Stage(s.OnReject)
		if onReject == "" {
			onReject = domain.StageRejected
		}
		nodes = append(nodes, Node{
			Stage:   domain.Stage(s.Stage),
			AgentID: s.AgentID,
			Transition: Transition{
				OnApprove:     domain.Stage(s.OnApprove),
				OnReject:      onReject,
				OnRequestInfo: onRequestInfo,
			},
		})
	}
	return New(nodes), nil
}

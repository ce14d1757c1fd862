package agentrunner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DescriptorsFileConfig is the YAML shape a deployment can use to replace
// the built-in ten-role agent descriptor set.
type DescriptorsFileConfig struct {
	Agents []struct {
		ID                string   `yaml:"id"`
		Name              string   `yaml:"name"`
		SystemPromptTmpl  string   `yaml:"systemPromptTmpl"`
		PermittedTools    []string `yaml:"permittedTools"`
		RetrievalHint     string   `yaml:"retrievalHint"`
		CompliancePillars []string `yaml:"compliancePillars"`
	} `yaml:"agents"`
}

// LoadRegistryFile reads an agent descriptor set from path. A missing file
// is not an error: it falls back to DefaultRegistry().
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read agent descriptor config %s: %w", path, err)
	}

	var cfg DescriptorsFileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse agent descriptor config %s: %w", path, err)
	}
	return FromConfig(cfg)
}

// FromConfig builds a Registry from a parsed DescriptorsFileConfig,
// validating that every descriptor carries an id and a prompt template.
func FromConfig(cfg DescriptorsFileConfig) (*Registry, error) {
	descriptors := make([]Descriptor, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		if a.ID == "" || a.SystemPromptTmpl == "" {
			return nil, fmt.Errorf("agent descriptor config: id and systemPromptTmpl are required")
		}
		descriptors = append(descriptors, Descriptor{
			ID:                a.ID,
			Name:              a.Name,
			SystemPromptTmpl:  a.SystemPromptTmpl,
			PermittedTools:    a.PermittedTools,
			RetrievalHint:     a.RetrievalHint,
			CompliancePillars: a.CompliancePillars,
		})
	}
	return NewRegistry(descriptors), nil
}

package quota

import (
	"fmt"
	"os"

	"github.com/revisoria/deliberation/internal/domain"
	"gopkg.in/yaml.v3"
)

// PlansFileConfig is the YAML shape a deployment can use to override or add
// to the built-in plan table. Each entry overwrites the plan of the same
// name; unmentioned plans keep their coded
// defaults.
type PlansFileConfig struct {
	Plans map[string]struct {
		RequestsPerDay int64 `yaml:"requestsPerDay"`
		TokensPerDay   int64 `yaml:"tokensPerDay"`
	} `yaml:"plans"`
}

// LoadPlansFile reads a plan-table override from path and merges it into
// the package's plan registry. A missing file is not an error: the coded
// defaults in plans.go stand unchanged.
func LoadPlansFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read plan table config %s: %w", path, err)
	}

	var cfg PlansFileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse plan table config %s: %w", path, err)
	}
	return ApplyPlans(cfg)
}

// ApplyPlans merges an already-parsed PlansFileConfig into the package's
// plan registry. Exported so a composition-root config loader that parses a
// single combined YAML document can apply just the plans section without
// re-reading a separate file.
func ApplyPlans(cfg PlansFileConfig) error {
	for name, limits := range cfg.Plans {
		plans[name] = domain.Plan{
			Name:           name,
			RequestsPerDay: limits.RequestsPerDay,
			TokensPerDay:   limits.TokensPerDay,
		}
	}
	return nil
}

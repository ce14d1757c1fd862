package quota

import "github.com/revisoria/deliberation/internal/domain"

// plans is the plan registry: a package-level table mutated only by
// ApplyPlans during composition-root startup, read-only afterwards.
var plans = map[string]domain.Plan{
	"free":       {Name: "free", RequestsPerDay: 50, TokensPerDay: 100_000},
	"starter":    {Name: "starter", RequestsPerDay: 500, TokensPerDay: 1_000_000},
	"pro":        {Name: "pro", RequestsPerDay: 5_000, TokensPerDay: 10_000_000},
	"enterprise": {Name: "enterprise", RequestsPerDay: 50_000, TokensPerDay: 100_000_000},
	"demo":       {Name: "demo", RequestsPerDay: 100, TokensPerDay: 200_000},
}

// DefaultPlan is used when a company has no plan assignment on record.
const DefaultPlan = "starter"

// PlanByName looks up a plan, falling back to DefaultPlan for an unknown
// or empty name rather than failing closed or open.
func PlanByName(name string) domain.Plan {
	if p, ok := plans[name]; ok {
		return p
	}
	return plans[DefaultPlan]
}

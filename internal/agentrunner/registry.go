// Package agentrunner executes a single named agent for one stage of a
// deliberation: it composes a system prompt, retrieves grounding context,
// invokes the model (with at most one tool-use round trip), parses the
// result into a structured decision, and appends it to the DefenseFile.
package agentrunner

// Descriptor is an agent's static configuration: id, display name, system
// prompt template, permitted tool names, and an optional retrieval hint.
// Descriptors are read-only values populated once at startup.
type Descriptor struct {
	ID                string
	Name              string
	SystemPromptTmpl  string
	PermittedTools    []string
	RetrievalHint     string // empty means "use the project description"
	CompliancePillars []string
}

// Registry is a read-only map of agent id to Descriptor, populated at
// startup.
type Registry struct {
	byID map[string]Descriptor
}

// NewRegistry builds a Registry from a list of descriptors.
func NewRegistry(descriptors []Descriptor) *Registry {
	r := &Registry{byID: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		r.byID[d.ID] = d
	}
	return r
}

// Get looks up a descriptor by agent id.
func (r *Registry) Get(agentID string) (Descriptor, bool) {
	d, ok := r.byID[agentID]
	return d, ok
}

// DefaultRegistry carries the full ten-role reviewer set. The default
// StageGraph only binds five of these (A1_SPONSOR, A2_FISCAL, A6_FINANCIERO,
// A7_LEGAL, A8_REDTEAM); the remainder are registered but unbound, ready
// for a caller-supplied StageGraph config to exercise them without forcing
// every deliberation through all ten.
func DefaultRegistry() *Registry {
	return NewRegistry([]Descriptor{
		{
			ID:   "A1_SPONSOR",
			Name: "Strategic Sponsor Reviewer",
			SystemPromptTmpl: "You are the strategic sponsor reviewer for company %s. Weigh whether this " +
				"engagement has a clear, documented business rationale (razón de negocios) before any " +
				"fiscal or legal review begins. Decide approve, reject, or request_info and explain why.",
			PermittedTools:    []string{"lookup_sponsor_history"},
			CompliancePillars: []string{"razon_de_negocios"},
		},
		{
			ID:   "A2_FISCAL",
			Name: "Fiscal Reviewer",
			SystemPromptTmpl: "You are the fiscal reviewer for company %s. Assess the expected economic " +
				"benefit (beneficio económico) of this engagement and flag any fiscal risk. Decide approve, " +
				"reject, or request_info.",
			PermittedTools:    []string{"lookup_fiscal_precedent"},
			CompliancePillars: []string{"beneficio_economico"},
		},
		{
			ID:   "A3_RECEPCION",
			Name: "Intake Triage Reviewer",
			SystemPromptTmpl: "You are the intake triage reviewer for company %s. Confirm the submission " +
				"is complete and routable before deeper review. Decide approve, reject, or request_info.",
		},
		{
			ID:   "A4_CONTABLE",
			Name: "Accounting Reviewer",
			SystemPromptTmpl: "You are the accounting reviewer for company %s. Confirm the amount and " +
				"service type reconcile against standard chart-of-accounts treatment.",
		},
		{
			ID:   "A5_CUMPLIMIENTO",
			Name: "Compliance Pre-Screen Reviewer",
			SystemPromptTmpl: "You are the compliance pre-screen reviewer for company %s. Screen for " +
				"materialidad red flags before the engagement proceeds.",
			CompliancePillars: []string{"materialidad"},
		},
		{
			ID:   "A6_FINANCIERO",
			Name: "Financial Reviewer",
			SystemPromptTmpl: "You are the financial reviewer for company %s. Evaluate the amount against " +
				"budget and cash-flow constraints. Decide approve, reject, or request_info.",
			PermittedTools: []string{"lookup_budget_remaining"},
		},
		{
			ID:   "A7_LEGAL",
			Name: "Legal Reviewer",
			SystemPromptTmpl: "You are the legal reviewer for company %s. Confirm materialidad: evidence " +
				"that services were actually rendered, and that the contract terms are enforceable. Decide " +
				"approve, reject, or request_info.",
			PermittedTools:    []string{"lookup_contract_template"},
			CompliancePillars: []string{"materialidad"},
		},
		{
			ID:   "A8_REDTEAM",
			Name: "Adversarial Auditor",
			SystemPromptTmpl: "You are the adversarial auditor for company %s. Re-examine the accumulated " +
				"record for anything the prior reviewers may have missed. Decide approve, reject, or " +
				"request_info as a final check before approval.",
			CompliancePillars: []string{"razon_de_negocios", "beneficio_economico", "materialidad", "trazabilidad"},
		},
		{
			ID:   "A9_SINTESIS",
			Name: "Synthesis Reviewer",
			SystemPromptTmpl: "You are the synthesis reviewer for company %s. Summarize the deliberation " +
				"record accumulated so far into a single coherent rationale.",
		},
		{
			ID:   "A10_ARCHIVO",
			Name: "Archive Reviewer",
			SystemPromptTmpl: "You are the archive reviewer for company %s. Confirm the defense file is " +
				"complete and ready to be filed.",
			CompliancePillars: []string{"trazabilidad"},
		},
	})
}

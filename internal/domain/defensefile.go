package domain

import "time"

// DefenseFile is the append-only per-project audit record.
// Decisions, retrievals, notifications, artifacts, and versionEntries are
// append-only; companyId never changes; finalDecision is set at most once.
type DefenseFile struct {
	ProjectID      string               `json:"projectId"`
	CompanyID      string               `json:"companyId"`
	CreatedAt      time.Time            `json:"createdAt"`
	Project        Project              `json:"project"`
	Decisions      []AgentDecision      `json:"decisions"`
	Retrievals     []RetrievalEntry     `json:"retrievals"`
	Notifications  []NotificationRecord `json:"notifications"`
	ArtifactRefs   []ArtifactPointer    `json:"artifactRefs"`
	VersionEntries []VersionEntry       `json:"versionEntries"`
	AgentOpinions  []AgentOpinion       `json:"agentOpinions,omitempty"`
	FinalDecision  *Decision            `json:"finalDecision,omitempty"`
	FinalRationale string               `json:"finalRationale,omitempty"`
}

// DeriveComplianceChecklist recomputes the four-bit checklist from the
// accumulated decisions and notifications. It is a pure
// function of df's contents: calling it twice on an unchanged DefenseFile
// yields identical results.
func (df *DefenseFile) DeriveComplianceChecklist() ComplianceChecklist {
	var c ComplianceChecklist
	for _, d := range df.Decisions {
		text := normalizeForMatch(d.Reasoning)
		if containsAny(text, "razón de negocios", "razon de negocios") {
			c.RazonDeNegocios = true
		}
		if containsAny(text, "beneficio económico", "beneficio economico") {
			c.BeneficioEconomico = true
		}
		if containsAny(text, "materialidad") {
			c.Materialidad = true
		}
	}
	if len(df.Notifications) > 0 {
		c.Materialidad = true
	}
	if len(df.Decisions) >= 2 {
		c.Trazabilidad = true
	}
	return c
}

// AppendDecision appends a decision in strict call order. Version is
// assigned as len(matching decisions)+1 for that stage, giving a monotonic
// per-(project, stage) counter.
func (df *DefenseFile) AppendDecision(d AgentDecision) {
	version := 1
	for _, existing := range df.Decisions {
		if existing.Stage == d.Stage {
			version++
		}
	}
	d.Version = version
	df.Decisions = append(df.Decisions, d)
}

// AppendRetrieval records one retrieval call.
func (df *DefenseFile) AppendRetrieval(agentID, query string, results []RetrievalResult) {
	df.Retrievals = append(df.Retrievals, RetrievalEntry{
		AgentID:    agentID,
		Query:      query,
		Results:    results,
		RecordedAt: nowUTC(),
	})
}

// AppendNotification records an outbound notification; this also forces
// materialidad true on the next checklist derivation, which
// DeriveComplianceChecklist already handles by checking len(Notifications).
func (df *DefenseFile) AppendNotification(n NotificationRecord) {
	n.RecordedAt = nowUTC()
	df.Notifications = append(df.Notifications, n)
}

// AddArtifact records an artifact pointer.
func (df *DefenseFile) AddArtifact(a ArtifactPointer) {
	a.CreatedAt = nowUTC()
	df.ArtifactRefs = append(df.ArtifactRefs, a)
}

// AddVersionEntry records an out-of-band mutation for audit purposes.
func (df *DefenseFile) AddVersionEntry(v VersionEntry) {
	v.RecordedAt = nowUTC()
	df.VersionEntries = append(df.VersionEntries, v)
}

// AddAgentOpinion records a supplemental, non-stage-advancing annotation.
func (df *DefenseFile) AddAgentOpinion(o AgentOpinion) {
	o.RecordedAt = nowUTC()
	df.AgentOpinions = append(df.AgentOpinions, o)
}

// SetFinal sets the terminal decision exactly once.
// Calling it a second time is a programming error in the orchestrator and
// returns false rather than silently overwriting the first decision.
func (df *DefenseFile) SetFinal(decision Decision, rationale string) bool {
	if df.FinalDecision != nil {
		return false
	}
	d := decision
	df.FinalDecision = &d
	df.FinalRationale = rationale
	return true
}

var nowUTC = func() time.Time { return time.Now().UTC() }

package domain

import "time"

// RetrievalResult is one scored evidence snippet returned by RetrievalPort.
type RetrievalResult struct {
	Text   string    `json:"text"`
	Title  string    `json:"title"`
	Date   time.Time `json:"date,omitempty"`
	Source string    `json:"source"`
	Score  float64   `json:"score"`
}

// RetrievalRef is a decision's pointer back into a retrieval result: the
// evidence chunk plus the score and source it carried when the decision
// was made, so the DefenseFile remains self-contained even if the
// underlying retrieval index later changes.
type RetrievalRef struct {
	ChunkID string  `json:"chunkId"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
}

// AgentDecision is one stage execution's recorded outcome.
type AgentDecision struct {
	Stage            Stage          `json:"stage"`
	AgentID          string         `json:"agentId"`
	AgentName        string         `json:"agentName"`
	Decision         Decision       `json:"decision"`
	Reasoning        string         `json:"reasoning"`
	Confidence       *float64       `json:"confidence,omitempty"`
	RetrievalRefs    []RetrievalRef `json:"retrievalRefs"`
	PromptTokens     int            `json:"promptTokens"`
	CompletionTokens int            `json:"completionTokens"`
	ElapsedMs        int64          `json:"elapsedMs"`
	RecordedAt       time.Time      `json:"recordedAt"`
	Version          int            `json:"version"`
}

// RetrievalEntry is one retrieval call recorded against a project,
// independent of which decision consumed it.
type RetrievalEntry struct {
	AgentID    string            `json:"agentId"`
	Query      string            `json:"query"`
	Results    []RetrievalResult `json:"results"`
	RecordedAt time.Time         `json:"recordedAt"`
}

// NotificationRecord is an outbound notification captured for the audit
// trail.
type NotificationRecord struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // "email" | "provider_communication"
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sentAt"`
	RecordedAt time.Time `json:"recordedAt"`
}

// ArtifactPointer is an opaque reference to an uploaded blob.
type ArtifactPointer struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	AgentID      string    `json:"agentId"`
	Stage        Stage     `json:"stage"`
	Path         string    `json:"path"`
	ExternalLink string    `json:"externalLink,omitempty"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
}

// VersionEntry audits one mutation applied to a DefenseFile outside the
// normal append operations.
type VersionEntry struct {
	VersionNumber  int       `json:"versionNumber"`
	ChangeType     string    `json:"changeType"`
	Description    string    `json:"description"`
	ChangedBy      string    `json:"changedBy"`
	AffectedFields []string  `json:"affectedFields,omitempty"`
	RecordedAt     time.Time `json:"recordedAt"`
}

// AgentOpinion is a lighter-weight annotation a tool-resolved sub-agent can
// leave without advancing a stage.
type AgentOpinion struct {
	AgentID     string            `json:"agentId"`
	AgentName   string            `json:"agentName"`
	OpinionType string            `json:"opinionType"`
	Content     string            `json:"content"`
	Decision    string            `json:"decision"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	RecordedAt  time.Time         `json:"recordedAt"`
}

// ComplianceChecklist is the four-bit derived view over a DefenseFile's
// accumulated evidence. It is never stored directly; it is
// re-derived by DeriveComplianceChecklist on every read.
type ComplianceChecklist struct {
	RazonDeNegocios    bool `json:"razon_de_negocios"`
	BeneficioEconomico bool `json:"beneficio_economico"`
	Materialidad       bool `json:"materialidad"`
	Trazabilidad       bool `json:"trazabilidad"`
}

// AuditReady reports whether all four checklist bits are set.
func (c ComplianceChecklist) AuditReady() bool {
	return c.RazonDeNegocios && c.BeneficioEconomico && c.Materialidad && c.Trazabilidad
}

// Score is the mean of the four booleans expressed as a 0-100 percentage.
func (c ComplianceChecklist) Score() float64 {
	total := 0
	for _, b := range []bool{c.RazonDeNegocios, c.BeneficioEconomico, c.Materialidad, c.Trazabilidad} {
		if b {
			total++
		}
	}
	return float64(total) / 4 * 100
}

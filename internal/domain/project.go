// Package domain holds the persisted/exchanged value types shared by every
// deliberation component: Project, Stage, AgentDecision, DefenseFile,
// DeliberationState, UsageCounter, Plan, and RetrievalResult. Persisted
// entities are tagged structs with closed enums; the stringly-typed JSON
// layer lives at the persistence boundary, not here.
package domain

import (
	"time"

	"github.com/revisoria/deliberation/internal/orcherrors"
)

// Project is the input to the core. Once submitted it is treated as an
// immutable value; the orchestrator copies it into the DefenseFile at
// intake and never mutates the caller's copy.
type Project struct {
	ID           string            `json:"id"`
	CompanyID    string            `json:"companyId"`
	CreatedBy    string            `json:"createdBy"`
	Name         string            `json:"name"`
	ClientName   string            `json:"clientName"`
	Description  string            `json:"description"`
	Amount       float64           `json:"amount"`
	ServiceType  string            `json:"serviceType"`
	SponsorName  string            `json:"sponsorName"`
	SponsorEmail string            `json:"sponsorEmail"`
	SubmittedAt  time.Time         `json:"submittedAt"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Validate applies intake validation. It does not assign an id;
// "id assigned if absent" stays the orchestrator's job.
func (p Project) Validate() error {
	switch {
	case p.CompanyID == "":
		return orcherrors.InputInvalid("companyId is required")
	case p.Name == "":
		return orcherrors.InputInvalid("name is required")
	case p.Amount < 0:
		return orcherrors.InputInvalid("amount must be non-negative")
	}
	return nil
}

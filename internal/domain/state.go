package domain

import "time"

// StageResultSummary is the persisted summary of the last decision at a
// stage (DeliberationState.stageResults).
type StageResultSummary struct {
	Decision   Decision  `json:"decision"`
	Reasoning  string    `json:"reasoning"`
	RecordedAt time.Time `json:"recordedAt"`
}

// DeliberationState is the resumable, persisted progress record for one
// project. Exactly one row exists per projectId; saves are
// upserts.
type DeliberationState struct {
	ProjectID       string                       `json:"projectId"`
	CompanyID       string                       `json:"companyId"`
	CurrentStage    Stage                        `json:"currentStage"`
	StageResults    map[Stage]StageResultSummary `json:"stageResults"`
	Status          DeliberationStatus           `json:"status"`
	ProjectSnapshot Project                      `json:"projectSnapshot"`
	CreatedAt       time.Time                    `json:"createdAt"`
	UpdatedAt       time.Time                    `json:"updatedAt"`
	FailedStage     Stage                        `json:"failedStage,omitempty"`
	LastError       string                       `json:"lastError,omitempty"`
}

// Plan is a named tier with daily request/token limits.
type Plan struct {
	Name           string
	RequestsPerDay int64
	TokensPerDay   int64
}

// UsageCounter is the per-(companyId, dateUTC) admission counter.
type UsageCounter struct {
	CompanyID     string
	DateUTC       string // YYYY-MM-DD
	RequestsToday int64
	TokensToday   int64
	UpdatedAt     time.Time
}

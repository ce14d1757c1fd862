package domain

// Stage is a closed enum identifying a node in the StageGraph.
type Stage string

const (
	StageStrategy Stage = "E1_STRATEGY"
	StageFiscal   Stage = "E2_FISCAL"
	StageFinance  Stage = "E3_FINANCE"
	StageLegal    Stage = "E4_LEGAL"
	StageAuditor  Stage = "E5_AUDITOR" // optional adversarial stage

	// Terminal sinks. Not bound to an agent.
	StageApproved Stage = "APPROVED"
	StageRejected Stage = "REJECTED"
)

// IsTerminal reports whether a stage is a sink the orchestrator never
// executes an agent for.
func (s Stage) IsTerminal() bool {
	return s == StageApproved || s == StageRejected
}

// Decision is the closed enum an AgentRunner parses out of a model
// response.
type Decision string

const (
	DecisionApprove     Decision = "approve"
	DecisionReject      Decision = "reject"
	DecisionRequestInfo Decision = "request_info"
)

// DeliberationStatus is the closed enum for DeliberationState.status.
type DeliberationStatus string

const (
	StatusInProgress DeliberationStatus = "in_progress"
	StatusCompleted  DeliberationStatus = "completed"
	StatusPaused     DeliberationStatus = "paused"
	StatusFailed     DeliberationStatus = "failed"
)

// IsTerminal reports whether a deliberation in this status will never
// resume on its own: a poller can stop watching once this is true.
func (s DeliberationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

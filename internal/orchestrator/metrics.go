package orchestrator

import "time"

// Metrics is the optional observability hook the Orchestrator calls on
// every stage completion.
// A nil Metrics is a valid Config value; NoopMetrics is supplied as the
// default so callers that don't care about Prometheus never need a guard.
type Metrics interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncQuotaRejection(companyID, kind string)
	IncRetrievalDegraded(agentID string)
	IncStageFailure(stage string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveStageDuration(string, time.Duration) {}
func (noopMetrics) IncQuotaRejection(string, string)           {}
func (noopMetrics) IncRetrievalDegraded(string)                {}
func (noopMetrics) IncStageFailure(string)                     {}

// NoopMetrics is the zero-cost default Metrics implementation.
var NoopMetrics Metrics = noopMetrics{}

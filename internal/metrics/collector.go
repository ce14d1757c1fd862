// Package metrics is the Prometheus-backed implementation of
// orchestrator.Metrics: one collector struct wired into call sites that
// already exist for another reason, storing a handful of prometheus
// vectors tracking stage durations, quota rejections, degraded
// retrievals, and stage failures.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements orchestrator.Metrics (and agentrunner's narrower
// Metrics hook) over a fixed set of prometheus vectors. It does not import
// the orchestrator package itself (that would create a cycle), so it
// satisfies the interface structurally.
type Collector struct {
	stageDuration     *prometheus.HistogramVec
	quotaRejections   *prometheus.CounterVec
	retrievalDegraded *prometheus.CounterVec
	stageFailures     *prometheus.CounterVec
}

// NewCollector builds a Collector and registers its vectors on reg. Passing
// prometheus.NewRegistry() keeps tests isolated from the global default
// registry; passing nil registers nothing (useful for a Collector that is
// only ever used as orchestrator.Metrics in unit tests that don't scrape).
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deliberation",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of one AgentRunner.Run call, by stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		quotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deliberation",
			Name:      "quota_rejections_total",
			Help:      "QuotaGate admission rejections, by company and rejection point.",
		}, []string{"company_id", "kind"}),
		retrievalDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deliberation",
			Name:      "retrieval_degraded_total",
			Help:      "RetrievalPort calls that failed and degraded to an empty result set, by agent.",
		}, []string{"agent_id"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deliberation",
			Name:      "stage_failures_total",
			Help:      "Stages that failed after model retry exhaustion, by stage.",
		}, []string{"stage"}),
	}

	if reg != nil {
		reg.MustRegister(c.stageDuration, c.quotaRejections, c.retrievalDegraded, c.stageFailures)
	}
	return c
}

// ObserveStageDuration records one stage's wall-clock execution time.
func (c *Collector) ObserveStageDuration(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncQuotaRejection records one QuotaGate.Admit rejection.
func (c *Collector) IncQuotaRejection(companyID, kind string) {
	c.quotaRejections.WithLabelValues(companyID, kind).Inc()
}

// IncRetrievalDegraded records one RetrievalPort failure that degraded
// silently instead of failing its stage.
func (c *Collector) IncRetrievalDegraded(agentID string) {
	c.retrievalDegraded.WithLabelValues(agentID).Inc()
}

// IncStageFailure records one stage that failed after model retries were
// exhausted.
func (c *Collector) IncStageFailure(stage string) {
	c.stageFailures.WithLabelValues(stage).Inc()
}

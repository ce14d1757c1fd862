package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	if err := (<-ch).Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveStageDurationRecordsIntoHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveStageDuration("E1_STRATEGY", 250*time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, mf := range metrics {
		if mf.GetName() == "deliberation_stage_duration_seconds" {
			found = true
			if mf.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
				t.Fatalf("expected 1 sample, got %d", mf.GetMetric()[0].GetHistogram().GetSampleCount())
			}
		}
	}
	if !found {
		t.Fatalf("stage_duration_seconds histogram not registered")
	}
}

func TestIncCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.IncQuotaRejection("acme", "stage")
	c.IncQuotaRejection("acme", "stage")
	c.IncRetrievalDegraded("A1_SPONSOR")
	c.IncStageFailure("E2_FISCAL")

	if got := counterValue(t, c.quotaRejections.WithLabelValues("acme", "stage")); got != 2 {
		t.Fatalf("expected quota rejection count 2, got %v", got)
	}
	if got := counterValue(t, c.retrievalDegraded.WithLabelValues("A1_SPONSOR")); got != 1 {
		t.Fatalf("expected retrieval degraded count 1, got %v", got)
	}
	if got := counterValue(t, c.stageFailures.WithLabelValues("E2_FISCAL")); got != 1 {
		t.Fatalf("expected stage failure count 1, got %v", got)
	}
}

func TestNewCollectorWithNilRegistererDoesNotPanic(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveStageDuration("E1_STRATEGY", time.Millisecond)
	c.IncQuotaRejection("acme", "start")
}

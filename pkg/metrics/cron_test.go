package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "test-job"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	success := cronMetric(t, mfs, "cron_job_success_total", job)
	if got := success.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	failure := cronMetric(t, mfs, "cron_job_failure_total", job)
	if got := failure.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}
	duration := cronMetric(t, mfs, "cron_job_duration_seconds", job)
	if got := duration.GetHistogram().GetSampleSum(); got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestCronJobMetricsZeroValueIsNoOp(t *testing.T) {
	var metrics *CronJobMetrics
	metrics.ObserveDuration("anything", time.Second)
	metrics.IncSuccess("anything")
	metrics.IncFailure("anything")

	empty := NewCronJobMetrics(nil)
	empty.ObserveDuration("anything", time.Second)
	empty.IncSuccess("anything")
	empty.IncFailure("anything")
}

// cronMetric finds the sample for the given metric family carrying
// job=<job>, failing the test when absent.
func cronMetric(t *testing.T, mfs []*dto.MetricFamily, name, job string) *dto.Metric {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return metric
				}
			}
		}
	}
	t.Fatalf("metric %q with job=%s not found", name, job)
	return nil
}

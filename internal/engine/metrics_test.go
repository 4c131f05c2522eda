package engine

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %q not found among %d gathered families", name, len(families))
	return nil
}

func counterValue(f *dto.MetricFamily, operation, outcome string) float64 {
	for _, m := range f.GetMetric() {
		var op, out string
		for _, lp := range m.GetLabel() {
			switch lp.GetName() {
			case "operation":
				op = lp.GetValue()
			case "outcome":
				out = lp.GetValue()
			}
		}
		if op == operation && out == outcome {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestPrometheusMetricsRecorderObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg, "fusioncore")
	if err != nil {
		t.Fatalf("NewPrometheusMetricsRecorder: %v", err)
	}

	ctx := context.Background()
	rec.Observe(ctx, "submit", true, 5*time.Millisecond)
	rec.Observe(ctx, "submit", true, 7*time.Millisecond)
	rec.Observe(ctx, "submit", false, 1*time.Millisecond)

	totals := gatherFamily(t, reg, "fusioncore_coordinator_operations_total")
	if got := counterValue(totals, "submit", "success"); got != 2 {
		t.Fatalf("success count = %v, want 2", got)
	}
	if got := counterValue(totals, "submit", "failure"); got != 1 {
		t.Fatalf("failure count = %v, want 1", got)
	}

	durations := gatherFamily(t, reg, "fusioncore_coordinator_operation_duration_seconds")
	found := false
	for _, m := range durations.GetMetric() {
		if m.GetHistogram().GetSampleCount() > 0 {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("operation_duration_seconds histogram recorded no samples")
	}
}

func TestPrometheusMetricsRecorderDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg, "fusioncore"); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg, "fusioncore"); err == nil {
		t.Fatal("expected second registration against the same registry and namespace to fail")
	}
}

package monitoring

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRecordPrediction(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordPrediction(2*time.Millisecond, true, nil)
	mc.RecordPrediction(4*time.Millisecond, false, nil)
	mc.RecordPrediction(time.Millisecond, false, errors.New("schema mismatch"))

	if got := mc.Counter(MetricPredictionsTotal); got != 3 {
		t.Fatalf("expected 3 predictions, got %v", got)
	}
	if got := mc.Counter(MetricPredictionFailures); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if got := mc.Counter(MetricHighRiskTotal); got != 1 {
		t.Fatalf("expected 1 high risk, got %v", got)
	}

	summary, err := mc.GetMetricSummary(MetricPredictionLatency)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary["count"].(int) != 2 || summary["average"].(float64) != 3 {
		t.Fatalf("unexpected latency summary: %v", summary)
	}
}

func TestExportPrometheus(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordPrediction(time.Millisecond, true, nil)

	out := mc.ExportPrometheus()
	for _, want := range []string{"predictions_total 1", "high_risk_total 1", "prediction_latency_ms_count 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestGetMetricSummaryUnknown(t *testing.T) {
	if _, err := NewMetricsCollector().GetMetricSummary("nope"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestExportPrometheusCountsBeyondWindow(t *testing.T) {
	mc := NewMetricsCollector()
	total := maxSamples + 5
	for i := 0; i < total; i++ {
		mc.RecordPrediction(2*time.Millisecond, false, nil)
	}

	out := mc.ExportPrometheus()
	for _, want := range []string{"prediction_latency_ms_count 1005", "prediction_latency_ms_sum 2010"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	summary, err := mc.GetMetricSummary(MetricPredictionLatency)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary["count"].(int) != maxSamples {
		t.Fatalf("summary should cover the last %d samples, got %v", maxSamples, summary["count"])
	}
}

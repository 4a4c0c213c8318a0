package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTruePositiveIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	r.RecordTruePositive("n1")
	r.RecordTruePositive("n1")
	r.RecordFalsePositive("n1")

	if got := testutil.ToFloat64(r.TruePositives.WithLabelValues("n1")); got != 2 {
		t.Fatalf("expected 2 true positives, got %v", got)
	}
	if got := testutil.ToFloat64(r.FalsePositives.WithLabelValues("n1")); got != 1 {
		t.Fatalf("expected 1 false positive, got %v", got)
	}
}

func TestRecordPublishLabelsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)

	r.RecordPublish("n1", true)
	r.RecordPublish("n1", false)

	if got := testutil.ToFloat64(r.PublishTotal.WithLabelValues("n1", "forwarded")); got != 1 {
		t.Fatalf("expected 1 forwarded publish, got %v", got)
	}
	if got := testutil.ToFloat64(r.PublishTotal.WithLabelValues("n1", "no_candidates")); got != 1 {
		t.Fatalf("expected 1 no-candidate publish, got %v", got)
	}
}

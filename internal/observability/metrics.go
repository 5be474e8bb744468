package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal       = "pkggate.runs.total"
	metricRunDuration     = "pkggate.run.duration.seconds"
	metricRejectionsTotal = "pkggate.rejections.total"
	metricInflightRuns    = "pkggate.inflight.runs"

	attrOp     = "op"
	attrStatus = "status"
	attrKind   = "kind"
)

// Run outcome statuses recorded on the runs counter.
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// durationBucketBoundaries covers 10ms to 120s: small packages finish in
// well under a second while large graphs with full doc extraction can take
// minutes.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// RunMetrics holds the OTel instruments for analysis run outcomes.
type RunMetrics struct {
	runsTotal       metric.Int64Counter
	runDuration     metric.Float64Histogram
	rejectionsTotal metric.Int64Counter
	inflightRuns    metric.Int64UpDownCounter
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		runsTotal:       b.counter(metricRunsTotal, "Total number of analysis runs", "{run}"),
		runDuration:     b.histogram(metricRunDuration, "Analysis run duration in seconds", "s", durationBucketBoundaries...),
		rejectionsTotal: b.counter(metricRejectionsTotal, "Total number of rejected package versions", "{rejection}"),
		inflightRuns:    b.upDownCounter(metricInflightRuns, "Number of in-flight analysis runs", "{run}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordRun records a completed run with its operation, status, and duration.
func (rm *RunMetrics) RecordRun(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.runsTotal.Add(ctx, 1, attrs)
	rm.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRejection records a rejected package version with the diagnostic
// kind that caused it.
func (rm *RunMetrics) RecordRejection(ctx context.Context, op, kind string) {
	rm.rejectionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrKind, kind),
	))
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (rm *RunMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRuns.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRuns.Add(ctx, -1, attrs)
	}
}

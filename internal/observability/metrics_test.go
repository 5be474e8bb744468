package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/pkggate/pkggate/internal/observability"
)

func setupTestMeter(t *testing.T) (*observability.RunMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter("test")

	rm, err := observability.NewRunMetrics(meter)
	require.NoError(t, err)

	return rm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func TestRunMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	metrics, reader := setupTestMeter(t)
	ctx := context.Background()

	metrics.RecordRun(ctx, "analyze", observability.StatusOK, time.Millisecond*100)

	rm := collectMetrics(t, reader)

	runsTotal := findMetric(rm, "pkggate.runs.total")
	require.NotNil(t, runsTotal, "pkggate.runs.total metric not found")

	runDuration := findMetric(rm, "pkggate.run.duration.seconds")
	require.NotNil(t, runDuration, "pkggate.run.duration.seconds metric not found")
}

func TestRunMetrics_RecordRejection(t *testing.T) {
	t.Parallel()

	metrics, reader := setupTestMeter(t)
	ctx := context.Background()

	metrics.RecordRejection(ctx, "analyze", "graphError")

	rm := collectMetrics(t, reader)

	rejections := findMetric(rm, "pkggate.rejections.total")
	require.NotNil(t, rejections, "pkggate.rejections.total metric not found")

	sum, ok := rejections.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum data type")
	require.NotEmpty(t, sum.DataPoints)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestRunMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	metrics, reader := setupTestMeter(t)
	ctx := context.Background()

	done := metrics.TrackInflight(ctx, "rebuild")

	rm := collectMetrics(t, reader)

	inflight := findMetric(rm, "pkggate.inflight.runs")
	require.NotNil(t, inflight, "pkggate.inflight.runs metric not found")

	done()

	rm = collectMetrics(t, reader)
	inflight = findMetric(rm, "pkggate.inflight.runs")
	require.NotNil(t, inflight)

	sum, ok := inflight.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum data type")
	require.NotEmpty(t, sum.DataPoints)
	assert.Equal(t, int64(0), sum.DataPoints[0].Value)
}

func TestRunMetrics_HistogramBuckets(t *testing.T) {
	t.Parallel()

	metrics, reader := setupTestMeter(t)
	ctx := context.Background()

	metrics.RecordRun(ctx, "analyze", observability.StatusOK, time.Second)

	rm := collectMetrics(t, reader)

	runDuration := findMetric(rm, "pkggate.run.duration.seconds")
	require.NotNil(t, runDuration)

	hist, ok := runDuration.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram data type")
	require.NotEmpty(t, hist.DataPoints)

	bounds := hist.DataPoints[0].Bounds

	expectedBounds := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}
	assert.Equal(t, expectedBounds, bounds, "histogram should use custom bucket boundaries")
}

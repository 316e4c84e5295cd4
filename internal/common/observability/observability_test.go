package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"afh-workers/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestObservability(t *testing.T) (*Observability, *metric.ManualReader, *tracetest.SpanRecorder) {
	t.Helper()
	reader := metric.NewManualReader()
	o, err := newWithMeter("afh-test", metric.NewMeterProvider(metric.WithReader(reader)))
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	o.useTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })
	return o, reader, recorder
}

func TestStartSpan_RecordsAttributesAndErrors(t *testing.T) {
	o, _, recorder := newTestObservability(t)

	_, span := o.StartSpan(context.Background(), "job rank-facilities", attribute.Int64("jobKey", 42))
	EndSpan(span, errors.New("boom"))

	_, ok := o.StartSpan(context.Background(), "job present-results")
	EndSpan(ok, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "job rank-facilities", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int64("jobKey", 42))
	assert.Len(t, spans[0].Events(), 1)
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}

func TestStartSpan_NilReceiver(t *testing.T) {
	var o *Observability
	ctx, span := o.StartSpan(context.Background(), "noop")
	assert.NotNil(t, ctx)
	EndSpan(span, nil)
	assert.NoError(t, o.Shutdown(context.Background()))
}

func TestRecordJobMetrics(t *testing.T) {
	o, reader, _ := newTestObservability(t)
	ctx := context.Background()

	o.RecordJobProcessed(ctx, "rank-facilities", "completed")
	o.RecordJobProcessed(ctx, "rank-facilities", "completed")
	o.RecordJobDuration(ctx, "rank-facilities", 120*time.Millisecond, "completed")
	o.RecordFormPages(ctx, "ncp", 20)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]bool{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
		if m.Name == "jobs.processed" {
			sum := m.Data.(metricdata.Sum[int64])
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(2), sum.DataPoints[0].Value)
		}
	}
	assert.True(t, names["jobs.processed"])
	assert.True(t, names["jobs.duration"])
	assert.True(t, names["forms.pages"])
}

func TestEnableTracing_Disabled(t *testing.T) {
	o, _, _ := newTestObservability(t)
	before := o.tracerProvider
	require.NoError(t, o.EnableTracing(config.TracingConfig{Enabled: false}, "1.0.0"))
	assert.Same(t, before, o.tracerProvider)
}

// Package instrument centralizes the per-use-case span, RED metric, and
// structured completion log that every application service records.
package instrument

import (
	"context"
	"time"

	"github.com/freshmart/orderflow/internal/observability"
	"github.com/freshmart/orderflow/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

// Done finishes the use case: err == nil counts as success, otherwise the
// statusText labels the failure in SCREAMING_SNAKE form.
type Done func(err error, statusText string)

// Start opens a span for the use case and returns a Done to be invoked once,
// usually from a defer. The returned context carries the span and a
// use-case-scoped logger.
func Start(ctx context.Context, tel observability.Telemetry, useCase string, attrs ...attribute.KeyValue) (context.Context, Done) {
	if tel == nil {
		tel = observability.NopTelemetry()
	}

	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := tel.Tracer().Start(ctx, spanPrefix+useCase, attrs...)

	logger := logctx.FromOr(ctx, tel.Logger()).With(observability.F("use_case", useCase))
	ctx = logctx.With(ctx, logger)

	reqCounter := tel.Counter(observability.MetricUsecaseRequests)
	durHistogram := tel.Histogram(observability.MetricUsecaseDuration)
	start := time.Now()

	return ctx, func(err error, statusText string) {
		latency := time.Since(start).Seconds()
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		if statusText == "" {
			statusText = "OK"
		}

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		if reqCounter != nil {
			reqCounter.Add(1,
				observability.L("use_case", useCase),
				observability.L("outcome", outcome),
			)
		}
		if durHistogram != nil {
			durHistogram.Observe(latency,
				observability.L("use_case", useCase),
			)
		}

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", latency),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}
}

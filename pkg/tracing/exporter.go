package tracing

import (
	"context"

	"github.com/Gobusters/ectologger"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogExporter writes finished spans to a logger. It stands in
// for a collector in local runs.
type LogExporter struct {
	logger ectologger.Logger
}

func NewLogExporter(logger ectologger.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		fields := map[string]interface{}{
			"trace_id":    span.SpanContext().TraceID().String(),
			"span_id":     span.SpanContext().SpanID().String(),
			"duration":    span.EndTime().Sub(span.StartTime()),
			"status_code": span.Status().Code.String(),
		}
		for _, attr := range span.Attributes() {
			fields[string(attr.Key)] = attr.Value.Emit()
		}
		e.logger.WithContext(ctx).WithFields(fields).Infof("span %s", span.Name())
	}
	return nil
}

func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}

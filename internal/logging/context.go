package logging

import (
	"context"
	"log/slog"

	"boardwatch/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for job execution identifiers.
	FieldRunID = "run_id"
	// FieldJob is the standardized structured logging key for scheduled job names.
	FieldJob = "job"
	// FieldThreadID is the standardized structured logging key for forum thread identifiers.
	FieldThreadID = "thread_id"
	// FieldAnalyzer is the standardized structured logging key for analyzer names.
	FieldAnalyzer = "analyzer"
	// FieldEventType classifies a log line for filtering and alerting.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if job, ok := services.JobFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJob, job))
	}
	if id, ok := services.ThreadIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldThreadID, id))
	}
	if name, ok := services.AnalyzerFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAnalyzer, name))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}

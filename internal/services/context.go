package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	jobKey      contextKey = "job"
	threadIDKey contextKey = "thread_id"
	analyzerKey contextKey = "analyzer"
)

// WithRunID annotates context with the job execution identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the job execution identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJob annotates context with the scheduled job name (scrape/analyze).
func WithJob(ctx context.Context, job string) context.Context {
	if job == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKey, job)
}

// JobFromContext returns the job name if present.
func JobFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(jobKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithThreadID annotates context with the forum thread being processed.
func WithThreadID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, threadIDKey, id)
}

// ThreadIDFromContext extracts the thread identifier if present.
func ThreadIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(threadIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithAnalyzer annotates context with the analyzer name.
func WithAnalyzer(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, analyzerKey, name)
}

// AnalyzerFromContext returns the analyzer name if present.
func AnalyzerFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(analyzerKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

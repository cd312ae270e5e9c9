package services_test

import (
	"context"
	"testing"

	"boardwatch/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithJob(ctx, "analyze")
	ctx = services.WithThreadID(ctx, 42)
	ctx = services.WithAnalyzer(ctx, "keyword")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if job, ok := services.JobFromContext(ctx); !ok || job != "analyze" {
		t.Fatalf("unexpected job: %v %v", job, ok)
	}
	if id, ok := services.ThreadIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected thread id: %v %v", id, ok)
	}
	if name, ok := services.AnalyzerFromContext(ctx); !ok || name != "keyword" {
		t.Fatalf("unexpected analyzer: %v %v", name, ok)
	}
}

func TestJobBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJob(ctx, "")
	if _, ok := services.JobFromContext(ctx); ok {
		t.Fatal("expected no job value")
	}
}

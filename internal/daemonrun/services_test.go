package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"boardwatch/internal/ledger"
	"boardwatch/internal/logging"
	"boardwatch/internal/testsupport"
)

func TestNewServicesManualRunsAreRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithArticlesDisabled())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	for i := int64(0); i < 3; i++ {
		testsupport.WriteThread(t, cfg.ThreadsDir(), testsupport.NewThread(100*(i+1), 4, nil))
	}

	ctx := context.Background()
	svc, err := NewServices(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	scrapeExec, err := svc.Scheduler.RunScrapeNow(ctx)
	if err != nil {
		t.Fatalf("RunScrapeNow: %v", err)
	}
	if scrapeExec.Counters["skipped"] != 1 {
		t.Fatalf("expected unconfigured scrape to be skipped, got %v", scrapeExec.Counters)
	}

	analyzeExec, err := svc.Scheduler.RunAnalyzeNow(ctx)
	if err != nil {
		t.Fatalf("RunAnalyzeNow: %v", err)
	}
	if analyzeExec.Counters["threads_loaded"] != 3 {
		t.Fatalf("unexpected analyze counters %v", analyzeExec.Counters)
	}
	if _, err := os.Stat(cfg.SnapshotPath()); err != nil {
		t.Fatalf("expected snapshot: %v", err)
	}

	runs, err := svc.Ledger.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	for _, run := range runs {
		if run.Status != ledger.StatusSucceeded {
			t.Fatalf("run %s status %s: %s", run.Job, run.Status, run.Error)
		}
	}
}

func TestNewServicesRejectsBadSchedule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.AnalyzeSchedule = "every tuesday"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewServices(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestNewCompleter(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithArticlesDisabled())
	if NewCompleter(cfg) != nil {
		t.Fatal("expected nil completer when articles are disabled")
	}
	cfg.Articles.Enabled = true
	if NewCompleter(cfg) == nil {
		t.Fatal("expected completer when articles are enabled")
	}
}

func TestForceContext(t *testing.T) {
	ctx := context.Background()
	if ForceFromContext(ctx) {
		t.Fatal("force should default to false")
	}
	if !ForceFromContext(WithForce(ctx, true)) {
		t.Fatal("expected force flag")
	}
}

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "boardwatch-1.log")
	second := filepath.Join(dir, "boardwatch-2.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte(p), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatal(err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "boardwatch.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != second {
		t.Fatalf("pointer resolves to %q, want %q", data, second)
	}
}

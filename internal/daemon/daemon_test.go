package daemon_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"boardwatch/internal/daemon"
	"boardwatch/internal/ledger"
	"boardwatch/internal/logging"
	"boardwatch/internal/scheduler"
	"boardwatch/internal/testsupport"
)

type recordedJobs struct {
	mu    sync.Mutex
	order []string
	done  chan struct{}
}

func (r *recordedJobs) body(name string) scheduler.JobFunc {
	return func(context.Context) (map[string]int, error) {
		r.mu.Lock()
		r.order = append(r.order, name)
		n := len(r.order)
		r.mu.Unlock()
		if n == 2 {
			close(r.done)
		}
		return map[string]int{"ok": 1}, nil
	}
}

func newDaemon(t *testing.T, runOnStart bool) (*daemon.Daemon, *ledger.Ledger, *recordedJobs) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.RunOnStart = runOnStart
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	runs := testsupport.MustOpenLedger(t, cfg)

	jobs := &recordedJobs{done: make(chan struct{})}
	sched, err := scheduler.New([]scheduler.Job{
		{Name: scheduler.JobScrape, Spec: "0 0 1 1 *", Run: jobs.body(scheduler.JobScrape)},
		{Name: scheduler.JobAnalyze, Spec: "0 0 1 1 *", Run: jobs.body(scheduler.JobAnalyze)},
	}, scheduler.Options{Recorder: runs, Logger: logging.NewNop()})
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}

	d, err := daemon.New(cfg, runs, sched, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d, runs, jobs
}

func TestDaemonStartStop(t *testing.T) {
	d, runs, _ := newDaemon(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}

	status := d.Status()
	if !status.Running {
		t.Fatal("expected running status")
	}
	if len(status.Jobs) != 2 || status.Jobs[0].Job != scheduler.JobAnalyze || status.Jobs[1].Job != scheduler.JobScrape {
		t.Fatalf("unexpected jobs %+v", status.Jobs)
	}
	if status.Jobs[0].Next.IsZero() {
		t.Fatal("expected next activation once started")
	}
	if status.LedgerPath != runs.Path() {
		t.Fatalf("ledger path = %q, want %q", status.LedgerPath, runs.Path())
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon to be stopped")
	}
	d.Stop()
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	runs := testsupport.MustOpenLedger(t, cfg)

	build := func() *daemon.Daemon {
		sched, err := scheduler.New(nil, scheduler.Options{Logger: logging.NewNop()})
		if err != nil {
			t.Fatalf("scheduler.New: %v", err)
		}
		d, err := daemon.New(cfg, runs, sched, logging.NewNop())
		if err != nil {
			t.Fatalf("daemon.New: %v", err)
		}
		return d
	}

	first := build()
	second := build()
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock contention on second daemon")
	}
	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonRunOnStart(t *testing.T) {
	d, runs, jobs := newDaemon(t, true)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	select {
	case <-jobs.done:
	case <-time.After(5 * time.Second):
		t.Fatal("startup runs did not complete")
	}
	d.Stop()

	jobs.mu.Lock()
	order := append([]string(nil), jobs.order...)
	jobs.mu.Unlock()
	if len(order) != 2 || order[0] != scheduler.JobScrape || order[1] != scheduler.JobAnalyze {
		t.Fatalf("unexpected startup order %v", order)
	}

	recent, err := runs.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recorded runs, got %d", len(recent))
	}
	for _, run := range recent {
		if run.Status != ledger.StatusSucceeded {
			t.Fatalf("run %s status = %s", run.Job, run.Status)
		}
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

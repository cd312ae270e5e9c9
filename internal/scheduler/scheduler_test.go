package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"boardwatch/internal/ledger"
	"boardwatch/internal/logging"
	"boardwatch/internal/services"
)

type recordedRun struct {
	id       string
	job      string
	err      error
	counters map[string]int
	finished bool
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs map[string]*recordedRun
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{runs: map[string]*recordedRun{}}
}

func (f *fakeRecorder) StartRunWithID(_ context.Context, id, job string) (ledger.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[id] = &recordedRun{id: id, job: job}
	return ledger.Run{ID: id, Job: job, Status: ledger.StatusRunning}, nil
}

func (f *fakeRecorder) FinishRun(_ context.Context, id string, runErr error, counters map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return errors.New("unknown run")
	}
	run.err = runErr
	run.counters = counters
	run.finished = true
	return nil
}

func (f *fakeRecorder) get(id string) recordedRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	if run, ok := f.runs[id]; ok {
		return *run
	}
	return recordedRun{}
}

func noop(context.Context) (map[string]int, error) { return nil, nil }

func newTestScheduler(t *testing.T, analyze JobFunc, opts Options) *Scheduler {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	s, err := New([]Job{
		{Name: JobScrape, Spec: "0 */2 * * *", Run: noop},
		{Name: JobAnalyze, Spec: "15 */2 * * *", Run: analyze},
	}, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func TestRunNowRecordsExecution(t *testing.T) {
	recorder := newFakeRecorder()
	var seenRunID, seenJob string
	s := newTestScheduler(t, func(ctx context.Context) (map[string]int, error) {
		seenRunID, _ = services.RunIDFromContext(ctx)
		seenJob, _ = services.JobFromContext(ctx)
		return map[string]int{"threads_loaded": 7}, nil
	}, Options{Recorder: recorder})

	exec, err := s.RunAnalyzeNow(context.Background())
	if err != nil {
		t.Fatalf("RunAnalyzeNow: %v", err)
	}
	if exec.RunID == "" || exec.RunID != seenRunID || seenJob != JobAnalyze {
		t.Fatalf("run id/job not propagated: exec=%+v ctx=%s/%s", exec, seenRunID, seenJob)
	}
	run := recorder.get(exec.RunID)
	if !run.finished || run.job != JobAnalyze || run.counters["threads_loaded"] != 7 || run.err != nil {
		t.Fatalf("unexpected ledger row %+v", run)
	}

	other, err := s.RunScrapeNow(context.Background())
	if err != nil || other.RunID == exec.RunID {
		t.Fatalf("expected a fresh run id, got %+v err=%v", other, err)
	}
}

func TestRunNowRecordsFailure(t *testing.T) {
	recorder := newFakeRecorder()
	boom := errors.New("corpus missing")
	s := newTestScheduler(t, func(context.Context) (map[string]int, error) {
		return nil, boom
	}, Options{Recorder: recorder})

	exec, err := s.RunAnalyzeNow(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
	if run := recorder.get(exec.RunID); !errors.Is(run.err, boom) {
		t.Fatalf("failure not recorded: %+v", run)
	}
}

func TestOverlapGuard(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	s := newTestScheduler(t, func(context.Context) (map[string]int, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return nil, nil
	}, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := s.RunAnalyzeNow(context.Background())
		done <- err
	}()
	<-started

	if !s.Running(JobAnalyze) {
		t.Fatal("expected analyze to be running")
	}
	if _, err := s.RunAnalyzeNow(context.Background()); !errors.Is(err, services.ErrJobRunning) {
		t.Fatalf("expected ErrJobRunning, got %v", err)
	}
	s.tick(JobAnalyze)
	if calls.Load() != 1 {
		t.Fatalf("overlapping tick should be skipped, calls=%d", calls.Load())
	}
	if _, err := s.RunScrapeNow(context.Background()); err != nil {
		t.Fatalf("other jobs are not blocked: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if _, err := s.RunAnalyzeNow(context.Background()); err != nil {
		t.Fatalf("guard should clear after the run: %v", err)
	}
}

func TestStopCancelsAndWaits(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	s := newTestScheduler(t, func(ctx context.Context) (map[string]int, error) {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return nil, ctx.Err()
	}, Options{})

	s.Start(context.Background())
	s.Start(context.Background())
	go s.tick(JobAnalyze)
	<-started

	s.Stop()
	if !finished.Load() {
		t.Fatal("Stop returned before the running job finished")
	}
	s.Stop()
}

func TestJobTimeout(t *testing.T) {
	recorder := newFakeRecorder()
	s := newTestScheduler(t, func(ctx context.Context) (map[string]int, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, Options{Recorder: recorder, JobTimeout: 20 * time.Millisecond})

	exec, err := s.RunAnalyzeNow(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if run := recorder.get(exec.RunID); !run.finished {
		t.Fatal("timed out run should still be recorded")
	}
}

func TestNewRejectsBadSpecs(t *testing.T) {
	_, err := New([]Job{{Name: JobScrape, Spec: "every tuesday", Run: noop}}, Options{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	_, err = New([]Job{{Name: JobScrape, Spec: "@hourly", Run: noop}, {Name: JobScrape, Spec: "@daily", Run: noop}}, Options{})
	if err == nil {
		t.Fatal("expected duplicate job error")
	}
}

func TestUnknownJobAndEntries(t *testing.T) {
	s := newTestScheduler(t, noop, Options{})
	if _, err := s.RunNow(context.Background(), "publish"); err == nil {
		t.Fatal("expected unknown job error")
	}
	entries := s.Entries()
	if len(entries) != 2 || entries[0].Job != JobAnalyze || entries[1].Spec != "0 */2 * * *" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

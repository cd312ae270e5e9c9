package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"boardwatch/internal/ledger"
	"boardwatch/internal/logging"
	"boardwatch/internal/services"
)

// Job names.
const (
	JobScrape  = "scrape"
	JobAnalyze = "analyze"
)

// JobFunc is a job body. The returned counters are stored with the run.
type JobFunc func(ctx context.Context) (map[string]int, error)

// Job binds a name and cron spec to a body.
type Job struct {
	Name string
	Spec string
	Run  JobFunc
}

// Recorder persists run lifecycle rows. *ledger.Ledger satisfies it.
type Recorder interface {
	StartRunWithID(ctx context.Context, id, job string) (ledger.Run, error)
	FinishRun(ctx context.Context, id string, runErr error, counters map[string]int) error
}

// Options configures a Scheduler.
type Options struct {
	Recorder   Recorder
	JobTimeout time.Duration
	Logger     *slog.Logger
}

// Execution describes one completed job run.
type Execution struct {
	RunID    string
	Job      string
	Trigger  string
	Started  time.Time
	Duration time.Duration
	Counters map[string]int
}

// Entry is a scheduled job and its next activation.
type Entry struct {
	Job  string
	Spec string
	Next time.Time
	Prev time.Time
}

const (
	triggerCron   = "cron"
	triggerManual = "manual"
)

type job struct {
	Job
	entry   cron.EntryID
	running atomic.Bool
}

// Scheduler owns the cron loop and the per-job overlap guards.
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]*job
	recorder Recorder
	timeout  time.Duration
	logger   *slog.Logger
	newID    func() string

	mu       sync.Mutex
	started  bool
	stopping bool
	baseCtx  context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

// New validates every spec and registers the jobs. Nothing runs until Start.
func New(jobs []Job, opts Options) (*Scheduler, error) {
	logger := logging.NewComponentLogger(opts.Logger, "scheduler")
	adapter := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter)),
		),
		jobs:     make(map[string]*job, len(jobs)),
		recorder: opts.Recorder,
		timeout:  opts.JobTimeout,
		logger:   logger,
		newID:    uuid.NewString,
		baseCtx:  context.Background(),
	}

	for _, def := range jobs {
		if def.Name == "" || def.Run == nil {
			return nil, errors.New("scheduler job requires a name and a body")
		}
		if _, dup := s.jobs[def.Name]; dup {
			return nil, fmt.Errorf("duplicate scheduler job %q", def.Name)
		}
		schedule, err := cron.ParseStandard(def.Spec)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "scheduler", "parse", fmt.Sprintf("job %s spec %q", def.Name, def.Spec), err)
		}
		j := &job{Job: def}
		name := def.Name
		j.entry = s.cron.Schedule(schedule, cron.FuncJob(func() { s.tick(name) }))
		s.jobs[name] = j
	}
	return s, nil
}

// Start arms the cron loop. Calling it again while started is a no-op.
// Scheduled runs derive their context from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.stopping = false
	s.cron.Start()
	s.logger.Info("scheduler started", logging.Int("jobs", len(s.jobs)))
}

// Stop disarms the cron loop, cancels scheduled runs in progress, and waits
// for every in-flight execution to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.stopping = true
	cancel := s.cancel
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	if cancel != nil {
		cancel()
	}
	<-cronDone.Done()
	s.inflight.Wait()

	s.mu.Lock()
	s.stopping = false
	s.mu.Unlock()
	s.logger.Info("scheduler stopped")
}

// RunScrapeNow runs the scrape job synchronously.
func (s *Scheduler) RunScrapeNow(ctx context.Context) (Execution, error) {
	return s.RunNow(ctx, JobScrape)
}

// RunAnalyzeNow runs the analyze job synchronously.
func (s *Scheduler) RunAnalyzeNow(ctx context.Context) (Execution, error) {
	return s.RunNow(ctx, JobAnalyze)
}

// RunNow runs the named job synchronously through the same path as a tick.
func (s *Scheduler) RunNow(ctx context.Context, name string) (Execution, error) {
	j, ok := s.jobs[name]
	if !ok {
		return Execution{}, fmt.Errorf("unknown job %q", name)
	}
	return s.execute(ctx, j, triggerManual)
}

// Running reports whether the named job is executing.
func (s *Scheduler) Running(name string) bool {
	j, ok := s.jobs[name]
	return ok && j.running.Load()
}

// Entries lists the scheduled jobs ordered by name.
func (s *Scheduler) Entries() []Entry {
	out := make([]Entry, 0, len(s.jobs))
	for name, j := range s.jobs {
		e := s.cron.Entry(j.entry)
		out = append(out, Entry{Job: name, Spec: j.Spec, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Job < out[k].Job })
	return out
}

func (s *Scheduler) tick(name string) {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	// Errors are logged inside execute.
	_, _ = s.execute(ctx, s.jobs[name], triggerCron)
}

func (s *Scheduler) execute(ctx context.Context, j *job, trigger string) (Execution, error) {
	logger := s.logger.With(logging.String(logging.FieldJob, j.Name), logging.String("trigger", trigger))

	if !j.running.CompareAndSwap(false, true) {
		if trigger == triggerCron {
			logging.WarnWithContext(logger, "previous run still active; tick skipped", "job_overlap_skipped",
				logging.String(logging.FieldImpact, "this interval's run is skipped"),
				logging.String(logging.FieldErrorHint, "lengthen the schedule or lower scheduler.job_timeout_seconds"),
			)
			return Execution{}, nil
		}
		return Execution{}, services.Wrap(services.ErrJobRunning, "scheduler", j.Name, "", nil)
	}
	defer j.running.Store(false)

	s.mu.Lock()
	if s.stopping && trigger == triggerCron {
		s.mu.Unlock()
		return Execution{}, nil
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	exec := Execution{RunID: s.newID(), Job: j.Name, Trigger: trigger, Started: time.Now()}
	ctx = services.WithRunID(services.WithJob(ctx, j.Name), exec.RunID)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	logger = logging.WithContext(ctx, s.logger).With(logging.String("trigger", trigger))

	if s.recorder != nil {
		if _, err := s.recorder.StartRunWithID(ctx, exec.RunID, j.Name); err != nil {
			logging.WarnWithContext(logger, "run not recorded in ledger", "ledger_start_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "status will not list this run"),
			)
		}
	}

	logger.Info("job started")
	counters, err := j.Run(ctx)
	exec.Duration = time.Since(exec.Started)
	exec.Counters = counters

	if s.recorder != nil {
		if recErr := s.recorder.FinishRun(context.WithoutCancel(ctx), exec.RunID, err, counters); recErr != nil {
			logging.WarnWithContext(logger, "run result not recorded in ledger", "ledger_finish_failed",
				logging.Error(recErr),
				logging.String(logging.FieldImpact, "status may show this run as running"),
			)
		}
	}

	if err != nil {
		logging.ErrorWithContext(logger, "job failed", "job_failed",
			logging.Error(err),
			logging.Duration("elapsed", exec.Duration),
			logging.String(logging.FieldImpact, "previous outputs stay in place until the next run"),
		)
		return exec, err
	}
	logger.Info("job completed",
		logging.Duration("elapsed", exec.Duration),
		logging.Any("counters", counters),
	)
	return exec, nil
}

// cronLogger adapts slog to cron.Logger. Cron's info chatter goes to debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{logging.Error(err)}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}

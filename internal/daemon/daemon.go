package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"boardwatch/internal/config"
	"boardwatch/internal/ledger"
	"boardwatch/internal/logging"
	"boardwatch/internal/scheduler"
	"boardwatch/internal/services"
)

// Daemon owns the scheduler lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	ledger    *ledger.Ledger
	scheduler *scheduler.Scheduler

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	startup sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Jobs         []JobStatus
	LedgerPath   string
	LockFilePath string
}

// JobStatus describes one scheduled job.
type JobStatus struct {
	scheduler.Entry
	Active bool
}

// New constructs a daemon around an already configured scheduler.
func New(cfg *config.Config, runs *ledger.Ledger, sched *scheduler.Scheduler, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || runs == nil || sched == nil || logger == nil {
		return nil, errors.New("daemon requires config, ledger, scheduler, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "boardwatchd.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		ledger:    runs,
		scheduler: sched,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and arms the scheduler. When
// scheduler.run_on_start is set, a scrape then an analyze run is triggered in
// the background.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another boardwatch daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.scheduler.Start(d.ctx)
	d.running.Store(true)
	d.logger.Info("boardwatch daemon started", logging.String("lock", d.lockPath))

	if d.cfg.Scheduler.RunOnStart {
		d.startup.Add(1)
		go d.runOnStart(d.ctx)
	}
	return nil
}

// Stop cancels in-flight jobs, stops the scheduler, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.startup.Wait()
	d.scheduler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("boardwatch daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.ledger != nil {
		return d.ledger.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	entries := d.scheduler.Entries()
	jobs := make([]JobStatus, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, JobStatus{Entry: entry, Active: d.scheduler.Running(entry.Job)})
	}
	return Status{
		Running:      d.running.Load(),
		Jobs:         jobs,
		LedgerPath:   d.ledger.Path(),
		LockFilePath: d.lockPath,
	}
}

func (d *Daemon) runOnStart(ctx context.Context) {
	defer d.startup.Done()
	for _, run := range []func(context.Context) (scheduler.Execution, error){
		d.scheduler.RunScrapeNow,
		d.scheduler.RunAnalyzeNow,
	} {
		if ctx.Err() != nil {
			return
		}
		// Failures other than overlap are logged by the scheduler.
		if _, err := run(ctx); errors.Is(err, services.ErrJobRunning) {
			d.logger.Info("startup run skipped; job already active")
		}
	}
}
